//go:build examples
// +build examples

package vl53l0x_test

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/swdee/go-vl53l0x"
)

// Example ranges over a periph.io managed bus. periph bus handles satisfy
// the driver's Bus interface directly.
func Example() {

	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	bus, err := i2creg.Open("")

	if err != nil {
		log.Fatal(err)
	}

	defer bus.Close()

	sensor, err := vl53l0x.New(bus, nil)

	if err != nil {
		log.Fatal(err)
	}

	mm, err := sensor.ReadRangeSingleMillimeters()

	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Distance: %d mm\n", mm)
}
