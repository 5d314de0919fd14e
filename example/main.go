package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/swdee/go-vl53l0x"
)

func main() {

	i2cbus := flag.String("b", "/dev/i2c-0", "Path to I2C bus to use")
	flag.Parse()

	bus := vl53l0x.NewI2CBus(*i2cbus)
	defer bus.Close()

	// create new sensor instance, fully initialized and calibrated
	sensor, err := vl53l0x.New(bus, nil)

	if err != nil {
		log.Fatal(err)
	}

	// a larger budget trades measurement latency for accuracy
	if err := sensor.SetMeasurementTimingBudget(50000); err != nil {
		log.Fatalf("Set timing budget failed: %v", err)
	}

	// single shot reading
	mm, err := sensor.ReadRangeSingleMillimeters()

	if err != nil {
		log.Fatalf("Single shot read failed: %v", err)
	}

	fmt.Printf("Single shot distance: %d mm\n", mm)

	// continuous back-to-back ranging
	if err := sensor.StartContinuous(0); err != nil {
		log.Fatalf("Start continuous failed: %v", err)
	}

	for i := 0; i < 10; i++ {

		mm, err := sensor.ReadRangeContinuousMillimeters()

		if err != nil {
			log.Printf("Read error: %v", err)
		} else {
			fmt.Printf("Distance: %d mm\n", mm)
		}

		time.Sleep(200 * time.Millisecond)
	}

	if err := sensor.StopContinuous(); err != nil {
		log.Fatalf("Stop continuous failed: %v", err)
	}
}
