// go-vl53l0x is an I2C driver for the ST VL53L0X time-of-flight sensor.
package vl53l0x

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

const (
	// Address is the default address of the sensor on I2C bus
	Address uint8 = 0x29
	// MinTimingBudget is the lowest measurement timing budget the sensor
	// accepts, in microseconds
	MinTimingBudget uint32 = 20000
	// MaxTimingBudget is the highest measurement timing budget the driver
	// accepts, in microseconds
	MaxTimingBudget uint32 = 4000000
)

var (
	// ErrTimeout is returned when the sensor does not signal completion
	// within the configured poll deadline
	ErrTimeout = errors.New("vl53l0x: timeout waiting for sensor")
	// ErrUnexpectedDevice is returned when the model identification
	// register does not match the VL53L0X
	ErrUnexpectedDevice = errors.New("vl53l0x: unexpected device")
	// ErrInvalidTimingBudget is returned for budgets below the sensor
	// minimum or too small for the enabled sequence steps
	ErrInvalidTimingBudget = errors.New("vl53l0x: invalid timing budget")
	// ErrInvalidState is returned when an operation is not legal in the
	// current measurement mode, before any bus transaction is issued
	ErrInvalidState = errors.New("vl53l0x: invalid measurement state")
)

// Bus is the I2C transport borrowed by the driver for every register
// transaction. It is satisfied by periph.io bus implementations
// (periph.io/x/conn/v3/i2c.Bus) and matches the TinyGo machine.I2C shape,
// so the same driver runs on Linux hosts and microcontrollers. A call with
// both w and r non-empty is a write-then-read of a register.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// measurementMode tracks which range-start sequence, if any, is in flight.
type measurementMode uint8

const (
	modeIdle measurementMode = iota
	modeSingleShot
	modeContinuous
)

// VL53L0X represents a single VL53L0X sensor instance.
type VL53L0X struct {
	// bus is the I2C interface, owned by the caller
	bus Bus

	// addr is the current 7-bit device address
	addr uint8

	// stopVariable is captured during init and reloaded before every
	// range start
	stopVariable uint8

	// timing budget in microseconds
	timingBudgetUs uint32

	mode measurementMode

	ioTimeout    time.Duration
	didTimeout   bool
	timeoutStart time.Time

	// log logger for debugging
	log *log.Logger
}

// Opts holds optional configuration for New.
type Opts struct {
	// Addr is the 7-bit device address, Address (0x29) when zero
	Addr uint8
	// IO1V8 keeps the sensor's default 1.8V I/O mode instead of
	// switching to 2.8V
	IO1V8 bool
	// Logger receives debug output, discarded when nil
	Logger *log.Logger
}

// New returns a new VL53L0X sensor instance over the given bus, fully
// initialized and calibrated. opts may be nil for the defaults. The bus is
// borrowed for the duration of each call; callers sharing the bus between
// devices must serialize access.
func New(bus Bus, opts *Opts) (*VL53L0X, error) {

	if opts == nil {
		opts = &Opts{}
	}

	addr := opts.Addr

	if addr == 0 {
		addr = Address
	}

	v := &VL53L0X{
		bus:  bus,
		addr: addr,
		mode: modeIdle,
		log:  opts.Logger,
	}

	if v.log == nil {
		// null logger
		v.log = log.New(io.Discard, "", log.LstdFlags)
	}

	v.log.Printf("Starting init at address 0x%02X", addr)

	if err := v.init(!opts.IO1V8); err != nil {
		return nil, err
	}

	v.log.Printf("Device initialized, timing budget %d us", v.timingBudgetUs)

	return v, nil
}

// SetAddress reprograms the sensor's I2C address. All subsequent register
// transactions target the new address. The change does not survive a power
// cycle.
func (v *VL53L0X) SetAddress(newAddr uint8) error {

	newAddr &= 0x7F

	if err := v.writeReg(I2C_SLAVE_DEVICE_ADDRESS, newAddr); err != nil {
		return err
	}

	v.addr = newAddr
	return nil
}

// WhoAmI returns the model identification register, 0xEE on a VL53L0X.
func (v *VL53L0X) WhoAmI() (uint8, error) {
	return v.readReg(IDENTIFICATION_MODEL_ID)
}

// wrapBus annotates a transport failure with the register involved.
func wrapBus(op string, reg uint8, err error) error {
	return fmt.Errorf("%s reg 0x%02X: %w", op, reg, err)
}
