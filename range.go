package vl53l0x

import (
	"fmt"
	"time"
)

// startPreamble restores the stop-variable register state saved at init.
// The device requires it before every range start.
func (v *VL53L0X) startPreamble() error {

	return v.applyScript([]regWrite{
		{0x80, 0x01}, {0xFF, 0x01}, {0x00, 0x00},
		{0x91, v.stopVariable},
		{0x00, 0x01}, {0xFF, 0x00}, {0x80, 0x00},
	})
}

// StartSingle triggers one range measurement without waiting for it. Poll
// the result with PollRangeMillimeters. Fails with ErrInvalidState if a
// measurement is already in flight or continuous mode is active.
func (v *VL53L0X) StartSingle() error {

	if v.mode != modeIdle {
		return fmt.Errorf("start single: %w", ErrInvalidState)
	}

	v.log.Print("Start single shot measurement")

	if err := v.startPreamble(); err != nil {
		return err
	}

	if err := v.writeReg(SYSRANGE_START, 0x01); err != nil {
		return err
	}

	v.mode = modeSingleShot
	return nil
}

// StartContinuous begins continuous ranging with the given period between
// measurements in microseconds. A period of 0 selects back-to-back mode,
// where the next measurement starts as soon as the previous one finishes;
// otherwise timed mode is used with millisecond granularity, raising
// periods shorter than one millisecond to it. Measurements keep coming
// until StopContinuous.
func (v *VL53L0X) StartContinuous(periodUs uint32) error {

	if v.mode != modeIdle {
		return fmt.Errorf("start continuous: %w", ErrInvalidState)
	}

	v.log.Print("Start continuous mode")

	if err := v.startPreamble(); err != nil {
		return err
	}

	if periodUs != 0 {
		// continuous timed mode; the register takes milliseconds scaled
		// by the oscillator calibration value
		oscCal, err := v.readReg16Bit(OSC_CALIBRATE_VAL)

		if err != nil {
			return err
		}

		periodMs := periodUs / 1000

		if periodMs == 0 {
			periodMs = 1
		}

		if oscCal != 0 {
			periodMs *= uint32(oscCal)
		}

		if err := v.writeReg32Bit(SYSTEM_INTERMEASUREMENT_PERIOD, periodMs); err != nil {
			return err
		}

		if err := v.writeReg(SYSRANGE_START, 0x04); err != nil {
			return err
		}
	} else {
		// back-to-back mode
		if err := v.writeReg(SYSRANGE_START, 0x02); err != nil {
			return err
		}
	}

	v.mode = modeContinuous
	return nil
}

// StopContinuous stops continuous ranging. The last measurement in flight
// completes on the device before it returns to standby.
func (v *VL53L0X) StopContinuous() error {

	if v.mode != modeContinuous {
		return fmt.Errorf("stop continuous: %w", ErrInvalidState)
	}

	v.log.Print("Stop continuous mode")

	if err := v.writeReg(SYSRANGE_START, 0x01); err != nil {
		return err
	}

	if err := v.applyScript([]regWrite{
		{0xFF, 0x01}, {0x00, 0x00},
		{0x91, 0x00},
		{0x00, 0x01}, {0xFF, 0x00},
	}); err != nil {
		return err
	}

	v.mode = modeIdle
	return nil
}

// PollRangeMillimeters checks whether a measurement is ready without
// blocking. When no measurement has completed yet it reports ready ==
// false and touches no register state, so it can be retried indefinitely.
// On completion it returns the range in millimeters and clears the
// interrupt; a pending single shot returns the handle to idle while
// continuous mode keeps running.
func (v *VL53L0X) PollRangeMillimeters() (rangeMM uint16, ready bool, err error) {

	if v.mode == modeIdle {
		return 0, false, fmt.Errorf("poll range: %w", ErrInvalidState)
	}

	status, err := v.readReg(RESULT_INTERRUPT_STATUS)

	if err != nil {
		return 0, false, err
	}

	if status&0x07 == 0 {
		// not ready yet
		return 0, false, nil
	}

	rangeMM, err = v.readRangeAndClear()

	if err != nil {
		return 0, false, err
	}

	if v.mode == modeSingleShot {
		v.mode = modeIdle
	}

	return rangeMM, true, nil
}

// ReadRangeSingleMillimeters performs a single-shot range measurement and
// returns the reading in millimeters. It blocks until the sensor reports
// completion or the configured timeout expires.
func (v *VL53L0X) ReadRangeSingleMillimeters() (uint16, error) {

	if err := v.StartSingle(); err != nil {
		return 0, err
	}

	// wait until the device latches the start bit
	v.startTimeout()

	for {
		val, err := v.readReg(SYSRANGE_START)

		if err != nil {
			v.mode = modeIdle
			return 0, err
		}

		if val&0x01 == 0 {
			break
		}

		if v.checkTimeoutExpired() {
			v.didTimeout = true
			v.mode = modeIdle
			return 0, fmt.Errorf("waiting for range start: %w", ErrTimeout)
		}

		time.Sleep(time.Millisecond)
	}

	mm, err := v.waitRangeMillimeters()

	v.mode = modeIdle
	return mm, err
}

// ReadRangeContinuousMillimeters returns a range reading in millimeters
// when continuous mode is active, blocking until the next measurement is
// ready or the configured timeout expires.
func (v *VL53L0X) ReadRangeContinuousMillimeters() (uint16, error) {

	if v.mode != modeContinuous {
		return 0, fmt.Errorf("read continuous: %w", ErrInvalidState)
	}

	return v.waitRangeMillimeters()
}

// waitRangeMillimeters blocks on the interrupt status register, then reads
// the result and clears the interrupt.
func (v *VL53L0X) waitRangeMillimeters() (uint16, error) {

	v.startTimeout()

	for {
		status, err := v.readReg(RESULT_INTERRUPT_STATUS)

		if err != nil {
			return 0, err
		}

		if status&0x07 != 0 {
			break
		}

		if v.checkTimeoutExpired() {
			v.didTimeout = true
			return 0, fmt.Errorf("waiting for measurement: %w", ErrTimeout)
		}

		time.Sleep(time.Millisecond)
	}

	return v.readRangeAndClear()
}

// readRangeAndClear reads the millimeter result register pair and clears
// the measurement interrupt.
func (v *VL53L0X) readRangeAndClear() (uint16, error) {

	rangeMM, err := v.readReg16Bit(RESULT_RANGE_MM)

	if err != nil {
		return 0, err
	}

	if err := v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01); err != nil {
		return 0, err
	}

	return rangeMM, nil
}
