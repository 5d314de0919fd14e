package vl53l0x

import (
	"fmt"
	"time"
)

// regWrite is one step of a fixed register script.
type regWrite struct {
	reg uint8
	val uint8
}

// tuningDefaults is the fixed register script ST's reference API loads
// during static init ("default tuning settings"). The registers have no
// published names; the values must be written in this exact order.
var tuningDefaults = []regWrite{
	{0xFF, 0x01}, {0x00, 0x00},

	{0xFF, 0x00}, {0x09, 0x00}, {0x10, 0x00}, {0x11, 0x00},

	{0x24, 0x01}, {0x25, 0xFF}, {0x75, 0x00},

	{0xFF, 0x01}, {0x4E, 0x2C}, {0x48, 0x00}, {0x30, 0x20},

	{0xFF, 0x00}, {0x30, 0x09}, {0x54, 0x00}, {0x31, 0x04},
	{0x32, 0x03}, {0x40, 0x83}, {0x46, 0x25}, {0x60, 0x00},
	{0x27, 0x00}, {0x50, 0x06}, {0x51, 0x00}, {0x52, 0x96},
	{0x56, 0x08}, {0x57, 0x30}, {0x61, 0x00}, {0x62, 0x00},
	{0x64, 0x00}, {0x65, 0x00}, {0x66, 0xA0},

	{0xFF, 0x01}, {0x22, 0x32}, {0x47, 0x14}, {0x49, 0xFF},
	{0x4A, 0x00},

	{0xFF, 0x00}, {0x7A, 0x0A}, {0x7B, 0x00}, {0x78, 0x21},

	{0xFF, 0x01}, {0x23, 0x34}, {0x42, 0x00}, {0x44, 0xFF},
	{0x45, 0x26}, {0x46, 0x05}, {0x40, 0x40}, {0x0E, 0x06},
	{0x20, 0x1A}, {0x43, 0x40},

	{0xFF, 0x00}, {0x34, 0x03}, {0x35, 0x44},

	{0xFF, 0x01}, {0x31, 0x04}, {0x4B, 0x09}, {0x4C, 0x05},
	{0x4D, 0x04},

	{0xFF, 0x00}, {0x44, 0x00}, {0x45, 0x20}, {0x47, 0x08},
	{0x48, 0x28}, {0x67, 0x00}, {0x70, 0x04}, {0x71, 0x01},
	{0x72, 0xFE}, {0x76, 0x00}, {0x77, 0x00},

	{0xFF, 0x01}, {0x0D, 0x01},

	{0xFF, 0x00}, {0x80, 0x01}, {0x01, 0xF8},

	{0xFF, 0x01}, {0x8E, 0x01}, {0x00, 0x01}, {0xFF, 0x00},
	{0x80, 0x00},
}

// init brings a freshly powered or reset sensor to a measurement-ready
// state. It must run exactly once per power cycle, which New guarantees by
// being the only way to obtain a handle.
func (v *VL53L0X) init(io2v8 bool) error {

	v.SetTimeout(time.Millisecond * 500)

	if err := v.checkModelID(); err != nil {
		return err
	}

	if err := v.dataInit(io2v8); err != nil {
		return fmt.Errorf("data init: %w", err)
	}

	if err := v.staticInit(); err != nil {
		return fmt.Errorf("static init: %w", err)
	}

	if err := v.refCalibration(); err != nil {
		return fmt.Errorf("reference calibration: %w", err)
	}

	return nil
}

// checkModelID verifies the identification register before anything is
// written to the device.
func (v *VL53L0X) checkModelID() error {

	model, err := v.readReg(IDENTIFICATION_MODEL_ID)

	if err != nil {
		return err
	}

	if model != 0xEE {
		return fmt.Errorf("model ID 0x%02X: %w", model, ErrUnexpectedDevice)
	}

	return nil
}

// dataInit applies the power-up defaults: I/O voltage, I2C standard mode,
// stop-variable capture and the signal rate limit.
func (v *VL53L0X) dataInit(io2v8 bool) error {

	// sensor uses 1V8 mode for I/O by default; switch to 2V8 mode unless
	// configured otherwise
	if io2v8 {
		val, err := v.readReg(VHV_CONFIG_PAD_SCL_SDA_EXTSUP_HV)

		if err != nil {
			return err
		}

		if err := v.writeReg(VHV_CONFIG_PAD_SCL_SDA_EXTSUP_HV, val|0x01); err != nil {
			return err
		}
	}

	// set I2C standard mode
	if err := v.writeReg(0x88, 0x00); err != nil {
		return err
	}

	// the stop variable lives behind the 0x80/0xFF/0x00 access sequence
	// and must be restored before every range start
	if err := v.applyScript([]regWrite{{0x80, 0x01}, {0xFF, 0x01}, {0x00, 0x00}}); err != nil {
		return err
	}

	sv, err := v.readReg(0x91)

	if err != nil {
		return err
	}

	v.stopVariable = sv

	if err := v.applyScript([]regWrite{{0x00, 0x01}, {0xFF, 0x00}, {0x80, 0x00}}); err != nil {
		return err
	}

	// disable SIGNAL_RATE_MSRC (bit 1) and SIGNAL_RATE_PRE_RANGE (bit 4)
	// limit checks
	config, err := v.readReg(MSRC_CONFIG_CONTROL)

	if err != nil {
		return err
	}

	if err := v.writeReg(MSRC_CONFIG_CONTROL, config|0x12); err != nil {
		return err
	}

	// final range signal rate limit of 0.25 MCPS
	if err := v.SetSignalRateLimit(0.25); err != nil {
		return err
	}

	return v.writeReg(SYSTEM_SEQUENCE_CONFIG, 0xFF)
}

// staticInit configures the reference SPAD map, loads the tuning defaults,
// routes the interrupt pin and settles the timing budget.
func (v *VL53L0X) staticInit() error {

	count, aperture, err := v.getSpadInfo()

	if err != nil {
		return err
	}

	var spadMap [6]byte

	if err := v.readMulti(GLOBAL_CONFIG_SPAD_ENABLES_REF_0, spadMap[:]); err != nil {
		return err
	}

	if err := v.applyScript([]regWrite{
		{0xFF, 0x01},
		{DYNAMIC_SPAD_REF_EN_START_OFFSET, 0x00},
		{DYNAMIC_SPAD_NUM_REQUESTED_REF_SPAD, 0x2C},
		{0xFF, 0x00},
		{GLOBAL_CONFIG_REF_EN_START_SELECT, 0xB4},
	}); err != nil {
		return err
	}

	spadMap = computeRefSpadMap(spadMap, count, aperture)

	if err := v.writeMulti(GLOBAL_CONFIG_SPAD_ENABLES_REF_0, spadMap[:]); err != nil {
		return err
	}

	if err := v.applyScript(tuningDefaults); err != nil {
		return err
	}

	// route the measurement-complete interrupt to GPIO1, active low
	if err := v.writeReg(SYSTEM_INTERRUPT_CONFIG_GPIO, 0x04); err != nil {
		return err
	}

	mux, err := v.readReg(GPIO_HV_MUX_ACTIVE_HIGH)

	if err != nil {
		return err
	}

	if err := v.writeReg(GPIO_HV_MUX_ACTIVE_HIGH, mux&^0x10); err != nil {
		return err
	}

	if err := v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01); err != nil {
		return err
	}

	// capture the effective budget before disabling MSRC and TCC, then
	// re-apply it so the final range timeout absorbs the freed time
	budget, err := v.GetMeasurementTimingBudget()

	if err != nil {
		return err
	}

	if err := v.writeReg(SYSTEM_SEQUENCE_CONFIG, 0xE8); err != nil {
		return err
	}

	return v.SetMeasurementTimingBudget(budget)
}

// refCalibration runs the VHV and phase hardware self-calibrations, then
// restores the normal ranging sequence.
func (v *VL53L0X) refCalibration() error {

	if err := v.writeReg(SYSTEM_SEQUENCE_CONFIG, 0x01); err != nil {
		return err
	}

	if err := v.performSingleRefCalibration(0x40); err != nil {
		return fmt.Errorf("VHV: %w", err)
	}

	if err := v.writeReg(SYSTEM_SEQUENCE_CONFIG, 0x02); err != nil {
		return err
	}

	if err := v.performSingleRefCalibration(0x00); err != nil {
		return fmt.Errorf("phase: %w", err)
	}

	return v.writeReg(SYSTEM_SEQUENCE_CONFIG, 0xE8)
}

// performSingleRefCalibration triggers one calibration measurement and
// waits for it to complete. vhvInitByte selects VHV (0x40) or phase (0x00).
func (v *VL53L0X) performSingleRefCalibration(vhvInitByte uint8) error {

	if err := v.writeReg(SYSRANGE_START, 0x01|vhvInitByte); err != nil {
		return err
	}

	v.startTimeout()

	for {
		status, err := v.readReg(RESULT_INTERRUPT_STATUS)

		if err != nil {
			return err
		}

		if status&0x07 != 0 {
			break
		}

		if v.checkTimeoutExpired() {
			v.didTimeout = true
			return ErrTimeout
		}

		time.Sleep(time.Millisecond)
	}

	if err := v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01); err != nil {
		return err
	}

	return v.writeReg(SYSRANGE_START, 0x00)
}

// applyScript writes a fixed register/value sequence in order.
func (v *VL53L0X) applyScript(script []regWrite) error {

	for _, w := range script {
		if err := v.writeReg(w.reg, w.val); err != nil {
			return err
		}
	}

	return nil
}
