package vl53l0x

// Register map of the VL53L0X. The offsets are a hardware contract fixed by
// the chip; ST documents them only through the reference API sources. The
// unnamed registers written by the tuning-defaults table in init.go have no
// published names and are addressed numerically there.
const (
	SYSRANGE_START uint8 = 0x00

	SYSTEM_SEQUENCE_CONFIG         uint8 = 0x01
	SYSTEM_INTERMEASUREMENT_PERIOD uint8 = 0x04
	SYSTEM_INTERRUPT_CONFIG_GPIO   uint8 = 0x0A
	SYSTEM_INTERRUPT_CLEAR         uint8 = 0x0B

	RESULT_INTERRUPT_STATUS uint8 = 0x13
	RESULT_RANGE_STATUS     uint8 = 0x14
	// Range in millimeters is the 16-bit field at RESULT_RANGE_STATUS + 10
	RESULT_RANGE_MM uint8 = 0x1E

	FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT uint8 = 0x44
	MSRC_CONFIG_TIMEOUT_MACROP                  uint8 = 0x46
	DYNAMIC_SPAD_NUM_REQUESTED_REF_SPAD         uint8 = 0x4E
	DYNAMIC_SPAD_REF_EN_START_OFFSET            uint8 = 0x4F

	PRE_RANGE_CONFIG_VCSEL_PERIOD      uint8 = 0x50
	PRE_RANGE_CONFIG_TIMEOUT_MACROP_HI uint8 = 0x51

	MSRC_CONFIG_CONTROL uint8 = 0x60

	FINAL_RANGE_CONFIG_VCSEL_PERIOD      uint8 = 0x70
	FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI uint8 = 0x71

	GPIO_HV_MUX_ACTIVE_HIGH           uint8 = 0x84
	VHV_CONFIG_PAD_SCL_SDA_EXTSUP_HV  uint8 = 0x89
	I2C_SLAVE_DEVICE_ADDRESS          uint8 = 0x8A
	GLOBAL_CONFIG_SPAD_ENABLES_REF_0  uint8 = 0xB0
	GLOBAL_CONFIG_REF_EN_START_SELECT uint8 = 0xB6

	IDENTIFICATION_MODEL_ID uint8 = 0xC0

	OSC_CALIBRATE_VAL uint8 = 0xF8
)

// writeReg writes an 8 bit value to the register
func (v *VL53L0X) writeReg(reg uint8, value uint8) error {

	if err := v.bus.Tx(uint16(v.addr), []byte{reg, value}, nil); err != nil {
		return wrapBus("write", reg, err)
	}

	return nil
}

// writeReg16Bit writes a 16 bit value to the register, MSB first
func (v *VL53L0X) writeReg16Bit(reg uint8, value uint16) error {

	buf := []byte{reg, byte(value >> 8), byte(value)}

	if err := v.bus.Tx(uint16(v.addr), buf, nil); err != nil {
		return wrapBus("write", reg, err)
	}

	return nil
}

// writeReg32Bit writes a 32 bit value to the register, MSB first
func (v *VL53L0X) writeReg32Bit(reg uint8, value uint32) error {

	buf := []byte{
		reg,
		byte(value >> 24), byte(value >> 16),
		byte(value >> 8), byte(value),
	}

	if err := v.bus.Tx(uint16(v.addr), buf, nil); err != nil {
		return wrapBus("write", reg, err)
	}

	return nil
}

// writeMulti writes a block of bytes starting at the register
func (v *VL53L0X) writeMulti(reg uint8, values []byte) error {

	buf := make([]byte, 0, len(values)+1)
	buf = append(buf, reg)
	buf = append(buf, values...)

	if err := v.bus.Tx(uint16(v.addr), buf, nil); err != nil {
		return wrapBus("write", reg, err)
	}

	return nil
}

// readReg reads an 8-bit value from the register
func (v *VL53L0X) readReg(reg uint8) (uint8, error) {

	var buf [1]byte

	if err := v.bus.Tx(uint16(v.addr), []byte{reg}, buf[:]); err != nil {
		return 0, wrapBus("read", reg, err)
	}

	return buf[0], nil
}

// readReg16Bit reads a 16-bit value from the register, MSB first
func (v *VL53L0X) readReg16Bit(reg uint8) (uint16, error) {

	var buf [2]byte

	if err := v.bus.Tx(uint16(v.addr), []byte{reg}, buf[:]); err != nil {
		return 0, wrapBus("read", reg, err)
	}

	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// readMulti reads a block of bytes starting at the register
func (v *VL53L0X) readMulti(reg uint8, buf []byte) error {

	if err := v.bus.Tx(uint16(v.addr), []byte{reg}, buf); err != nil {
		return wrapBus("read", reg, err)
	}

	return nil
}
