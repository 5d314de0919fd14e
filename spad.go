package vl53l0x

import "time"

// firstApertureSpad is the index of the first aperture SPAD in the
// reference map; aperture calibration data must not enable earlier SPADs.
const firstApertureSpad = 12

// getSpadInfo reads the factory-stored reference SPAD count and type using
// the strobed handshake from ST's reference API.
func (v *VL53L0X) getSpadInfo() (count uint8, typeIsAperture bool, err error) {

	if err = v.applyScript([]regWrite{
		{0x80, 0x01}, {0xFF, 0x01}, {0x00, 0x00}, {0xFF, 0x06},
	}); err != nil {
		return 0, false, err
	}

	tmp83, err := v.readReg(0x83)

	if err != nil {
		return 0, false, err
	}

	if err = v.writeReg(0x83, tmp83|0x04); err != nil {
		return 0, false, err
	}

	if err = v.applyScript([]regWrite{
		{0xFF, 0x07}, {0x81, 0x01}, {0x80, 0x01},
		{0x94, 0x6B}, {0x83, 0x00},
	}); err != nil {
		return 0, false, err
	}

	// wait for the device to latch the requested info
	v.startTimeout()

	for {
		strobe, err := v.readReg(0x83)

		if err != nil {
			return 0, false, err
		}

		if strobe != 0x00 {
			break
		}

		if v.checkTimeoutExpired() {
			v.didTimeout = true
			return 0, false, ErrTimeout
		}

		time.Sleep(time.Millisecond)
	}

	if err = v.writeReg(0x83, 0x01); err != nil {
		return 0, false, err
	}

	tmp, err := v.readReg(0x92)

	if err != nil {
		return 0, false, err
	}

	count = tmp & 0x7F
	typeIsAperture = (tmp>>7)&0x01 != 0

	if err = v.writeReg(0x81, 0x00); err != nil {
		return 0, false, err
	}

	if err = v.writeReg(0xFF, 0x06); err != nil {
		return 0, false, err
	}

	tmp83, err = v.readReg(0x83)

	if err != nil {
		return 0, false, err
	}

	if err = v.writeReg(0x83, tmp83&^0x04); err != nil {
		return 0, false, err
	}

	if err = v.applyScript([]regWrite{
		{0xFF, 0x01}, {0x00, 0x01}, {0xFF, 0x00}, {0x80, 0x00},
	}); err != nil {
		return 0, false, err
	}

	return count, typeIsAperture, nil
}

// computeRefSpadMap trims the factory "good SPAD" map down to the
// reference SPADs the sensor should actually enable: the first spadCount
// good SPADs, skipping the non-aperture region entirely when the factory
// calibration was done with aperture SPADs.
func computeRefSpadMap(goodMap [6]byte, spadCount uint8, typeIsAperture bool) [6]byte {

	var first int

	if typeIsAperture {
		first = firstApertureSpad
	}

	var enabled uint8

	for i := 0; i < 48; i++ {
		if i < first || enabled == spadCount {
			// this bit is lower than the first one that should be
			// enabled, or enough bits have been enabled already
			goodMap[i/8] &^= 1 << (i % 8)
		} else if (goodMap[i/8]>>(i%8))&0x01 != 0 {
			enabled++
		}
	}

	return goodMap
}
