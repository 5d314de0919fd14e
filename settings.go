package vl53l0x

import "fmt"

// Fixed per-step overheads in microseconds, from ST's reference API. The
// start overhead differs between the decode and encode directions.
const (
	startOverheadGet = 1910
	startOverheadSet = 1320
	endOverhead      = 960
	msrcOverhead     = 660
	tccOverhead      = 590
	dssOverhead      = 690
	preRangeOverhead = 660
	finalRangeOvhead = 550
)

// seqStepEnables reflects which phases of the ranging sequence are enabled
// in SYSTEM_SEQUENCE_CONFIG.
type seqStepEnables struct {
	tcc        bool
	dss        bool
	msrc       bool
	preRange   bool
	finalRange bool
}

// seqStepTimeouts holds the per-step timeouts in both macro periods and
// microseconds. finalRangeMclks excludes the pre-range portion; the
// register value includes it because the final range step sees elapsed
// pre-range time.
type seqStepTimeouts struct {
	preRangeVcselPclks   uint8
	finalRangeVcselPclks uint8
	msrcDssTccMclks      uint8
	preRangeMclks        uint16
	finalRangeMclks      uint16
	msrcDssTccUs         uint32
	preRangeUs           uint32
	finalRangeUs         uint32
}

// SetMeasurementTimingBudget sets the time allowed for one measurement in
// microseconds. A longer budget allows for more accurate measurements;
// increasing it by a factor of N decreases the standard deviation by a
// factor of sqrt(N). Valid budgets run from 20000 to 4000000 us; values
// outside that range, or too small for the enabled sequence steps, are
// rejected with ErrInvalidTimingBudget and the device is left unchanged.
func (v *VL53L0X) SetMeasurementTimingBudget(budgetUs uint32) error {

	if budgetUs < MinTimingBudget {
		return fmt.Errorf("%d us below minimum %d us: %w",
			budgetUs, MinTimingBudget, ErrInvalidTimingBudget)
	}

	// the microsecond-to-mclks conversion works in 32-bit nanoseconds
	if budgetUs > MaxTimingBudget {
		return fmt.Errorf("%d us above maximum %d us: %w",
			budgetUs, MaxTimingBudget, ErrInvalidTimingBudget)
	}

	enables, err := v.getSequenceStepEnables()

	if err != nil {
		return err
	}

	timeouts, err := v.getSequenceStepTimeouts(enables)

	if err != nil {
		return err
	}

	used := uint32(startOverheadSet + endOverhead)

	if enables.tcc {
		used += timeouts.msrcDssTccUs + tccOverhead
	}

	if enables.dss {
		used += 2*timeouts.msrcDssTccUs + dssOverhead
	} else if enables.msrc {
		used += timeouts.msrcDssTccUs + msrcOverhead
	}

	if enables.preRange {
		used += timeouts.preRangeUs + preRangeOverhead
	}

	if enables.finalRange {
		used += finalRangeOvhead
	}

	// the final range step receives whatever time remains once the other
	// steps and overheads are accounted for
	if used > budgetUs {
		return fmt.Errorf("%d us leaves no room for the final range step: %w",
			budgetUs, ErrInvalidTimingBudget)
	}

	finalRangeUs := budgetUs - used

	finalRangeMclks := timeoutMicrosecondsToMclks(finalRangeUs,
		timeouts.finalRangeVcselPclks)

	// the register value must also cover the pre-range time, expressed in
	// the final range step's macro periods
	if enables.preRange {
		finalRangeMclks += uint32(timeouts.preRangeMclks)
	}

	if err := v.writeReg16Bit(FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI,
		encodeTimeout(finalRangeMclks)); err != nil {
		return err
	}

	v.timingBudgetUs = budgetUs
	return nil
}

// GetMeasurementTimingBudget returns the effective measurement timing
// budget in microseconds, decoded from the per-step timeout registers.
func (v *VL53L0X) GetMeasurementTimingBudget() (uint32, error) {

	enables, err := v.getSequenceStepEnables()

	if err != nil {
		return 0, err
	}

	timeouts, err := v.getSequenceStepTimeouts(enables)

	if err != nil {
		return 0, err
	}

	budget := uint32(startOverheadGet + endOverhead)

	if enables.tcc {
		budget += timeouts.msrcDssTccUs + tccOverhead
	}

	if enables.dss {
		budget += 2 * (timeouts.msrcDssTccUs + dssOverhead)
	} else if enables.msrc {
		budget += timeouts.msrcDssTccUs + msrcOverhead
	}

	if enables.preRange {
		budget += timeouts.preRangeUs + preRangeOverhead
	}

	if enables.finalRange {
		budget += timeouts.finalRangeUs + finalRangeOvhead
	}

	return budget, nil
}

// SetSignalRateLimit sets the minimum return signal rate in mega counts
// per second below which the final range step reports a failure. Valid
// range is 0 to 511.99 MCPS; the register holds Q9.7 fixed point.
func (v *VL53L0X) SetSignalRateLimit(limitMcps float32) error {

	if limitMcps < 0 || limitMcps > 511.99 {
		return fmt.Errorf("signal rate limit %v MCPS out of range", limitMcps)
	}

	return v.writeReg16Bit(FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT,
		uint16(limitMcps*(1<<7)))
}

// GetSignalRateLimit returns the current final range signal rate limit in
// mega counts per second.
func (v *VL53L0X) GetSignalRateLimit() (float32, error) {

	val, err := v.readReg16Bit(FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT)

	if err != nil {
		return 0, err
	}

	return float32(val) / (1 << 7), nil
}

// getSequenceStepEnables decodes SYSTEM_SEQUENCE_CONFIG.
func (v *VL53L0X) getSequenceStepEnables() (seqStepEnables, error) {

	config, err := v.readReg(SYSTEM_SEQUENCE_CONFIG)

	if err != nil {
		return seqStepEnables{}, err
	}

	return seqStepEnables{
		tcc:        (config>>4)&0x01 != 0,
		dss:        (config>>3)&0x01 != 0,
		msrc:       (config>>2)&0x01 != 0,
		preRange:   (config>>6)&0x01 != 0,
		finalRange: (config>>7)&0x01 != 0,
	}, nil
}

// getSequenceStepTimeouts reads the per-step timeout registers and VCSEL
// periods and converts them to microseconds.
func (v *VL53L0X) getSequenceStepTimeouts(enables seqStepEnables) (seqStepTimeouts, error) {

	var t seqStepTimeouts

	preEncoded, err := v.readReg16Bit(PRE_RANGE_CONFIG_TIMEOUT_MACROP_HI)

	if err != nil {
		return t, err
	}

	t.preRangeMclks = decodeTimeout(preEncoded)

	finalEncoded, err := v.readReg16Bit(FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI)

	if err != nil {
		return t, err
	}

	t.finalRangeMclks = decodeTimeout(finalEncoded)

	if enables.preRange {
		t.finalRangeMclks -= t.preRangeMclks
	}

	pclks, err := v.readReg(PRE_RANGE_CONFIG_VCSEL_PERIOD)

	if err != nil {
		return t, err
	}

	t.preRangeVcselPclks = decodeVcselPeriod(pclks)

	msrc, err := v.readReg(MSRC_CONFIG_TIMEOUT_MACROP)

	if err != nil {
		return t, err
	}

	t.msrcDssTccMclks = msrc + 1

	pclks, err = v.readReg(FINAL_RANGE_CONFIG_VCSEL_PERIOD)

	if err != nil {
		return t, err
	}

	t.finalRangeVcselPclks = decodeVcselPeriod(pclks)

	t.msrcDssTccUs = timeoutMclksToMicroseconds(uint32(t.msrcDssTccMclks),
		t.preRangeVcselPclks)
	t.preRangeUs = timeoutMclksToMicroseconds(uint32(t.preRangeMclks),
		t.preRangeVcselPclks)
	t.finalRangeUs = timeoutMclksToMicroseconds(uint32(t.finalRangeMclks),
		t.finalRangeVcselPclks)

	return t, nil
}

// decodeTimeout decodes a sequence step timeout register value to macro
// periods: (LSByte << MSByte) + 1
func decodeTimeout(regVal uint16) uint16 {
	return uint16((uint32(regVal&0x00FF)<<(regVal>>8))&0xFFFF) + 1
}

// encodeTimeout encodes a timeout in macro periods into the register's
// mantissa/exponent form: (MSByte << 8) | LSByte
func encodeTimeout(timeoutMclks uint32) uint16 {

	if timeoutMclks == 0 {
		return 0
	}

	lsByte := timeoutMclks - 1
	var msByte uint16

	for lsByte&0xFFFFFF00 != 0 {
		lsByte >>= 1
		msByte++
	}

	return (msByte << 8) | uint16(lsByte&0xFF)
}

// calcMacroPeriodNs calculates the macro period in nanoseconds for a VCSEL
// period given in PCLKs. The PLL period is 1655 ps.
func calcMacroPeriodNs(vcselPeriodPclks uint8) uint32 {
	return ((2304 * uint32(vcselPeriodPclks) * 1655) + 500) / 1000
}

// timeoutMclksToMicroseconds converts a sequence step timeout from macro
// periods to microseconds.
func timeoutMclksToMicroseconds(timeoutMclks uint32, vcselPeriodPclks uint8) uint32 {
	macroPeriodNs := calcMacroPeriodNs(vcselPeriodPclks)
	return ((timeoutMclks * macroPeriodNs) + (macroPeriodNs / 2)) / 1000
}

// timeoutMicrosecondsToMclks converts a sequence step timeout from
// microseconds to macro periods.
func timeoutMicrosecondsToMclks(timeoutUs uint32, vcselPeriodPclks uint8) uint32 {
	macroPeriodNs := calcMacroPeriodNs(vcselPeriodPclks)
	return ((timeoutUs * 1000) + (macroPeriodNs / 2)) / macroPeriodNs
}

// decodeVcselPeriod decodes the VCSEL period register value to PCLKs.
func decodeVcselPeriod(regVal uint8) uint8 {
	return (regVal + 1) << 1
}

// encodeVcselPeriod encodes a VCSEL period in PCLKs to register form.
func encodeVcselPeriod(periodPclks uint8) uint8 {
	return (periodPclks >> 1) - 1
}
