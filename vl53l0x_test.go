package vl53l0x

import (
	"errors"
	"io"
	"log"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

const testAddr uint16 = 0x29

// wOp is a register write expectation.
func wOp(reg, val uint8) i2ctest.IO {
	return i2ctest.IO{Addr: testAddr, W: []byte{reg, val}}
}

// rOp is a register read expectation returning vals.
func rOp(reg uint8, vals ...byte) i2ctest.IO {
	return i2ctest.IO{Addr: testAddr, W: []byte{reg}, R: vals}
}

// newTestDev returns a handle in the state New leaves it, without
// replaying the whole init sequence.
func newTestDev(bus Bus) *VL53L0X {
	return &VL53L0X{
		bus:          bus,
		addr:         Address,
		stopVariable: 0x3C,
		mode:         modeIdle,
		log:          log.New(io.Discard, "", log.LstdFlags),
	}
}

// budgetReadOps is the register traffic of one sequence-step decode pass:
// sequence config, pre and final range timeouts, VCSEL periods and the
// msrc timeout. finalHi/finalLo is the current encoded final range
// timeout.
func budgetReadOps(seq uint8, finalHi, finalLo byte) []i2ctest.IO {
	return []i2ctest.IO{
		rOp(SYSTEM_SEQUENCE_CONFIG, seq),
		rOp(PRE_RANGE_CONFIG_TIMEOUT_MACROP_HI, 0x00, 0x96),
		rOp(FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI, finalHi, finalLo),
		rOp(PRE_RANGE_CONFIG_VCSEL_PERIOD, 0x06),
		rOp(MSRC_CONFIG_TIMEOUT_MACROP, 0x1D),
		rOp(FINAL_RANGE_CONFIG_VCSEL_PERIOD, 0x04),
	}
}

// initOps is the exact register traffic of a successful New over a device
// with typical power-on defaults: pre-range timeout 0x0096 (151 mclks),
// final range timeout 0x0285 (533 mclks), VCSEL periods 14/10 pclks, 44
// non-aperture reference SPADs, stop variable 0x3C.
func initOps() []i2ctest.IO {
	ops := []i2ctest.IO{
		rOp(IDENTIFICATION_MODEL_ID, 0xEE),

		// data init
		rOp(VHV_CONFIG_PAD_SCL_SDA_EXTSUP_HV, 0x00),
		wOp(VHV_CONFIG_PAD_SCL_SDA_EXTSUP_HV, 0x01),
		wOp(0x88, 0x00),
		wOp(0x80, 0x01), wOp(0xFF, 0x01), wOp(0x00, 0x00),
		rOp(0x91, 0x3C),
		wOp(0x00, 0x01), wOp(0xFF, 0x00), wOp(0x80, 0x00),
		rOp(MSRC_CONFIG_CONTROL, 0x00), wOp(MSRC_CONFIG_CONTROL, 0x12),
		{Addr: testAddr, W: []byte{FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT, 0x00, 0x20}},
		wOp(SYSTEM_SEQUENCE_CONFIG, 0xFF),

		// SPAD info handshake
		wOp(0x80, 0x01), wOp(0xFF, 0x01), wOp(0x00, 0x00), wOp(0xFF, 0x06),
		rOp(0x83, 0x00), wOp(0x83, 0x04),
		wOp(0xFF, 0x07), wOp(0x81, 0x01), wOp(0x80, 0x01),
		wOp(0x94, 0x6B), wOp(0x83, 0x00),
		rOp(0x83, 0x01),
		wOp(0x83, 0x01),
		rOp(0x92, 0x2C),
		wOp(0x81, 0x00), wOp(0xFF, 0x06),
		rOp(0x83, 0x04), wOp(0x83, 0x00),
		wOp(0xFF, 0x01), wOp(0x00, 0x01), wOp(0xFF, 0x00), wOp(0x80, 0x00),

		// reference SPAD map
		rOp(GLOBAL_CONFIG_SPAD_ENABLES_REF_0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF),
		wOp(0xFF, 0x01),
		wOp(DYNAMIC_SPAD_REF_EN_START_OFFSET, 0x00),
		wOp(DYNAMIC_SPAD_NUM_REQUESTED_REF_SPAD, 0x2C),
		wOp(0xFF, 0x00),
		wOp(GLOBAL_CONFIG_REF_EN_START_SELECT, 0xB4),
		{Addr: testAddr, W: []byte{GLOBAL_CONFIG_SPAD_ENABLES_REF_0,
			0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}

	for _, t := range tuningDefaults {
		ops = append(ops, wOp(t.reg, t.val))
	}

	ops = append(ops,
		wOp(SYSTEM_INTERRUPT_CONFIG_GPIO, 0x04),
		rOp(GPIO_HV_MUX_ACTIVE_HIGH, 0x10), wOp(GPIO_HV_MUX_ACTIVE_HIGH, 0x00),
		wOp(SYSTEM_INTERRUPT_CLEAR, 0x01),
	)

	// budget capture under the full sequence, then re-apply under 0xE8
	ops = append(ops, budgetReadOps(0xFF, 0x02, 0x85)...)
	ops = append(ops, wOp(SYSTEM_SEQUENCE_CONFIG, 0xE8))
	ops = append(ops, budgetReadOps(0xE8, 0x02, 0x85)...)
	ops = append(ops, i2ctest.IO{Addr: testAddr,
		W: []byte{FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI, 0x02, 0x9C}})

	// VHV then phase reference calibration
	ops = append(ops,
		wOp(SYSTEM_SEQUENCE_CONFIG, 0x01),
		wOp(SYSRANGE_START, 0x41),
		rOp(RESULT_INTERRUPT_STATUS, 0x07),
		wOp(SYSTEM_INTERRUPT_CLEAR, 0x01),
		wOp(SYSRANGE_START, 0x00),
		wOp(SYSTEM_SEQUENCE_CONFIG, 0x02),
		wOp(SYSRANGE_START, 0x01),
		rOp(RESULT_INTERRUPT_STATUS, 0x07),
		wOp(SYSTEM_INTERRUPT_CLEAR, 0x01),
		wOp(SYSRANGE_START, 0x00),
		wOp(SYSTEM_SEQUENCE_CONFIG, 0xE8),
	)

	return ops
}

func TestNew(t *testing.T) {
	pb := &i2ctest.Playback{Ops: initOps(), DontPanic: true}

	v, err := New(pb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if v.mode != modeIdle {
		t.Errorf("mode after New = %d, want idle", v.mode)
	}
	if v.stopVariable != 0x3C {
		t.Errorf("stop variable = 0x%02X, want 0x3C", v.stopVariable)
	}
	// decoded power-on budget for these register defaults
	if v.timingBudgetUs != 33606 {
		t.Errorf("timing budget = %d us, want 33606", v.timingBudgetUs)
	}

	if err := pb.Close(); err != nil {
		t.Errorf("playback: %v", err)
	}
}

func TestNewUnexpectedDevice(t *testing.T) {
	// the identity check is the very first transaction; nothing may be
	// written after it fails
	pb := &i2ctest.Playback{
		Ops:       []i2ctest.IO{rOp(IDENTIFICATION_MODEL_ID, 0xAA)},
		DontPanic: true,
	}

	_, err := New(pb, nil)
	if !errors.Is(err, ErrUnexpectedDevice) {
		t.Fatalf("New = %v, want ErrUnexpectedDevice", err)
	}

	if err := pb.Close(); err != nil {
		t.Errorf("playback: %v", err)
	}
}

func TestDefaultBudgetAfterNew(t *testing.T) {
	ops := initOps()
	// a fresh decode reads back the re-encoded final range timeout
	ops = append(ops, budgetReadOps(0xE8, 0x02, 0x9C)...)

	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}

	v, err := New(pb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	budget, err := v.GetMeasurementTimingBudget()
	if err != nil {
		t.Fatalf("GetMeasurementTimingBudget: %v", err)
	}
	if budget != 34896 {
		t.Errorf("default budget = %d us, want 34896", budget)
	}

	if err := pb.Close(); err != nil {
		t.Errorf("playback: %v", err)
	}
}

func TestSetAddress(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			wOp(I2C_SLAVE_DEVICE_ADDRESS, 0x39),
			{Addr: 0x39, W: []byte{IDENTIFICATION_MODEL_ID}, R: []byte{0xEE}},
		},
		DontPanic: true,
	}

	v := newTestDev(pb)

	if err := v.SetAddress(0x39); err != nil {
		t.Fatalf("SetAddress: %v", err)
	}
	if v.addr != 0x39 {
		t.Errorf("addr = 0x%02X, want 0x39", v.addr)
	}

	// every later transaction must target the new address
	id, err := v.WhoAmI()
	if err != nil {
		t.Fatalf("WhoAmI: %v", err)
	}
	if id != 0xEE {
		t.Errorf("WhoAmI = 0x%02X, want 0xEE", id)
	}

	if err := pb.Close(); err != nil {
		t.Errorf("playback: %v", err)
	}
}

func TestEndToEndSingleShot(t *testing.T) {
	ops := initOps()

	// SetMeasurementTimingBudget(20000)
	ops = append(ops, budgetReadOps(0xE8, 0x02, 0x9C)...)
	ops = append(ops, i2ctest.IO{Addr: testAddr,
		W: []byte{FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI, 0x01, 0x85}})

	// single shot: preamble, start, start-bit wait, completion poll,
	// result readout, interrupt clear
	ops = append(ops,
		wOp(0x80, 0x01), wOp(0xFF, 0x01), wOp(0x00, 0x00),
		wOp(0x91, 0x3C),
		wOp(0x00, 0x01), wOp(0xFF, 0x00), wOp(0x80, 0x00),
		wOp(SYSRANGE_START, 0x01),
		rOp(SYSRANGE_START, 0x01),
		rOp(SYSRANGE_START, 0x00),
		rOp(RESULT_INTERRUPT_STATUS, 0x00),
		rOp(RESULT_INTERRUPT_STATUS, 0x07),
		rOp(RESULT_RANGE_MM, 0x01, 0x4A),
		wOp(SYSTEM_INTERRUPT_CLEAR, 0x01),
	)

	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}

	v, err := New(pb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := v.SetMeasurementTimingBudget(20000); err != nil {
		t.Fatalf("SetMeasurementTimingBudget: %v", err)
	}

	mm, err := v.ReadRangeSingleMillimeters()
	if err != nil {
		t.Fatalf("ReadRangeSingleMillimeters: %v", err)
	}
	// the raw result register pair, no scaling
	if mm != 330 {
		t.Errorf("range = %d mm, want 330", mm)
	}
	if v.mode != modeIdle {
		t.Errorf("mode after single shot = %d, want idle", v.mode)
	}

	if err := pb.Close(); err != nil {
		t.Errorf("playback: %v", err)
	}
}
