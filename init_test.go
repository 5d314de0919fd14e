package vl53l0x

import (
	"errors"
	"testing"
	"time"
)

func TestRefCalibrationTimeout(t *testing.T) {
	v := newTestDev(stuckBus{})
	v.SetTimeout(2 * time.Millisecond)

	err := v.performSingleRefCalibration(0x40)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("performSingleRefCalibration = %v, want ErrTimeout", err)
	}
	if !v.TimeoutOccurred() {
		t.Error("TimeoutOccurred = false after deadline expiry")
	}
}
