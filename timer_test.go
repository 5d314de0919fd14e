package vl53l0x

import (
	"testing"
	"time"
)

func TestTimeout(t *testing.T) {
	v := newTestDev(nil)

	v.SetTimeout(time.Millisecond)
	v.startTimeout()
	time.Sleep(5 * time.Millisecond)

	if !v.checkTimeoutExpired() {
		t.Error("deadline not reported as expired")
	}

	// zero disables the deadline entirely
	v.SetTimeout(0)
	if v.checkTimeoutExpired() {
		t.Error("disabled deadline reported as expired")
	}
}

func TestTimeoutOccurred(t *testing.T) {
	v := newTestDev(nil)

	if v.TimeoutOccurred() {
		t.Error("fresh handle reports a timeout")
	}

	v.didTimeout = true

	if !v.TimeoutOccurred() {
		t.Error("timeout flag not reported")
	}
	// reading the flag clears it
	if v.TimeoutOccurred() {
		t.Error("timeout flag not cleared after read")
	}
}
