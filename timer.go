package vl53l0x

import "time"

// SetTimeout sets the deadline for blocking polls. Zero disables the
// deadline so blocking reads spin until the sensor responds; init sets a
// 500ms default.
func (v *VL53L0X) SetTimeout(timeout time.Duration) {
	v.ioTimeout = timeout
}

// TimeoutOccurred reports whether a timeout has occurred
func (v *VL53L0X) TimeoutOccurred() bool {
	tmp := v.didTimeout
	v.didTimeout = false
	return tmp
}

// startTimeout starts the timeout counter
func (v *VL53L0X) startTimeout() {
	v.timeoutStart = time.Now()
}

// checkTimeoutExpired checks if timeout has expired
func (v *VL53L0X) checkTimeoutExpired() bool {
	return (v.ioTimeout > 0) && (time.Since(v.timeoutStart) > v.ioTimeout)
}
