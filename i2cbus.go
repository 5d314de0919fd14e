package vl53l0x

import (
	"fmt"

	"github.com/swdee/go-i2c"
)

// I2CBus adapts a github.com/swdee/go-i2c connection to the Bus interface
// for use on Linux /dev/i2c-* buses. go-i2c binds a connection to a single
// device address, so the adapter reopens the connection whenever a
// transaction targets a different address, which is what makes SetAddress
// work transparently.
type I2CBus struct {
	dev  string
	conn *i2c.Options
}

// NewI2CBus returns a Bus over the given I2C device path, e.g.
// "/dev/i2c-0". The connection is opened lazily on first use.
func NewI2CBus(dev string) *I2CBus {
	return &I2CBus{dev: dev}
}

// Tx implements Bus.
func (b *I2CBus) Tx(addr uint16, w, r []byte) error {

	if b.conn == nil || uint8(addr) != b.conn.GetAddr() {
		conn, err := i2c.New(uint8(addr), b.dev)

		if err != nil {
			return fmt.Errorf("open %s at 0x%02X: %w", b.dev, addr, err)
		}

		if b.conn != nil {
			b.conn.Close()
		}

		b.conn = conn
	}

	if len(w) > 0 {
		if _, err := b.conn.WriteBytes(w); err != nil {
			return err
		}
	}

	if len(r) > 0 {
		n, err := b.conn.ReadBytes(r)

		if err != nil {
			return err
		}

		if n < len(r) {
			return fmt.Errorf("short read: %d of %d bytes", n, len(r))
		}
	}

	return nil
}

// Close releases the underlying I2C connection.
func (b *I2CBus) Close() error {

	if b.conn == nil {
		return nil
	}

	err := b.conn.Close()
	b.conn = nil
	return err
}
