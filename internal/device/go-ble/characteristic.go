package goble

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
)

const (
	// DefaultBLEWriteChunkSize is the maximum number of bytes to write in a single BLE operation.
	// BLE 4.0/4.1 spec defines ATT_MTU of 23 bytes (20 bytes payload after ATT header overhead).
	// Keeping chunks at 20 bytes ensures compatibility with all BLE versions.
	DefaultBLEWriteChunkSize = 20

	// DefaultBLEWriteDelay is the delay between consecutive write chunks.
	// This prevents overwhelming the BLE peripheral's receive buffer and ensures reliable delivery.
	DefaultBLEWriteDelay = 10 * time.Millisecond

	// DefaultReadTimeout is the default timeout for characteristic read operations.
	// This prevents indefinite blocking if a device becomes unresponsive during a read.
	DefaultReadTimeout = 5 * time.Second
)

// BLECharacteristic wraps a discovered GATT characteristic with read/write/subscribe
// operations routed through the parent connection's client.
type BLECharacteristic struct {
	uuid       string
	properties device.Properties
	BLEChar    *ble.Characteristic
	connection *BLEConnection // reference to parent connection for I/O

	mu         sync.Mutex
	subscribed bool
}

func NewCharacteristic(c *ble.Characteristic, conn *BLEConnection) *BLECharacteristic {
	return &BLECharacteristic{
		uuid:       device.NormalizeUUID(c.UUID.String()),
		BLEChar:    c,
		properties: convertProperties(c.Property),
		connection: conn,
	}
}

// convertProperties maps ble.Property bit flags onto the device.Properties bitmask
func convertProperties(p ble.Property) device.Properties {
	var out device.Properties
	if p&ble.CharBroadcast != 0 {
		out |= device.PropertyBroadcast
	}
	if p&ble.CharRead != 0 {
		out |= device.PropertyRead
	}
	if p&ble.CharWriteNR != 0 {
		out |= device.PropertyWriteWithoutResponse
	}
	if p&ble.CharWrite != 0 {
		out |= device.PropertyWrite
	}
	if p&ble.CharNotify != 0 {
		out |= device.PropertyNotify
	}
	if p&ble.CharIndicate != 0 {
		out |= device.PropertyIndicate
	}
	if p&ble.CharSignedWrite != 0 {
		out |= device.PropertyAuthenticatedSignedWrites
	}
	if p&ble.CharExtended != 0 {
		out |= device.PropertyExtendedProperties
	}
	return out
}

func (c *BLECharacteristic) UUID() string {
	return c.uuid
}

func (c *BLECharacteristic) GetProperties() device.Properties {
	return c.properties
}

// client snapshots the parent connection's live client under its lock.
func (c *BLECharacteristic) client() (ble.Client, error) {
	if c.connection == nil {
		return nil, fmt.Errorf("no connection available for characteristic %s", c.uuid)
	}
	if c.BLEChar == nil {
		return nil, fmt.Errorf("characteristic %s not initialized", c.uuid)
	}

	c.connection.connMutex.RLock()
	defer c.connection.connMutex.RUnlock()
	if !c.connection.isConnectedInternal() {
		return nil, device.ErrNotConnected
	}
	return c.connection.client, nil
}

// Read reads the current value of the characteristic from the device.
// A zero timeout falls back to DefaultReadTimeout to prevent indefinite blocking
// if the device becomes unresponsive.
func (c *BLECharacteristic) Read(timeout time.Duration) ([]byte, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	type readResult struct {
		data []byte
		err  error
	}
	resultCh := make(chan readResult, 1)

	go func() {
		data, err := client.ReadCharacteristic(c.BLEChar)
		resultCh <- readResult{data: data, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return nil, fmt.Errorf("failed to read characteristic %s: %w", c.uuid, NormalizeError(result.err))
		}
		return result.data, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("reading characteristic %s after %v: %w", c.uuid, timeout, device.ErrTimeout)
	}
}

// Write sends data to the characteristic, chunked to the BLE payload limit.
// Writes are serialized through the parent connection's write mutex so frames
// from different callers never interleave on the wire.
func (c *BLECharacteristic) Write(data []byte, withResponse bool, timeout time.Duration) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	c.connection.writeMutex.Lock()
	defer c.connection.writeMutex.Unlock()

	errCh := make(chan error, 1)
	go func() {
		remaining := data
		for len(remaining) > 0 {
			n := len(remaining)
			if n > DefaultBLEWriteChunkSize {
				n = DefaultBLEWriteChunkSize
			}
			if err := client.WriteCharacteristic(c.BLEChar, remaining[:n], !withResponse); err != nil {
				errCh <- err
				return
			}
			remaining = remaining[n:]
			if len(remaining) > 0 {
				time.Sleep(DefaultBLEWriteDelay)
			}
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to write characteristic %s: %w", c.uuid, NormalizeError(err))
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("writing characteristic %s after %v: %w", c.uuid, timeout, device.ErrTimeout)
	}
}

// Subscribe registers a callback for notifications on this characteristic.
// The data slice passed to the callback is only valid for the duration of the
// call and must be copied if retained.
func (c *BLECharacteristic) Subscribe(callback func(data []byte)) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribed {
		return fmt.Errorf("characteristic %s already subscribed", c.uuid)
	}

	if err := client.Subscribe(c.BLEChar, false, callback); err != nil {
		return fmt.Errorf("failed to subscribe to characteristic %s: %w", c.uuid, NormalizeError(err))
	}
	c.subscribed = true
	return nil
}

// Unsubscribe cancels an active notification subscription. Both notify and
// indicate modes are attempted; an error is returned only if both fail.
func (c *BLECharacteristic) Unsubscribe() error {
	client, err := c.client()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subscribed {
		return nil
	}
	c.subscribed = false

	err1 := NormalizeError(client.Unsubscribe(c.BLEChar, false)) // notify
	err2 := NormalizeError(client.Unsubscribe(c.BLEChar, true))  // indicate
	if err1 != nil && err2 != nil {
		return fmt.Errorf("unsubscribe %s: notify=%v, indicate=%v", c.uuid, err1, err2)
	}
	return nil
}
