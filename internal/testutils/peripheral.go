package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
)

// FakeWrite is one recorded characteristic write.
type FakeWrite struct {
	Data         []byte
	WithResponse bool
}

// FakeCharacteristic is a scripted device.Characteristic. Writes are
// recorded; reads serve a fixed value; Subscribe captures the callback so
// tests can push notifications. BlockNextWrite turns one Write into a
// rendezvous for in-flight concurrency tests.
type FakeCharacteristic struct {
	mu         sync.Mutex
	uuid       string
	props      device.Properties
	value      []byte
	readErr    error
	writeErr   error
	writes     []FakeWrite
	writeGate  chan struct{}
	inWrite    chan struct{}
	notifyFunc func([]byte)
}

func (c *FakeCharacteristic) UUID() string                    { return c.uuid }
func (c *FakeCharacteristic) GetProperties() device.Properties { return c.props }

func (c *FakeCharacteristic) Read(timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	return append([]byte(nil), c.value...), nil
}

func (c *FakeCharacteristic) Write(data []byte, withResponse bool, timeout time.Duration) error {
	c.mu.Lock()
	gate := c.writeGate
	entered := c.inWrite
	err := c.writeErr
	c.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, FakeWrite{
		Data:         append([]byte(nil), data...),
		WithResponse: withResponse,
	})
	return nil
}

func (c *FakeCharacteristic) Subscribe(callback func(data []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.props.CanNotify() && !c.props.CanIndicate() {
		return device.ErrUnsupported
	}
	c.notifyFunc = callback
	return nil
}

func (c *FakeCharacteristic) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyFunc = nil
	return nil
}

// Notify pushes a notification to the subscriber, if any.
func (c *FakeCharacteristic) Notify(data []byte) {
	c.mu.Lock()
	cb := c.notifyFunc
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// Writes returns a snapshot of recorded writes.
func (c *FakeCharacteristic) Writes() []FakeWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FakeWrite(nil), c.writes...)
}

// LastWrite returns the most recent write, or nil when none happened.
func (c *FakeCharacteristic) LastWrite() *FakeWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	w := c.writes[len(c.writes)-1]
	return &w
}

// SetValue replaces the bytes served by Read.
func (c *FakeCharacteristic) SetValue(value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = append([]byte(nil), value...)
}

// FailWrites makes every subsequent Write return err (nil re-enables writes).
func (c *FakeCharacteristic) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// BlockWrites makes Write block until ReleaseWrite is called, once per write.
// The returned channel receives one element each time a writer enters Write,
// letting tests observe in-flight operations deterministically.
func (c *FakeCharacteristic) BlockWrites() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeGate = make(chan struct{})
	c.inWrite = make(chan struct{}, 16)
	return c.inWrite
}

// ReleaseWrite lets one blocked write proceed.
func (c *FakeCharacteristic) ReleaseWrite() {
	c.mu.Lock()
	gate := c.writeGate
	c.mu.Unlock()
	if gate != nil {
		gate <- struct{}{}
	}
}

// UnblockWrites removes the write gate and releases every waiter.
func (c *FakeCharacteristic) UnblockWrites() {
	c.mu.Lock()
	gate := c.writeGate
	c.writeGate = nil
	c.inWrite = nil
	c.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// FakeService is a scripted device.Service.
type FakeService struct {
	uuid  string
	chars []*FakeCharacteristic
}

func (s *FakeService) UUID() string { return s.uuid }

func (s *FakeService) GetCharacteristics() []device.Characteristic {
	out := make([]device.Characteristic, 0, len(s.chars))
	for _, c := range s.chars {
		out = append(out, c)
	}
	return out
}

// FakeConnection is a scripted device.Connection.
type FakeConnection struct {
	services []*FakeService
}

func (c *FakeConnection) Services() []device.Service {
	out := make([]device.Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	return out
}

func (c *FakeConnection) GetService(uuid string) (device.Service, error) {
	n := device.NormalizeUUID(uuid)
	for _, s := range c.services {
		if s.uuid == n {
			return s, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
}

func (c *FakeConnection) GetCharacteristic(service, uuid string) (device.Characteristic, error) {
	svc, err := c.GetService(service)
	if err != nil {
		return nil, err
	}
	n := device.NormalizeUUID(uuid)
	for _, ch := range svc.(*FakeService).chars {
		if ch.uuid == n {
			return ch, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{service, uuid}}
}

// Characteristic returns the fake characteristic with the given UUID from any
// service, for test inspection.
func (c *FakeConnection) Characteristic(uuid string) *FakeCharacteristic {
	n := device.NormalizeUUID(uuid)
	for _, s := range c.services {
		for _, ch := range s.chars {
			if ch.uuid == n {
				return ch
			}
		}
	}
	return nil
}

// FakePeripheral is a scripted device.Device. Connect consumes a list of
// scripted attempt errors, so retry behavior is testable without a radio.
type FakePeripheral struct {
	mu sync.Mutex

	name        string
	address     string
	rssi        int
	connectable bool
	services    []string
	manufData   []byte

	conn        *FakeConnection
	connectErrs []error
	attempts    int
	connected   bool
}

func (p *FakePeripheral) ID() string      { return p.address }
func (p *FakePeripheral) Name() string    { return p.name }
func (p *FakePeripheral) Address() string { return p.address }
func (p *FakePeripheral) RSSI() int       { return p.rssi }

func (p *FakePeripheral) IsConnectable() bool { return p.connectable }

func (p *FakePeripheral) AdvertisedServices() []string {
	return append([]string(nil), p.services...)
}

func (p *FakePeripheral) ManufacturerData() []byte { return p.manufData }

// Connect consumes the next scripted attempt error; with none left it
// succeeds.
func (p *FakePeripheral) Connect(ctx context.Context, opts *device.ConnectOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return device.ErrAlreadyConnected
	}

	p.attempts++
	if len(p.connectErrs) > 0 {
		err := p.connectErrs[0]
		p.connectErrs = p.connectErrs[1:]
		if err != nil {
			return err
		}
	}
	p.connected = true
	return nil
}

// ConnectAttempts reports how many times Connect ran.
func (p *FakePeripheral) ConnectAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func (p *FakePeripheral) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *FakePeripheral) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *FakePeripheral) Update(adv device.Advertisement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if adv.LocalName() != "" {
		p.name = adv.LocalName()
	}
	p.rssi = adv.RSSI()
}

func (p *FakePeripheral) GetConnection() device.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	return p.conn
}

// Connection returns the fake connection regardless of connect state, for
// test inspection.
func (p *FakePeripheral) Connection() *FakeConnection { return p.conn }
