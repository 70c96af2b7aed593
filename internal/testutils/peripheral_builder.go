package testutils

import (
	"fmt"
	"strings"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
)

// ParseProperties converts a comma-separated property spec like
// "read,write,notify" into the device bitmask. Unknown names panic: a typo in
// a test fixture should fail loudly.
func ParseProperties(spec string) device.Properties {
	var props device.Properties
	for _, name := range strings.Split(spec, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "":
		case "broadcast":
			props |= device.PropertyBroadcast
		case "read":
			props |= device.PropertyRead
		case "writewithoutresponse":
			props |= device.PropertyWriteWithoutResponse
		case "write":
			props |= device.PropertyWrite
		case "notify":
			props |= device.PropertyNotify
		case "indicate":
			props |= device.PropertyIndicate
		default:
			panic(fmt.Sprintf("testutils: unknown characteristic property %q", name))
		}
	}
	return props
}

// PeripheralBuilder constructs FakePeripherals fluently.
type PeripheralBuilder struct {
	p *FakePeripheral
}

func NewPeripheralBuilder() *PeripheralBuilder {
	return &PeripheralBuilder{p: &FakePeripheral{
		connectable: true,
		conn:        &FakeConnection{},
	}}
}

func (b *PeripheralBuilder) WithName(name string) *PeripheralBuilder {
	b.p.name = name
	return b
}

func (b *PeripheralBuilder) WithAddress(addr string) *PeripheralBuilder {
	b.p.address = addr
	return b
}

func (b *PeripheralBuilder) WithRSSI(rssi int) *PeripheralBuilder {
	b.p.rssi = rssi
	return b
}

// WithAdvertisedServices sets the service UUIDs seen in the advertisement,
// which may differ from the discovered GATT table.
func (b *PeripheralBuilder) WithAdvertisedServices(uuids ...string) *PeripheralBuilder {
	b.p.services = append(b.p.services, device.NormalizeUUIDs(uuids)...)
	return b
}

func (b *PeripheralBuilder) WithManufacturerData(data []byte) *PeripheralBuilder {
	b.p.manufData = data
	return b
}

// WithConnectFailures scripts the first n Connect attempts to fail with err.
func (b *PeripheralBuilder) WithConnectFailures(n int, err error) *PeripheralBuilder {
	for i := 0; i < n; i++ {
		b.p.connectErrs = append(b.p.connectErrs, err)
	}
	return b
}

// WithService opens a service scope; characteristics added through the
// returned builder land in it.
func (b *PeripheralBuilder) WithService(uuid string) *ServiceBuilder {
	svc := &FakeService{uuid: device.NormalizeUUID(uuid)}
	b.p.conn.services = append(b.p.conn.services, svc)
	return &ServiceBuilder{parent: b, svc: svc}
}

func (b *PeripheralBuilder) Build() *FakePeripheral {
	return b.p
}

// ServiceBuilder adds characteristics to one service and chains back to the
// peripheral builder.
type ServiceBuilder struct {
	parent *PeripheralBuilder
	svc    *FakeService
}

// WithCharacteristic adds a characteristic with a property spec like
// "read,notify" and an initial read value.
func (sb *ServiceBuilder) WithCharacteristic(uuid, propSpec string, value []byte) *ServiceBuilder {
	sb.svc.chars = append(sb.svc.chars, &FakeCharacteristic{
		uuid:  device.NormalizeUUID(uuid),
		props: ParseProperties(propSpec),
		value: append([]byte(nil), value...),
	})
	return sb
}

// WithService closes the current service scope and opens a new one.
func (sb *ServiceBuilder) WithService(uuid string) *ServiceBuilder {
	return sb.parent.WithService(uuid)
}

func (sb *ServiceBuilder) Build() *FakePeripheral {
	return sb.parent.Build()
}
