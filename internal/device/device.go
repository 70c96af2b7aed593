package device

import (
	"context"
	"time"
)

// ScanningDevice represents a BLE central capable of scanning for advertisements
type ScanningDevice interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
}

type Advertisement interface {
	LocalName() string
	ManufacturerData() []byte
	ServiceData() []struct {
		UUID string
		Data []byte
	}

	Services() []string
	TxPowerLevel() int
	Connectable() bool

	RSSI() int
	Addr() string
}

//nolint:revive // DeviceInfo name is intentional for clarity when used as a device.DeviceInfo
type DeviceInfo interface {
	ID() string
	Name() string
	Address() string
	RSSI() int
	IsConnectable() bool
	AdvertisedServices() []string
	ManufacturerData() []byte
}

// Device defines the interface for all device types
type Device interface {
	DeviceInfo

	Connect(ctx context.Context, opts *ConnectOptions) error
	Disconnect() error
	IsConnected() bool
	Update(adv Advertisement)
	GetConnection() Connection
}

type PeripheralDevice interface {
	Device
	ScanningDevice
}

// Connection represents a live GATT connection
type Connection interface {
	Services() []Service
	GetService(uuid string) (Service, error)
	GetCharacteristic(service, uuid string) (Characteristic, error)
}

// Service represents a GATT service interface
type Service interface {
	UUID() string
	GetCharacteristics() []Characteristic
}

// CharacteristicInfo represents characteristic metadata
type CharacteristicInfo interface {
	UUID() string
	GetProperties() Properties
}

// CharacteristicReader provides read operations
type CharacteristicReader interface {
	Read(timeout time.Duration) ([]byte, error)
}

// CharacteristicWriter provides write operations
type CharacteristicWriter interface {
	Write(data []byte, withResponse bool, timeout time.Duration) error
}

// CharacteristicSubscriber provides notification subscription.
// The callback receives the raw notification payload; the slice is only
// valid for the duration of the callback and must be copied if retained.
type CharacteristicSubscriber interface {
	Subscribe(callback func(data []byte)) error
	Unsubscribe() error
}

// Characteristic combines info + operations
type Characteristic interface {
	CharacteristicInfo
	CharacteristicReader
	CharacteristicWriter
	CharacteristicSubscriber
}

// Properties is the characteristic property bitmask (GATT declaration flags)
type Properties uint

const (
	PropertyBroadcast Properties = 1 << iota
	PropertyRead
	PropertyWriteWithoutResponse
	PropertyWrite
	PropertyNotify
	PropertyIndicate
	PropertyAuthenticatedSignedWrites
	PropertyExtendedProperties
)

func (p Properties) CanRead() bool                 { return p&PropertyRead != 0 }
func (p Properties) CanWrite() bool                { return p&PropertyWrite != 0 }
func (p Properties) CanWriteWithoutResponse() bool { return p&PropertyWriteWithoutResponse != 0 }
func (p Properties) CanNotify() bool               { return p&PropertyNotify != 0 }
func (p Properties) CanIndicate() bool             { return p&PropertyIndicate != 0 }

// Writable reports whether the characteristic accepts either write flavor
func (p Properties) Writable() bool {
	return p.CanWrite() || p.CanWriteWithoutResponse()
}

// String renders the property set in the short GATT notation, e.g. "read|write|notify"
func (p Properties) String() string {
	names := []struct {
		flag Properties
		name string
	}{
		{PropertyBroadcast, "broadcast"},
		{PropertyRead, "read"},
		{PropertyWriteWithoutResponse, "writeWithoutResponse"},
		{PropertyWrite, "write"},
		{PropertyNotify, "notify"},
		{PropertyIndicate, "indicate"},
		{PropertyAuthenticatedSignedWrites, "authenticatedSignedWrites"},
		{PropertyExtendedProperties, "extendedProperties"},
	}

	out := ""
	for _, n := range names {
		if p&n.flag == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n.name
	}
	if out == "" {
		return "none"
	}
	return out
}

// ConnectOptions defines BLE connection options
type ConnectOptions struct {
	Address        string
	ConnectTimeout time.Duration
}
