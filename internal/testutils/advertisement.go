// Package testutils provides in-memory fakes for the device interfaces plus
// JSON assertion helpers. Fakes are plain structs driven through fluent
// builders, so tests read as device descriptions rather than mock scripts.
package testutils

import "github.com/EcstasyEngineer/feedback-demo/internal/device"

// FakeAdvertisement is a scripted device.Advertisement.
type FakeAdvertisement struct {
	name        string
	addr        string
	rssi        int
	services    []string
	manufData   []byte
	serviceData []struct {
		UUID string
		Data []byte
	}
	txPower     int
	connectable bool
}

func (a *FakeAdvertisement) LocalName() string        { return a.name }
func (a *FakeAdvertisement) ManufacturerData() []byte { return a.manufData }
func (a *FakeAdvertisement) ServiceData() []struct {
	UUID string
	Data []byte
} {
	return a.serviceData
}
func (a *FakeAdvertisement) Services() []string { return a.services }
func (a *FakeAdvertisement) TxPowerLevel() int  { return a.txPower }
func (a *FakeAdvertisement) Connectable() bool  { return a.connectable }
func (a *FakeAdvertisement) RSSI() int          { return a.rssi }
func (a *FakeAdvertisement) Addr() string       { return a.addr }

// AdvertisementBuilder constructs FakeAdvertisements fluently.
type AdvertisementBuilder struct {
	adv *FakeAdvertisement
}

func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{adv: &FakeAdvertisement{connectable: true}}
}

func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.adv.name = name
	return b
}

func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.adv.addr = addr
	return b
}

func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.adv.rssi = rssi
	return b
}

func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	b.adv.services = append(b.adv.services, uuids...)
	return b
}

func (b *AdvertisementBuilder) WithManufacturerData(data []byte) *AdvertisementBuilder {
	b.adv.manufData = data
	return b
}

func (b *AdvertisementBuilder) WithServiceData(uuid string, data []byte) *AdvertisementBuilder {
	b.adv.serviceData = append(b.adv.serviceData, struct {
		UUID string
		Data []byte
	}{uuid, data})
	return b
}

func (b *AdvertisementBuilder) WithTxPower(power int) *AdvertisementBuilder {
	b.adv.txPower = power
	return b
}

func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.adv.connectable = c
	return b
}

func (b *AdvertisementBuilder) Build() device.Advertisement {
	return b.adv
}
