package testutils

import (
	"encoding/json"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
)

type DeviceJSON struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	RSSI             int      `json:"rssi"`
	Connectable      bool     `json:"connectable"`
	Services         []string `json:"services"`
	ManufacturerData []int    `json:"manufacturer_data,omitempty"`
}

// DeviceToJSON renders a device's advertised state as JSON for structural
// assertions. Manufacturer data becomes []int so the fixture side can be
// written as plain numbers instead of base64.
func DeviceToJSON(d device.DeviceInfo) string {
	var manufData []int
	if raw := d.ManufacturerData(); raw != nil {
		manufData = make([]int, len(raw))
		for i, b := range raw {
			manufData[i] = int(b)
		}
	}

	jsonStruct := DeviceJSON{
		ID:               d.ID(),
		Name:             d.Name(),
		Address:          d.Address(),
		RSSI:             d.RSSI(),
		Connectable:      d.IsConnectable(),
		Services:         d.AdvertisedServices(),
		ManufacturerData: manufData,
	}

	b, err := json.Marshal(jsonStruct)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// DevicesToJSON renders a device list as a JSON array, preserving order.
func DevicesToJSON(devices []device.DeviceInfo) string {
	parts := make([]json.RawMessage, len(devices))
	for i, d := range devices {
		parts[i] = json.RawMessage(DeviceToJSON(d))
	}
	b, err := json.Marshal(parts)
	if err != nil {
		panic(err)
	}
	return string(b)
}
