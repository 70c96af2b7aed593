package protocol

// WeVibe packs both motors into a single nibble byte (external motor low,
// internal motor high, 0..15 each) carried in a fixed 8-byte frame. An
// all-zero frame signals stop.
type WeVibe struct {
	descriptor
}

func NewWeVibe() *WeVibe {
	return &WeVibe{descriptor{id: "wevibe", max: 15, motors: 2}}
}

func (p *WeVibe) BuildCommand(intensity float64) []byte {
	lvl := byte(level(intensity, p.max))
	if lvl == 0 {
		return make([]byte, 8)
	}
	combined := lvl | lvl<<4 // external | internal<<4, both motors together
	return []byte{0x0f, 0x03, 0x00, combined, 0x00, 0x03, 0x00, 0x00}
}

func (p *WeVibe) BuildStopCommand() []byte {
	return p.BuildCommand(0)
}
