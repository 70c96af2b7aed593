package protocol

import "bytes"

// MysteryVibe drives six motors with a plain byte-per-motor array.
type MysteryVibe struct {
	descriptor
}

func NewMysteryVibe() *MysteryVibe {
	return &MysteryVibe{descriptor{id: "mysteryvibe", max: 255, motors: 6}}
}

func (p *MysteryVibe) BuildCommand(intensity float64) []byte {
	return bytes.Repeat([]byte{byte(level(intensity, p.max))}, p.motors)
}

func (p *MysteryVibe) BuildStopCommand() []byte {
	return p.BuildCommand(0)
}
