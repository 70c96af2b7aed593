package protocol

// Svakom uses a fixed 6-byte frame whose fifth byte is a run flag: 0 stops,
// 1 runs at the level carried in the sixth byte.
type Svakom struct {
	descriptor
}

func NewSvakom() *Svakom {
	return &Svakom{descriptor{id: "svakom", max: 255, motors: 1}}
}

func (p *Svakom) BuildCommand(intensity float64) []byte {
	lvl := byte(level(intensity, p.max))
	run := byte(0x01)
	if lvl == 0 {
		run = 0x00
	}
	return []byte{0x55, 0x04, 0x03, 0x00, run, lvl}
}

func (p *Svakom) BuildStopCommand() []byte {
	return p.BuildCommand(0)
}
