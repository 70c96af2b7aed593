package protocol

import "fmt"

// Lovense speaks the ASCII command dialect shared across that vendor's
// devices: "Vibrate:<level>;" with levels 0..20.
type Lovense struct {
	descriptor
}

func NewLovense() *Lovense {
	return &Lovense{descriptor{id: "lovense", max: 20, motors: 1}}
}

func (p *Lovense) BuildCommand(intensity float64) []byte {
	return []byte(fmt.Sprintf("Vibrate:%d;", level(intensity, p.max)))
}

func (p *Lovense) BuildStopCommand() []byte {
	return p.BuildCommand(0)
}
