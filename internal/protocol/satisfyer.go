package protocol

import (
	"bytes"
	"time"
)

// Satisfyer takes one byte per motor repeated four times back to back, and
// stops on its own unless the command is re-sent about once a second.
type Satisfyer struct {
	descriptor
}

func NewSatisfyer() *Satisfyer {
	return &Satisfyer{descriptor{
		id:        "satisfyer",
		max:       255,
		motors:    2,
		keepalive: time.Second,
	}}
}

func (p *Satisfyer) BuildCommand(intensity float64) []byte {
	lvl := byte(level(intensity, p.max))
	frame := make([]byte, 0, p.motors*4)
	for m := 0; m < p.motors; m++ {
		frame = append(frame, bytes.Repeat([]byte{lvl}, 4)...)
	}
	return frame
}

func (p *Satisfyer) BuildStopCommand() []byte {
	return p.BuildCommand(0)
}
