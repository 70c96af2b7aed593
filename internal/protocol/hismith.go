package protocol

import "context"

// hismithBaseOpcode is the register of the first motor; motor n lives at
// baseOpcode+n.
const hismithBaseOpcode = 0x01

// Hismith addresses each motor with a two-byte register write:
// [opcode+motorIndex, level]. Multi-motor units need one frame per motor,
// so the protocol implements Sender.
type Hismith struct {
	descriptor
}

func NewHismith() *Hismith {
	return &Hismith{descriptor{id: "hismith", max: 255, motors: 1}}
}

func (p *Hismith) BuildCommand(intensity float64) []byte {
	return p.buildMotorCommand(0, intensity)
}

func (p *Hismith) BuildStopCommand() []byte {
	return p.BuildCommand(0)
}

func (p *Hismith) buildMotorCommand(motor int, intensity float64) []byte {
	return []byte{byte(hismithBaseOpcode + motor), byte(level(intensity, p.max))}
}

// SendCommand writes one frame per motor.
func (p *Hismith) SendCommand(ctx context.Context, h WriteHandle, intensity float64) error {
	for m := 0; m < p.motors; m++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.Write(p.buildMotorCommand(m, intensity)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Hismith) StopCommand(ctx context.Context, h WriteHandle) error {
	return p.SendCommand(ctx, h, 0)
}
