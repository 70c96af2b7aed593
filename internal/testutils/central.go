package testutils

import (
	"context"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
)

// FakeCentral is a scripted device.ScanningDevice: it replays its
// advertisements through the handler, then blocks until the scan context
// ends, the way a real radio keeps scanning until cancelled.
type FakeCentral struct {
	Advertisements []device.Advertisement
	Err            error // returned immediately when set
}

func (c *FakeCentral) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	if c.Err != nil {
		return c.Err
	}
	for _, adv := range c.Advertisements {
		if ctx.Err() != nil {
			break
		}
		handler(adv)
	}
	<-ctx.Done()
	return ctx.Err()
}
