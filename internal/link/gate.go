package link

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/EcstasyEngineer/feedback-demo/internal/groutine"
	"github.com/EcstasyEngineer/feedback-demo/internal/ringchan"
)

// gateRequest is one pending command: set a level, or stop output.
type gateRequest struct {
	intensity float64
	stop      bool
}

// writeGate serializes a device's command traffic: a capacity-one
// overwrite-oldest slot feeding a single dispatcher goroutine. Rapid
// intensity changes collapse into the newest value while a write is in
// flight, and the limiter holds frames to the cadence the hardware expects.
// At most one GATT write is ever outstanding.
type writeGate struct {
	requests *ringchan.RingChannel[gateRequest]
	limiter  *rate.Limiter
	cancel   context.CancelFunc
	done     chan struct{}
}

func newWriteGate(ad *ActiveDevice, spacing time.Duration) *writeGate {
	ctx, cancel := context.WithCancel(context.Background())
	g := &writeGate{
		requests: ringchan.New[gateRequest](1),
		limiter:  rate.NewLimiter(rate.Every(spacing), 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	groutine.Go(ctx, "link-write-dispatcher", func(ctx context.Context) {
		g.dispatch(ctx, ad)
	})
	return g
}

// submit queues a request, displacing any not-yet-dispatched predecessor.
// Never blocks; must not be called after close.
func (g *writeGate) submit(req gateRequest) {
	g.requests.ForceSend(req)
}

// close lets the dispatcher drain the pending slot, then waits for its last
// write to finish.
func (g *writeGate) close() {
	g.requests.Close()
	<-g.done
	g.cancel()
}

func (g *writeGate) dispatch(ctx context.Context, ad *ActiveDevice) {
	defer close(g.done)
	for req := range g.requests.C() {
		if err := g.limiter.Wait(ctx); err != nil {
			return
		}
		ad.dispatchWrite(ctx, req)
	}
}
