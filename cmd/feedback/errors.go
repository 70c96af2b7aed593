package main

import (
	"context"
	"errors"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/link"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
)

// formatUserError rewrites internal errors into actionable messages. Errors
// that already read well for humans pass through unchanged.
func formatUserError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out: " + err.Error()
	case errors.Is(err, protocol.ErrUnknownDevice):
		return err.Error() + "\nRun 'feedback protocols' to see the supported device families."
	case errors.Is(err, link.ErrNoKnownService):
		return err.Error()
	case errors.Is(err, device.ErrNotConnected):
		return "device not connected: " + err.Error()
	default:
		return err.Error()
	}
}
