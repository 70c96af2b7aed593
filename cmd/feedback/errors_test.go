package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
)

func TestFormatUserError(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		err := fmt.Errorf("scan: %w", context.DeadlineExceeded)
		assert.Equal(t, "operation timed out: scan: context deadline exceeded", formatUserError(err))
	})

	t.Run("unknown device points at protocols listing", func(t *testing.T) {
		err := fmt.Errorf("detect: %w",
			&protocol.UnknownDeviceError{Name: "JBL Speaker", Services: []string{"180f"}})
		msg := formatUserError(err)
		assert.Contains(t, msg, "JBL Speaker")
		assert.Contains(t, msg, "feedback protocols")
	})

	t.Run("plain errors pass through", func(t *testing.T) {
		assert.Equal(t, "plain failure", formatUserError(errors.New("plain failure")))
	})
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}
