package testutil

import (
	"testing"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/send"
	"github.com/stretchr/testify/require"
)

// NewTestLogger returns a logger that keeps every message at debug level or
// above in memory, along with the sender holding them.
func NewTestLogger(t *testing.T) (grip.Journaler, *send.InternalSender) {
	sender := send.MakeInternalLogger()
	require.NoError(t, sender.SetLevel(send.LevelInfo{Default: level.Info, Threshold: level.Debug}))
	return logging.MakeGrip(sender), sender
}

// DrainMessages returns the rendered form of every message the sender holds.
func DrainMessages(sender *send.InternalSender) []string {
	out := []string{}
	for sender.HasMessage() {
		out = append(out, sender.GetMessage().Message.String())
	}
	return out
}
