package chain

import (
	"testing"
	"time"
)

// SetPollInterval shortens the WaitForTx poll interval for the duration of a test.
func SetPollInterval(t *testing.T, d time.Duration) {
	prev := pollInterval
	pollInterval = d
	t.Cleanup(func() { pollInterval = prev })
}
