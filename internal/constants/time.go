package constants

import "time"

// TestContextTimeout is the timeout for test contexts.
const TestContextTimeout = 5 * time.Second

// ExecutionPollInterval is how often a running job is polled for status.
const ExecutionPollInterval = 2 * time.Second

// SessionPollInterval is how often the stored credential is re-read when
// filesystem notifications are unavailable.
const SessionPollInterval = time.Second

// SessionSettleDelay is how long the session waits after a config file event before reloading
const SessionSettleDelay = 50 * time.Millisecond
