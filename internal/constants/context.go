package constants

// ConfigCtxKeyType is the type for the config context key
type ConfigCtxKeyType string

// ConfigCtxKey is the key used to store config in context
const ConfigCtxKey ConfigCtxKeyType = "config"

// SessionCtxKeyType is the type for the session context key
type SessionCtxKeyType string

// SessionCtxKey is the key used to store the session in context
const SessionCtxKey SessionCtxKeyType = "session"

// StartTimeCtxKeyType is the type for start time context keys
type StartTimeCtxKeyType string

// StartTimeCtxKey is the key used to store the start time in context
const StartTimeCtxKey StartTimeCtxKeyType = "startTime"
