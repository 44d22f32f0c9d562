package events

import "time"

// GuardDenied is emitted when an authorization guard denies access to a
// field or argument. ArgumentName is empty for field denials.
type GuardDenied struct {
	TypeName     string
	FieldName    string
	ArgumentName string
	Mode         string
	Path         string
}

// GuardEvalError is emitted when a guard or mask predicate returns an
// error. The client observes only a standard denial; the cause stays on
// the bus.
type GuardEvalError struct {
	TypeName     string
	FieldName    string
	ArgumentName string
	Err          error
}

// MaskPlanned is emitted after a per-request visibility plan is built.
type MaskPlanned struct {
	HiddenFields    int
	HiddenArguments int
	Duration        time.Duration
}
