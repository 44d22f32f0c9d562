package authz

import "fmt"

// ConfigError reports a misconfigured guard, mask or policy binding.
// Configuration problems surface when the registry is built, never
// during request handling.
type ConfigError struct {
	Target string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("authorization config %s: %s", e.Target, e.Reason)
}
