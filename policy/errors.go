package policy

import "fmt"

// ConfigurationError names the exact document path that is missing or
// malformed. Payout code never substitutes a default amount; a bad policy
// aborts the whole trigger.
type ConfigurationError struct {
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("commission policy: %s: %s", e.Path, e.Reason)
}

func missing(path string) *ConfigurationError {
	return &ConfigurationError{Path: path, Reason: "required field missing"}
}

func invalid(path, reason string) *ConfigurationError {
	return &ConfigurationError{Path: path, Reason: reason}
}
