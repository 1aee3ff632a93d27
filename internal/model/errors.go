package model

import "fmt"

// Failure reasons, grouped per error kind.
const (
	ReasonUnreachable       = "unreachable"
	ReasonAuthFailed        = "authFailed"
	ReasonUnsupportedDriver = "unsupportedDriver"

	ReasonExtractionFailed  = "extractionFailed"
	ReasonWriteFailed       = "writeFailed"
	ReasonDestinationExists = "destinationExists"

	ReasonEncodingFailed    = "encodingFailed"
	ReasonUnsupportedFormat = "unsupportedFormat"

	ReasonMissingRegistration = "missingRegistration"
)

// ConnectionError reports a failed registration probe or an unknown driver.
type ConnectionError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("connection %q: %s", e.Name, e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ReplicationError reports a failed table copy. The source is never mutated.
type ReplicationError struct {
	Table  string
	Reason string
	Err    error
}

func (e *ReplicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("replicate %q: %s: %v", e.Table, e.Reason, e.Err)
	}
	return fmt.Sprintf("replicate %q: %s", e.Table, e.Reason)
}

func (e *ReplicationError) Unwrap() error { return e.Err }

// ExportError reports a single-format encoding failure. The exporter records
// it and moves on to the next format.
type ExportError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export %s: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("export %s: %s", e.Format, e.Reason)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ConfigurationError reports a lookup of a connection that was never registered.
type ConfigurationError struct {
	Name   string
	Role   Role
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s connection %q: %s", e.Role, e.Name, e.Reason)
}
