package domain

import "fmt"

// Severity of a status message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

const (
	severityStringInfo    = "info"
	severityStringSuccess = "success"
	severityStringError   = "error"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return severityStringSuccess
	case SeverityError:
		return severityStringError
	default:
		return severityStringInfo
	}
}

// Icon returns the glyph shown in the status bar for the severity.
func (s Severity) Icon() string {
	switch s {
	case SeveritySuccess:
		return "✔"
	case SeverityError:
		return "⚠"
	default:
		return "ℹ"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a message for the status bar.
type Status struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Info creates an info status.
func Info(msg string) Status { return Status{Severity: SeverityInfo, Message: msg} }

// Success creates a success status.
func Success(msg string) Status { return Status{Severity: SeveritySuccess, Message: msg} }

// Failure creates an error status.
func Failure(msg string) Status { return Status{Severity: SeverityError, Message: msg} }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case severityStringSuccess:
		*s = SeveritySuccess
	case severityStringError:
		*s = SeverityError
	case severityStringInfo:
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}
