package finding

import (
	"fmt"
	"strings"
)

// Classification codes used to correlate a finding with its quick-fix action.
const (
	CodeElemMention            = "elem_mention"
	CodeHighDependencyCount    = "high-dependency-count-detected"
	CodeDependencyCountUnknown = "dependency-count-unknown"
)

// Source is attached to every finding so editors can group them.
const Source = "Sustainable Electron"

// Severity of a finding.
type Severity int

const (
	Information Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Information:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts "info", "warning" or "error" (case-insensitive) into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "information":
		return Information, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return Information, fmt.Errorf("unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Location is a zero-based line with a half-open column range. Columns are
// counted in UTF-16 code units, the unit editors address text in.
type Location struct {
	Line        int `json:"line"`
	StartColumn int `json:"start_column"`
	EndColumn   int `json:"end_column"`
}

// Finding is one reportable issue in one document.
type Finding struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	HelpLink string   `json:"help_link,omitempty"`
	Source   string   `json:"source"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%d:%d-%d %s [%s] %s",
		f.Location.Line+1, f.Location.StartColumn+1, f.Location.EndColumn+1, f.Severity, f.Code, f.Message)
}
