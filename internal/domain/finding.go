package domain

import "strings"

// Severity classifies a validation finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is an advisory produced by the topology validator
type Finding struct {
	ID        string   `json:"id"`
	Rule      string   `json:"rule"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	DeviceIDs []string `json:"device_ids"`
}

// NewFinding creates a finding whose ID is derived from the rule and devices,
// so the same problem always yields the same ID
func NewFinding(rule string, severity Severity, message string, deviceIDs ...string) Finding {
	id := rule
	if len(deviceIDs) > 0 {
		id = rule + ":" + strings.Join(deviceIDs, ",")
	}
	return Finding{
		ID:        id,
		Rule:      rule,
		Message:   message,
		Severity:  severity,
		DeviceIDs: deviceIDs,
	}
}

// Involves reports whether the finding references the given device
func (f Finding) Involves(deviceID string) bool {
	for _, id := range f.DeviceIDs {
		if id == deviceID {
			return true
		}
	}
	return false
}
