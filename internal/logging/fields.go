package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldComponent  = "component"
	FieldEventID    = "event_id"
	FieldRuleID     = "rule_id"
	FieldThreatID   = "threat_id"
	FieldIncidentID = "incident_id"
	FieldTick       = "tick"
	FieldChannel    = "channel"
	FieldAction     = "action"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldCursor     = "cursor"
)

// Component returns a slog attribute for the pipeline component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// EventID returns a slog attribute for an audit event id.
func EventID(id int64) slog.Attr {
	return slog.Int64(FieldEventID, id)
}

// RuleID returns a slog attribute for a rule id.
func RuleID(id string) slog.Attr {
	return slog.String(FieldRuleID, id)
}

// ThreatID returns a slog attribute for a threat id.
func ThreatID(id string) slog.Attr {
	return slog.String(FieldThreatID, id)
}

// IncidentID returns a slog attribute for an incident id.
func IncidentID(id string) slog.Attr {
	return slog.String(FieldIncidentID, id)
}

// Tick returns a slog attribute for a monitor tick name.
func Tick(name string) slog.Attr {
	return slog.String(FieldTick, name)
}

// Channel returns a slog attribute for an alert channel.
func Channel(name string) slog.Attr {
	return slog.String(FieldChannel, name)
}

// Action returns a slog attribute for a response action type.
func Action(name string) slog.Attr {
	return slog.String(FieldAction, name)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Cursor returns a slog attribute for the ingestion cursor.
func Cursor(id int64) slog.Attr {
	return slog.Int64(FieldCursor, id)
}
