// Package models provides the data model for the sentinel security pipeline.
package models

import "time"

// Well-known audit actions observed in the StayOps audit log. The audit
// log records free-form verbs; these constants cover the ones the
// classifier and the built-in rule packs care about.
const (
	ActionFailedLogin        = "FAILED_LOGIN"
	ActionLogin              = "LOGIN"
	ActionLogout             = "LOGOUT"
	ActionPasswordReset      = "PASSWORD_RESET"
	ActionUnauthorizedAccess = "UNAUTHORIZED_ACCESS"
	ActionPermissionDenied   = "PERMISSION_DENIED"
	ActionExport             = "EXPORT"
	ActionBulkExport         = "BULK_EXPORT"
	ActionRateChange         = "RATE_CHANGE"
	ActionRefundIssued       = "REFUND_ISSUED"
	ActionInvoiceVoided      = "INVOICE_VOIDED"
	ActionUserCreated        = "USER_CREATED"
	ActionRoleChanged        = "ROLE_CHANGED"
	ActionConfigChanged      = "CONFIG_CHANGED"
	ActionAPIKeyCreated      = "API_KEY_CREATED"
)

// SecurityEvent is an immutable fact read from the persisted audit log.
// IDs are monotonic and assigned by the audit log; the pipeline never
// mutates events.
type SecurityEvent struct {
	ID         int64                  `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	ActorID    string                 `json:"actor_id,omitempty"`
	TenantID   string                 `json:"tenant_id,omitempty"` // property / business unit
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource,omitempty"`
	ResourceID string                 `json:"resource_id,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// EventField identifies an addressable field of a SecurityEvent for rule
// condition evaluation. Keeping this a closed set makes unknown fields a
// validation-time error instead of a silent miss.
type EventField string

const (
	FieldActorID    EventField = "actor_id"
	FieldTenantID   EventField = "tenant_id"
	FieldAction     EventField = "action"
	FieldResource   EventField = "resource"
	FieldResourceID EventField = "resource_id"
	FieldIPAddress  EventField = "ip_address"
)

// IsValid reports whether f names a known event field.
func (f EventField) IsValid() bool {
	switch f {
	case FieldActorID, FieldTenantID, FieldAction, FieldResource, FieldResourceID, FieldIPAddress:
		return true
	default:
		return false
	}
}

// Value returns the concrete value of the field on e. Missing optional
// fields return the empty string; grouping layers map that to a single
// "unknown" bucket.
func (f EventField) Value(e *SecurityEvent) string {
	switch f {
	case FieldActorID:
		return e.ActorID
	case FieldTenantID:
		return e.TenantID
	case FieldAction:
		return e.Action
	case FieldResource:
		return e.Resource
	case FieldResourceID:
		return e.ResourceID
	case FieldIPAddress:
		return e.IPAddress
	default:
		return ""
	}
}
