// audit/model.go
package audit

import "time"

// AuditLog records one committed change or one denied request
type AuditLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Event         string    `json:"event"`
	Originator    string    `json:"originator"`
	Operation     string    `json:"operation"`
	ResourceID    string    `json:"resource_id"`
	ResourceType  string    `json:"resource_type"`
	AccessGranted bool      `json:"access_granted"`
	Detail        string    `json:"detail,omitempty"`
}
