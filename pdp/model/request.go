package model

import (
	"time"

	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// AccessRequest is one authorisation question: may Originator perform
// Operation on the target resource?
type AccessRequest struct {
	Originator string          `json:"originator"`
	Operation  model.Operation `json:"operation"`
	Target     Target          `json:"target"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Target describes the resource being accessed
type Target struct {
	ID   string             `json:"id"`
	Type model.ResourceType `json:"type"`
	// SelfPrivileges selects the pvs rule set instead of pv. Set when the
	// target is an ACP evaluated against itself.
	SelfPrivileges bool `json:"selfPrivileges,omitempty"`
}

// PolicySet is everything the evaluator needs for one target
type PolicySet struct {
	Policies []*model.Resource
	DACs     []*model.Resource
}
