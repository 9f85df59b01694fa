// model/resource.go
package model

import (
	"time"
)

// ResourceType tags a Resource with its variant. Values follow the oneM2M
// numbering so they survive a round trip through external bindings.
type ResourceType int

const (
	TypeAccessControlPolicy ResourceType = 1
	TypeAE                  ResourceType = 2
	TypeContainer           ResourceType = 3
	TypeCSEBase             ResourceType = 5
	TypeSubscription        ResourceType = 23
	TypeFlexContainer       ResourceType = 28
	TypeDAC                 ResourceType = 48
	TypeAEAnnc              ResourceType = 10002
	TypeFlexContainerAnnc   ResourceType = 10028
)

var resourceTypeNames = map[ResourceType]string{
	TypeAccessControlPolicy: "accessControlPolicy",
	TypeAE:                  "AE",
	TypeContainer:           "container",
	TypeCSEBase:             "CSEBase",
	TypeSubscription:        "subscription",
	TypeFlexContainer:       "flexContainer",
	TypeDAC:                 "dynamicAuthorizationConsultation",
	TypeAEAnnc:              "AEAnnc",
	TypeFlexContainerAnnc:   "flexContainerAnnc",
}

func (t ResourceType) String() string {
	if name, ok := resourceTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsAnnounced reports whether t is an announced (Annc) variant
func (t ResourceType) IsAnnounced() bool {
	return t >= 10000
}

// Resource is the stored and exchanged form of every resource type. Only the
// attributes relevant to ResourceType are populated.
type Resource struct {
	// Universal attributes
	ResourceID       string       `json:"ri,omitempty"`
	ParentID         string       `json:"pi,omitempty"`
	Name             string       `json:"rn,omitempty"`
	HierarchicalURI  string       `json:"hr,omitempty"`
	ResourceType     ResourceType `json:"ty,omitempty"`
	CreationTime     time.Time    `json:"ct,omitempty"`
	LastModifiedTime time.Time    `json:"lt,omitempty"`
	ExpirationTime   *time.Time   `json:"et,omitempty"`
	Labels           []string     `json:"lbl,omitempty"`
	Creator          string       `json:"cr,omitempty"`

	// Access control
	AccessControlPolicyIDs              []string `json:"acpi,omitempty"`
	DynamicAuthorizationConsultationIDs []string `json:"daci,omitempty"`

	// Announceable originals
	AnnounceTo         []string   `json:"at,omitempty"`
	AnnouncedAttribute []string   `json:"aa,omitempty"`
	AnnouncedCopies    []AnncCopy `json:"anncCopies,omitempty"`

	// Announced variants
	Link string `json:"lnk,omitempty"`

	// AE
	AppID string `json:"api,omitempty"`

	// Container-like
	ContainerDefinition string            `json:"cnd,omitempty"`
	OntologyRef         string            `json:"or,omitempty"`
	NodeLink            string            `json:"nl,omitempty"`
	CustomAttributes    []CustomAttribute `json:"ca,omitempty"`

	// AccessControlPolicy
	Privileges     []AccessControlRule `json:"pv,omitempty"`
	SelfPrivileges []AccessControlRule `json:"pvs,omitempty"`

	// Subscription
	NotificationURIs        []string                `json:"nu,omitempty"`
	EventTypes              []EventType             `json:"net,omitempty"`
	NotificationContentType NotificationContentType `json:"nct,omitempty"`
	SubscriberURI           string                  `json:"su,omitempty"`

	// DynamicAuthorizationConsultation
	DynamicAuthorizationEnabled  *bool      `json:"dae,omitempty"`
	DynamicAuthorizationPoA      []string   `json:"dap,omitempty"`
	DynamicAuthorizationLifetime *time.Time `json:"dal,omitempty"`
	LinkedResourceIDs            []string   `json:"lri,omitempty"`

	// Tree structure
	Children       []ChildRef  `json:"ch,omitempty"`
	ChildResources []*Resource `json:"children,omitempty"`
}

// CustomAttribute is a named, typed value held by container-like resources
type CustomAttribute struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// ChildRef references a direct child from its parent's child list
type ChildRef struct {
	Name         string       `json:"nm"`
	ResourceType ResourceType `json:"typ"`
	ResourceID   string       `json:"val"`
}

// AnncCopy records where an original has been announced
type AnncCopy struct {
	Node    string `json:"node"`
	Address string `json:"address"`
}

// AccessControlRule grants Operations to the listed originators
type AccessControlRule struct {
	Originators []string      `json:"acor"`
	Operations  OperationMask `json:"acop"`
}

// ChildRefsOfType filters the child list by resource type
func (r *Resource) ChildRefsOfType(t ResourceType) []ChildRef {
	var refs []ChildRef
	for _, ch := range r.Children {
		if ch.ResourceType == t {
			refs = append(refs, ch)
		}
	}
	return refs
}

// CustomAttribute returns the named custom attribute, or nil
func (r *Resource) CustomAttribute(name string) *CustomAttribute {
	for i := range r.CustomAttributes {
		if r.CustomAttributes[i].Name == name {
			return &r.CustomAttributes[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones so callers never share
// slices with committed state.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	c := *r
	c.ExpirationTime = cloneTime(r.ExpirationTime)
	c.Labels = cloneStrings(r.Labels)
	c.AccessControlPolicyIDs = cloneStrings(r.AccessControlPolicyIDs)
	c.DynamicAuthorizationConsultationIDs = cloneStrings(r.DynamicAuthorizationConsultationIDs)
	c.AnnounceTo = cloneStrings(r.AnnounceTo)
	c.AnnouncedAttribute = cloneStrings(r.AnnouncedAttribute)
	if r.AnnouncedCopies != nil {
		c.AnnouncedCopies = append([]AnncCopy(nil), r.AnnouncedCopies...)
	}
	if r.CustomAttributes != nil {
		c.CustomAttributes = append([]CustomAttribute(nil), r.CustomAttributes...)
	}
	c.Privileges = cloneRules(r.Privileges)
	c.SelfPrivileges = cloneRules(r.SelfPrivileges)
	c.NotificationURIs = cloneStrings(r.NotificationURIs)
	if r.EventTypes != nil {
		c.EventTypes = append([]EventType(nil), r.EventTypes...)
	}
	if r.DynamicAuthorizationEnabled != nil {
		enabled := *r.DynamicAuthorizationEnabled
		c.DynamicAuthorizationEnabled = &enabled
	}
	c.DynamicAuthorizationPoA = cloneStrings(r.DynamicAuthorizationPoA)
	c.DynamicAuthorizationLifetime = cloneTime(r.DynamicAuthorizationLifetime)
	c.LinkedResourceIDs = cloneStrings(r.LinkedResourceIDs)
	if r.Children != nil {
		c.Children = append([]ChildRef(nil), r.Children...)
	}
	if r.ChildResources != nil {
		c.ChildResources = make([]*Resource, len(r.ChildResources))
		for i, ch := range r.ChildResources {
			c.ChildResources[i] = ch.Clone()
		}
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneRules(rules []AccessControlRule) []AccessControlRule {
	if rules == nil {
		return nil
	}
	out := make([]AccessControlRule, len(rules))
	for i, rule := range rules {
		out[i] = AccessControlRule{Originators: cloneStrings(rule.Originators), Operations: rule.Operations}
	}
	return out
}
