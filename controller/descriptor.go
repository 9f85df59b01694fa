// controller/descriptor.go
package controller

import (
	"context"

	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
)

// descriptor captures everything that differs between resource types. The
// CRUD algorithm itself lives in Controller and is shared by all of them.
type descriptor struct {
	resourceType model.ResourceType
	prefix       string
	parents      []model.ResourceType

	// Attribute classes on create: mandatory ones must be present, anything
	// not listed in optional or mandatory is rejected
	mandatory []string
	optional  []string

	// Attributes an update may change, and those it may only repeat
	updatable []string
	immutable []string

	creatable   bool
	deletable   bool
	inheritsACP bool

	// validate runs on the complete resource after create or update merged
	// the request into it
	validate func(c *Controller, r *model.Resource) error
	// verify runs last and may consult other nodes
	verify func(ctx context.Context, c *Controller, r *model.Resource) error
	// prepare fills server-side defaults on a new resource
	prepare func(c *Controller, r *model.Resource)
	// project adds derived attributes to a retrieved representation
	project func(ctx context.Context, c *Controller, tx persistence.Transaction, r *model.Resource) error
}

func (d *descriptor) allowsParent(t model.ResourceType) bool {
	for _, p := range d.parents {
		if p == t {
			return true
		}
	}
	return false
}

func (d *descriptor) allowsOnCreate(name string) bool {
	return contains(d.mandatory, name) || contains(d.optional, name)
}

// Universal optional attributes of regular resources
var commonOptional = []string{"rn", "lbl", "et", "acpi"}

// Attributes every regular resource may change
var commonUpdatable = []string{"lbl", "et", "acpi"}

func descriptors() map[model.ResourceType]*descriptor {
	registry := make(map[model.ResourceType]*descriptor)
	for _, d := range []*descriptor{
		cseBaseDescriptor(),
		aeDescriptor(),
		aeAnncDescriptor(),
		containerDescriptor(),
		flexContainerDescriptor(),
		flexContainerAnncDescriptor(),
		subscriptionDescriptor(),
		acpDescriptor(),
		dacDescriptor(),
	} {
		registry[d.resourceType] = d
	}
	return registry
}

func with(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
