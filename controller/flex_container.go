// controller/flex_container.go
package controller

import (
	"fmt"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

func flexContainerDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeFlexContainer,
		prefix:       "fcnt",
		parents:      []model.ResourceType{model.TypeCSEBase, model.TypeAE, model.TypeContainer, model.TypeFlexContainer},
		mandatory:    []string{"cnd"},
		optional:     with(commonOptional, "daci", "at", "aa", "nl", "or", "ca"),
		updatable:    with(commonUpdatable, "daci", "at", "aa", "nl", "or", "ca"),
		immutable:    []string{"cnd"},
		creatable:    true,
		deletable:    true,
		inheritsACP:  true,
		validate:     validateCustomAttributes,
	}
}

func flexContainerAnncDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeFlexContainerAnnc,
		prefix:       "fcnta",
		parents:      []model.ResourceType{model.TypeCSEBase, model.TypeAEAnnc, model.TypeFlexContainerAnnc},
		mandatory:    []string{"lnk", "cnd"},
		optional:     with(commonOptional, "daci", "nl", "or", "ca"),
		updatable:    with(commonUpdatable, "daci", "nl", "or", "ca"),
		immutable:    []string{"lnk", "cnd"},
		creatable:    true,
		deletable:    true,
		inheritsACP:  true,
		validate:     validateCustomAttributes,
		verify:       verifyOriginal,
	}
}

// Custom attribute names share the attribute namespace of the resource
func validateCustomAttributes(c *Controller, r *model.Resource) error {
	seen := make(map[string]bool, len(r.CustomAttributes))
	for _, ca := range r.CustomAttributes {
		if ca.Name == "" {
			return fmt.Errorf("%w: custom attribute without a name", echo_errors.ErrBadRequest)
		}
		if seen[ca.Name] {
			return fmt.Errorf("%w: duplicate custom attribute %s", echo_errors.ErrBadRequest, ca.Name)
		}
		seen[ca.Name] = true
	}
	return nil
}
