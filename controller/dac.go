// controller/dac.go
package controller

import (
	"context"
	"fmt"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
)

func dacDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeDAC,
		prefix:       "dac",
		parents:      []model.ResourceType{model.TypeCSEBase, model.TypeAE},
		mandatory:    []string{"dae"},
		optional:     with(commonOptional, "dap", "dal"),
		updatable:    with(commonUpdatable, "dae", "dap", "dal"),
		creatable:    true,
		deletable:    true,
		inheritsACP:  true,
		validate: func(c *Controller, r *model.Resource) error {
			if r.DynamicAuthorizationEnabled != nil && *r.DynamicAuthorizationEnabled && len(r.DynamicAuthorizationPoA) == 0 {
				return fmt.Errorf("%w: an enabled dynamicAuthorizationConsultation needs a point of access", echo_errors.ErrBadRequest)
			}
			return nil
		},
		project: projectLinkedResources,
	}
}

// The referrers of a DAC are a projection of the back-link index
func projectLinkedResources(ctx context.Context, c *Controller, tx persistence.Transaction, r *model.Resource) error {
	links, err := tx.BackLinks(ctx, r.ResourceID)
	if err != nil {
		return err
	}
	r.LinkedResourceIDs = links
	return nil
}
