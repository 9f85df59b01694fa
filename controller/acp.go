// controller/acp.go
package controller

import "github.com/dev-mohitbeniwal/echo-cse/model"

// An ACP is governed by its own self-privileges, so it has no acpi
func acpDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeAccessControlPolicy,
		prefix:       "acp",
		parents:      []model.ResourceType{model.TypeCSEBase, model.TypeAE},
		mandatory:    []string{"pv", "pvs"},
		optional:     []string{"rn", "lbl", "et"},
		updatable:    []string{"lbl", "et", "pv", "pvs"},
		creatable:    true,
		deletable:    true,
		validate: func(c *Controller, r *model.Resource) error {
			if err := c.Validation.ValidatePrivileges("pv", r.Privileges); err != nil {
				return err
			}
			return c.Validation.ValidatePrivileges("pvs", r.SelfPrivileges)
		},
	}
}
