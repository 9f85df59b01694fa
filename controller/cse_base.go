// controller/cse_base.go
package controller

import "github.com/dev-mohitbeniwal/echo-cse/model"

// The CSEBase is created once at bootstrap and lives as long as the node
func cseBaseDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeCSEBase,
		updatable:    []string{"lbl", "acpi"},
		creatable:    false,
		deletable:    false,
	}
}
