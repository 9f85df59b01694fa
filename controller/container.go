// controller/container.go
package controller

import "github.com/dev-mohitbeniwal/echo-cse/model"

func containerDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeContainer,
		prefix:       "cnt",
		parents:      []model.ResourceType{model.TypeCSEBase, model.TypeAE, model.TypeContainer},
		optional:     with(commonOptional, "daci", "or"),
		updatable:    with(commonUpdatable, "daci", "or"),
		creatable:    true,
		deletable:    true,
		inheritsACP:  true,
	}
}
