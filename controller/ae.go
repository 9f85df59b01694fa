// controller/ae.go
package controller

import "github.com/dev-mohitbeniwal/echo-cse/model"

func aeDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeAE,
		prefix:       "ae",
		parents:      []model.ResourceType{model.TypeCSEBase},
		mandatory:    []string{"api"},
		optional:     with(commonOptional, "daci", "at", "aa", "nl", "or"),
		updatable:    with(commonUpdatable, "daci", "at", "aa", "nl", "or"),
		immutable:    []string{"api"},
		creatable:    true,
		deletable:    true,
		inheritsACP:  true,
	}
}

func aeAnncDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeAEAnnc,
		prefix:       "aea",
		parents:      []model.ResourceType{model.TypeCSEBase},
		mandatory:    []string{"lnk"},
		optional:     with(commonOptional, "daci", "api", "nl", "or"),
		updatable:    with(commonUpdatable, "daci", "api", "nl", "or"),
		immutable:    []string{"lnk"},
		creatable:    true,
		deletable:    true,
		inheritsACP:  true,
		verify:       verifyOriginal,
	}
}
