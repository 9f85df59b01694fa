// controller/subscription.go
package controller

import (
	"fmt"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

func subscriptionDescriptor() *descriptor {
	return &descriptor{
		resourceType: model.TypeSubscription,
		prefix:       "sub",
		parents: []model.ResourceType{
			model.TypeCSEBase, model.TypeAE, model.TypeAEAnnc, model.TypeContainer,
			model.TypeFlexContainer, model.TypeFlexContainerAnnc,
			model.TypeAccessControlPolicy, model.TypeDAC,
		},
		mandatory:   []string{"nu"},
		optional:    with(commonOptional, "net", "nct", "su"),
		updatable:   with(commonUpdatable, "nu", "net", "nct", "su"),
		creatable:   true,
		deletable:   true,
		inheritsACP: true,
		prepare: func(c *Controller, r *model.Resource) {
			if r.NotificationContentType == 0 {
				r.NotificationContentType = model.ContentAllAttributes
			}
		},
		validate: func(c *Controller, r *model.Resource) error {
			if len(r.NotificationURIs) == 0 {
				return fmt.Errorf("%w: subscription needs at least one notificationURI", echo_errors.ErrBadRequest)
			}
			if err := c.Validation.ValidateNotificationURIs(r.NotificationURIs); err != nil {
				return err
			}
			if r.SubscriberURI != "" {
				if err := c.Validation.ValidateNotificationURIs([]string{r.SubscriberURI}); err != nil {
					return err
				}
			}
			if err := c.Validation.ValidateEventTypes(r.EventTypes); err != nil {
				return err
			}
			return c.Validation.ValidateContentType(r.NotificationContentType)
		},
	}
}
