// model/notification.go
package model

import "time"

// EventType is a notificationEventType of a subscription's criteria
type EventType int

const (
	EventUpdated      EventType = 1
	EventDeleted      EventType = 2
	EventChildCreated EventType = 3
	EventChildDeleted EventType = 4
)

func (e EventType) String() string {
	switch e {
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	case EventChildCreated:
		return "childCreated"
	case EventChildDeleted:
		return "childDeleted"
	default:
		return "unknown"
	}
}

// NotificationContentType selects what a notification carries
type NotificationContentType int

const (
	ContentAllAttributes      NotificationContentType = 1
	ContentModifiedAttributes NotificationContentType = 2
	ContentResourceID         NotificationContentType = 3
)

// Notification is delivered to each notificationURI of a subscription
type Notification struct {
	SubscriptionID       string    `json:"sur"`
	EventType            EventType `json:"net,omitempty"`
	Resource             *Resource `json:"rep,omitempty"`
	ResourceID           string    `json:"ri,omitempty"`
	SubscriptionDeletion bool      `json:"sud,omitempty"`
	Creator              string    `json:"cr,omitempty"`
	Timestamp            time.Time `json:"ts"`
}
