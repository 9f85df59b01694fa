// notification/notifier.go

// Package notification delivers subscription notifications after a
// resource mutation has committed. Delivery is best effort: failures are
// logged and counted, never retried and never reported to the caller.
package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/metrics"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// INotifier is what the resource controllers depend on
type INotifier interface {
	Notify(ctx context.Context, subs []*model.Resource, resource *model.Resource, event model.EventType)
	NotifyDelta(ctx context.Context, subs []*model.Resource, resource, delta *model.Resource, event model.EventType)
	NotifyDeletion(ctx context.Context, subs []*model.Resource, resource *model.Resource)
	NotifySubscriptionDeleted(ctx context.Context, sub *model.Resource)
}

type Notifier struct {
	sender  Sender
	workers int
	timeout time.Duration
	now     func() time.Time
}

var _ INotifier = &Notifier{}

// NewNotifier bounds concurrent deliveries to workers and each fan-out to
// timeout.
func NewNotifier(sender Sender, workers int, timeout time.Duration) *Notifier {
	if workers <= 0 {
		workers = 1
	}
	return &Notifier{sender: sender, workers: workers, timeout: timeout, now: time.Now}
}

type delivery struct {
	uri          string
	notification *model.Notification
}

// Notify sends the full resource to every subscription whose criteria
// include event
func (n *Notifier) Notify(ctx context.Context, subs []*model.Resource, resource *model.Resource, event model.EventType) {
	n.NotifyDelta(ctx, subs, resource, nil, event)
}

// NotifyDelta is Notify where subscriptions asking for modified attributes
// receive delta instead of the full resource
func (n *Notifier) NotifyDelta(ctx context.Context, subs []*model.Resource, resource, delta *model.Resource, event model.EventType) {
	var deliveries []delivery
	for _, sub := range subs {
		if !Matches(sub, event) {
			continue
		}
		notification := n.build(sub, resource, delta, event)
		for _, uri := range sub.NotificationURIs {
			deliveries = append(deliveries, delivery{uri: uri, notification: notification})
		}
	}
	n.deliver(ctx, deliveries)
}

// NotifyDeletion reports the deletion of resource to its subscriptions and
// tells each subscriber that its subscription is gone with it
func (n *Notifier) NotifyDeletion(ctx context.Context, subs []*model.Resource, resource *model.Resource) {
	var deliveries []delivery
	for _, sub := range subs {
		if Matches(sub, model.EventDeleted) {
			notification := n.build(sub, resource, nil, model.EventDeleted)
			for _, uri := range sub.NotificationURIs {
				deliveries = append(deliveries, delivery{uri: uri, notification: notification})
			}
		}
		if d, ok := n.deletionNotice(sub); ok {
			deliveries = append(deliveries, d)
		}
	}
	n.deliver(ctx, deliveries)
}

// NotifySubscriptionDeleted tells the subscriber of a directly deleted
// subscription that it no longer exists
func (n *Notifier) NotifySubscriptionDeleted(ctx context.Context, sub *model.Resource) {
	if d, ok := n.deletionNotice(sub); ok {
		n.deliver(ctx, []delivery{d})
	}
}

func (n *Notifier) deletionNotice(sub *model.Resource) (delivery, bool) {
	if sub.SubscriberURI == "" {
		return delivery{}, false
	}
	return delivery{
		uri: sub.SubscriberURI,
		notification: &model.Notification{
			SubscriptionID:       sub.ResourceID,
			SubscriptionDeletion: true,
			Creator:              sub.Creator,
			Timestamp:            n.now(),
		},
	}, true
}

func (n *Notifier) build(sub, resource, delta *model.Resource, event model.EventType) *model.Notification {
	notification := &model.Notification{
		SubscriptionID: sub.ResourceID,
		EventType:      event,
		Creator:        sub.Creator,
		Timestamp:      n.now(),
	}
	switch sub.NotificationContentType {
	case model.ContentResourceID:
		notification.ResourceID = resource.ResourceID
	case model.ContentModifiedAttributes:
		if delta != nil {
			notification.Resource = delta.Clone()
		} else {
			notification.Resource = resource.Clone()
		}
		notification.ResourceID = resource.ResourceID
	default:
		notification.Resource = resource.Clone()
	}
	return notification
}

// deliver fans out on a context detached from the request, so a caller
// going away does not abort notifications of an already committed change
func (n *Notifier) deliver(ctx context.Context, deliveries []delivery) {
	if len(deliveries) == 0 {
		return
	}
	sendCtx := context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, n.timeout)
		defer cancel()
	}

	var g errgroup.Group
	g.SetLimit(n.workers)
	for _, d := range deliveries {
		d := d
		g.Go(func() error {
			if err := n.sender.Send(sendCtx, d.uri, d.notification); err != nil {
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				logger.Warn("Notification delivery failed",
					zap.String("subscription", d.notification.SubscriptionID),
					zap.String("uri", d.uri),
					zap.Error(err))
				return nil
			}
			metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
			return nil
		})
	}
	_ = g.Wait()
}

// Matches reports whether sub's criteria select event. A subscription
// without criteria only follows updates of its parent.
func Matches(sub *model.Resource, event model.EventType) bool {
	if len(sub.EventTypes) == 0 {
		return event == model.EventUpdated
	}
	for _, e := range sub.EventTypes {
		if e == event {
			return true
		}
	}
	return false
}
