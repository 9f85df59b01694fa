// notification/notifier_test.go
package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/notification"
)

type sent struct {
	uri          string
	notification *model.Notification
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]bool
}

func (r *recordingSender) Send(ctx context.Context, uri string, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[uri] {
		return errors.New("unreachable")
	}
	r.sent = append(r.sent, sent{uri: uri, notification: n})
	return nil
}

func (r *recordingSender) uris() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.sent {
		out = append(out, s.uri)
	}
	sort.Strings(out)
	return out
}

func subscription(id string, nct model.NotificationContentType, events []model.EventType, uris ...string) *model.Resource {
	return &model.Resource{
		ResourceID:              id,
		ResourceType:            model.TypeSubscription,
		NotificationURIs:        uris,
		EventTypes:              events,
		NotificationContentType: nct,
	}
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	container := &model.Resource{ResourceID: "/in-cse/cnt-1", ResourceType: model.TypeContainer, Labels: []string{"a"}}

	t.Run("Notify_DefaultCriteriaFollowUpdatesOnly", func(t *testing.T) {
		sender := &recordingSender{}
		notifier := notification.NewNotifier(sender, 4, time.Second)
		sub := subscription("/in-cse/sub-1", 0, nil, "http://a/notify")

		notifier.Notify(ctx, []*model.Resource{sub}, container, model.EventChildCreated)
		assert.Empty(t, sender.uris())

		notifier.Notify(ctx, []*model.Resource{sub}, container, model.EventUpdated)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, container.ResourceID, sender.sent[0].notification.Resource.ResourceID)
		assert.Equal(t, model.EventUpdated, sender.sent[0].notification.EventType)
	})

	t.Run("NotifyDelta_ContentTypes", func(t *testing.T) {
		sender := &recordingSender{}
		notifier := notification.NewNotifier(sender, 4, time.Second)
		delta := &model.Resource{Labels: []string{"b"}}
		subs := []*model.Resource{
			subscription("/in-cse/sub-all", model.ContentAllAttributes, []model.EventType{model.EventUpdated}, "http://all"),
			subscription("/in-cse/sub-mod", model.ContentModifiedAttributes, []model.EventType{model.EventUpdated}, "http://mod"),
			subscription("/in-cse/sub-id", model.ContentResourceID, []model.EventType{model.EventUpdated}, "http://id"),
		}

		notifier.NotifyDelta(ctx, subs, container, delta, model.EventUpdated)
		require.Len(t, sender.sent, 3)
		byURI := map[string]*model.Notification{}
		for _, s := range sender.sent {
			byURI[s.uri] = s.notification
		}
		assert.Equal(t, []string{"a"}, byURI["http://all"].Resource.Labels)
		assert.Equal(t, []string{"b"}, byURI["http://mod"].Resource.Labels)
		assert.Nil(t, byURI["http://id"].Resource)
		assert.Equal(t, container.ResourceID, byURI["http://id"].ResourceID)
	})

	t.Run("Notify_FailuresDoNotStopOtherDeliveries", func(t *testing.T) {
		sender := &recordingSender{fail: map[string]bool{"http://down": true}}
		notifier := notification.NewNotifier(sender, 1, time.Second)
		sub := subscription("/in-cse/sub-1", 0, []model.EventType{model.EventChildCreated}, "http://down", "http://up")

		notifier.Notify(ctx, []*model.Resource{sub}, container, model.EventChildCreated)
		assert.Equal(t, []string{"http://up"}, sender.uris())
	})

	t.Run("NotifyDeletion_InformsSubscriber", func(t *testing.T) {
		sender := &recordingSender{}
		notifier := notification.NewNotifier(sender, 4, time.Second)
		watching := subscription("/in-cse/sub-1", 0, []model.EventType{model.EventDeleted}, "http://watch")
		watching.SubscriberURI = "http://owner"
		passive := subscription("/in-cse/sub-2", 0, nil, "http://passive")

		notifier.NotifyDeletion(ctx, []*model.Resource{watching, passive}, container)
		assert.Equal(t, []string{"http://owner", "http://watch"}, sender.uris())
		for _, s := range sender.sent {
			if s.uri == "http://owner" {
				assert.True(t, s.notification.SubscriptionDeletion)
				assert.Equal(t, "/in-cse/sub-1", s.notification.SubscriptionID)
			}
		}
	})

	t.Run("Notify_DetachedFromCallerCancellation", func(t *testing.T) {
		sender := &recordingSender{}
		notifier := notification.NewNotifier(sender, 4, time.Second)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		notifier.Notify(cancelled, []*model.Resource{subscription("/in-cse/sub-1", 0, nil, "http://a")}, container, model.EventUpdated)
		assert.Equal(t, []string{"http://a"}, sender.uris())
	})
}

func TestSenders(t *testing.T) {
	var got model.Notification
	var origin string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin = r.Header.Get("X-M2M-Origin")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	multi := notification.NewMultiSender().Register(notification.NewHTTPSender(time.Second), "http", "https")
	n := &model.Notification{SubscriptionID: "/in-cse/sub-1", EventType: model.EventUpdated, Creator: "CAE1"}

	require.NoError(t, multi.Send(context.Background(), server.URL+"/notify", n))
	assert.Equal(t, "/in-cse/sub-1", got.SubscriptionID)
	assert.Equal(t, "CAE1", origin)

	assert.Error(t, multi.Send(context.Background(), "mqtt://broker/topic", n))
}
