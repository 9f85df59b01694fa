// controller/retrieve_test.go
package controller_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

func names(resources []*model.Resource) []string {
	out := make([]string, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.Name)
	}
	return out
}

func TestRetrieveDepth(t *testing.T) {
	f := newFixture(t)

	root := f.mustCreate(t, f.base.ResourceID, model.TypeContainer, &model.Resource{Name: "root"})
	for _, name := range []string{"a", "b", "c"} {
		child := f.mustCreate(t, root.ResourceID, model.TypeContainer, &model.Resource{Name: name})
		f.mustCreate(t, child.ResourceID, model.TypeContainer, &model.Resource{Name: "x"})
	}

	t.Run("Retrieve_LevelOne", func(t *testing.T) {
		resp, err := f.retrieve(admin, root.ResourceID, model.ResultContentAttributesChildren, 1, 0)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, names(resp.Content.ChildResources))
		for _, child := range resp.Content.ChildResources {
			assert.Empty(t, child.ChildResources)
		}
	})

	t.Run("Retrieve_LevelTwo", func(t *testing.T) {
		resp, err := f.retrieve(admin, root.ResourceID, model.ResultContentAttributesChildren, 2, 0)
		require.NoError(t, err)
		require.Len(t, resp.Content.ChildResources, 3)
		for _, child := range resp.Content.ChildResources {
			assert.Equal(t, []string{"x"}, names(child.ChildResources))
			assert.Equal(t, child.HierarchicalURI+"/x", child.ChildResources[0].HierarchicalURI)
		}
	})

	t.Run("Retrieve_Offset", func(t *testing.T) {
		resp, err := f.retrieve(admin, root.ResourceID, model.ResultContentAttributesChildren, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, names(resp.Content.ChildResources))

		resp, err = f.retrieve(admin, root.ResourceID, model.ResultContentAttributesChildren, 1, 5)
		require.NoError(t, err)
		assert.Empty(t, resp.Content.ChildResources)
	})

	t.Run("Retrieve_LevelZero", func(t *testing.T) {
		resp, err := f.retrieve(admin, root.ResourceID, model.ResultContentAttributesChildren, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "root", resp.Content.Name)
		assert.Empty(t, resp.Content.ChildResources)
	})

	t.Run("Retrieve_ChildRefs", func(t *testing.T) {
		resp, err := f.retrieve(admin, root.ResourceID, model.ResultContentChildRefs, 2, 0)
		require.NoError(t, err)
		assert.Len(t, resp.Content.Children, 6)
		assert.Empty(t, resp.Content.Name)

		resp, err = f.retrieve(admin, root.ResourceID, model.ResultContentAttributesChildRefs, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, "root", resp.Content.Name)
		assert.Len(t, resp.Content.Children, 3)
	})

	t.Run("Retrieve_DefaultAttributesOnly", func(t *testing.T) {
		resp, err := f.retrieve(admin, root.ResourceID, "", 3, 0)
		require.NoError(t, err)
		assert.Empty(t, resp.Content.Children)
		assert.Empty(t, resp.Content.ChildResources)
	})

	t.Run("Retrieve_Nothing", func(t *testing.T) {
		resp, err := f.retrieve(admin, root.ResourceID, model.ResultContentNothing, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, model.StatusOK, resp.StatusCode)
		assert.Nil(t, resp.Content)
	})

	t.Run("Retrieve_UnknownResultContent", func(t *testing.T) {
		_, err := f.retrieve(admin, root.ResourceID, "everything", 1, 0)
		assert.ErrorIs(t, err, echo_errors.ErrBadRequest)
	})
}

func TestRetrieveSkipsForbiddenChildren(t *testing.T) {
	f := newFixture(t)

	acp := f.mustCreate(t, f.base.ResourceID, model.TypeAccessControlPolicy, &model.Resource{
		Name:           "acpReader",
		Privileges:     []model.AccessControlRule{{Originators: []string{"Creader"}, Operations: model.MaskRetrieve}},
		SelfPrivileges: []model.AccessControlRule{{Originators: []string{admin}, Operations: model.MaskAll}},
	})
	root := f.mustCreate(t, f.base.ResourceID, model.TypeContainer, &model.Resource{
		Name:                   "root",
		AccessControlPolicyIDs: []string{acp.ResourceID},
	})
	f.mustCreate(t, root.ResourceID, model.TypeContainer, &model.Resource{
		Name:                   "open",
		AccessControlPolicyIDs: []string{acp.ResourceID},
	})
	f.mustCreate(t, root.ResourceID, model.TypeContainer, &model.Resource{
		Name:                   "hidden",
		AccessControlPolicyIDs: []string{f.base.AccessControlPolicyIDs[0]},
	})

	resp, err := f.retrieve("Creader", root.ResourceID, model.ResultContentAttributesChildren, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, names(resp.Content.ChildResources))
}

func TestSubscriptionNotifications(t *testing.T) {
	f := newFixture(t)

	room := f.mustCreate(t, f.base.ResourceID, model.TypeContainer, &model.Resource{Name: "room"})
	f.mustCreate(t, room.ResourceID, model.TypeSubscription, &model.Resource{
		Name:                    "sub1",
		NotificationURIs:        []string{"http://example.com/delta"},
		EventTypes:              []model.EventType{model.EventUpdated},
		NotificationContentType: model.ContentModifiedAttributes,
	})
	sub3 := f.mustCreate(t, room.ResourceID, model.TypeSubscription, &model.Resource{
		Name:             "sub3",
		NotificationURIs: []string{"http://example.com/gone"},
		EventTypes:       []model.EventType{model.EventDeleted},
		SubscriberURI:    "http://example.com/subscriber",
	})
	sub2 := f.mustCreate(t, room.ResourceID, model.TypeSubscription, &model.Resource{
		Name:                    "sub2",
		NotificationURIs:        []string{"http://example.com/children"},
		EventTypes:              []model.EventType{model.EventChildCreated, model.EventChildDeleted},
		NotificationContentType: model.ContentResourceID,
	})

	t.Run("Create_DefaultContentType", func(t *testing.T) {
		assert.Equal(t, model.ContentAllAttributes, sub3.NotificationContentType)
	})

	t.Run("Update_NotifiesDelta", func(t *testing.T) {
		_, err := f.update(admin, room.ResourceID, &model.Resource{Labels: []string{"kitchen"}})
		require.NoError(t, err)

		sent := f.sender.to("http://example.com/delta")
		require.Len(t, sent, 1)
		assert.Equal(t, model.EventUpdated, sent[0].EventType)
		assert.Equal(t, []string{"kitchen"}, sent[0].Resource.Labels)
		assert.Empty(t, sent[0].Resource.Name)
		assert.Equal(t, room.ResourceID, sent[0].ResourceID)
		assert.Empty(t, f.sender.to("http://example.com/children"))
	})

	t.Run("Create_NotifiesChildCreated", func(t *testing.T) {
		first := f.mustCreate(t, room.ResourceID, model.TypeContainer, &model.Resource{Name: "lamp"})
		second := f.mustCreate(t, room.ResourceID, model.TypeContainer, &model.Resource{Name: "fan"})

		sent := f.sender.to("http://example.com/children")
		require.Len(t, sent, 2)
		assert.Equal(t, first.ResourceID, sent[0].ResourceID)
		assert.Equal(t, second.ResourceID, sent[1].ResourceID)
		assert.Nil(t, sent[0].Resource)
		assert.Equal(t, sub2.ResourceID, sent[0].SubscriptionID)
		assert.Equal(t, model.EventChildCreated, sent[1].EventType)
	})

	t.Run("Delete_NotifiesSubscribers", func(t *testing.T) {
		_, err := f.delete(admin, room.ResourceID)
		require.NoError(t, err)

		gone := f.sender.to("http://example.com/gone")
		require.Len(t, gone, 1)
		assert.Equal(t, model.EventDeleted, gone[0].EventType)
		assert.Equal(t, "room", gone[0].Resource.Name)

		notices := f.sender.to("http://example.com/subscriber")
		require.Len(t, notices, 1)
		assert.True(t, notices[0].SubscriptionDeletion)
		assert.Equal(t, sub3.ResourceID, notices[0].SubscriptionID)

		assert.Len(t, f.sender.to("http://example.com/delta"), 1, "updates only")
	})

	t.Run("Create_InvalidSubscription", func(t *testing.T) {
		_, err := f.create(admin, f.base.ResourceID, model.TypeSubscription, &model.Resource{
			Name:             "nowhere",
			NotificationURIs: []string{"not a uri"},
		})
		assert.ErrorIs(t, err, echo_errors.ErrBadRequest)
	})
}
