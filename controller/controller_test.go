// controller/controller_test.go
package controller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo-cse/controller"
	"github.com/dev-mohitbeniwal/echo-cse/identity"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/notification"
	"github.com/dev-mohitbeniwal/echo-cse/pdp/engine"
	"github.com/dev-mohitbeniwal/echo-cse/persistence/memory"
	"github.com/dev-mohitbeniwal/echo-cse/service"
	"github.com/dev-mohitbeniwal/echo-cse/util"
)

const admin = "CAdmin"

type sent struct {
	uri          string
	notification *model.Notification
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingSender) Send(ctx context.Context, uri string, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{uri: uri, notification: n})
	return nil
}

func (r *recordingSender) to(uri string) []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, s := range r.sent {
		if s.uri == uri {
			out = append(out, s.notification)
		}
	}
	return out
}

type fixture struct {
	ctrl   *controller.Controller
	store  *memory.Store
	uris   *identity.URIMapper
	sender *recordingSender
	bus    *util.EventBus
	base   *model.Resource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := memory.NewStore(5 * time.Second)
	require.NoError(t, err)
	uris, err := identity.NewURIMapper()
	require.NoError(t, err)
	ids := identity.NewGenerator("in-cse")
	addressing := identity.NewAddressing("in-cse", "in-name")
	evaluator, err := engine.NewPolicyEvaluator(admin, 128, nil)
	require.NoError(t, err)
	sender := &recordingSender{}
	bus := util.NewEventBus()

	ctrl := controller.NewController(controller.Dependencies{
		Store:      store,
		URIs:       uris,
		IDs:        ids,
		Addressing: addressing,
		Evaluator:  evaluator,
		Notifier:   notification.NewNotifier(sender, 4, time.Second),
		EventBus:   bus,
		MaxLevel:   10,
		MaxResults: 100,
	})

	base, err := service.Bootstrap(ctx, store, uris, ids, service.BootstrapConfig{
		Addressing:              addressing,
		AdminOriginator:         admin,
		RegistrationOriginators: []string{"C*"},
	})
	require.NoError(t, err)
	return &fixture{ctrl: ctrl, store: store, uris: uris, sender: sender, bus: bus, base: base}
}

func (f *fixture) create(from, parentID string, ty model.ResourceType, content *model.Resource) (*model.ResponsePrimitive, error) {
	return f.ctrl.Create(context.Background(), &model.RequestPrimitive{
		Operation:    model.OperationCreate,
		From:         from,
		ResourceType: ty,
		Content:      content,
	}, parentID)
}

// mustCreate creates as the administrative originator and returns the
// created representation
func (f *fixture) mustCreate(t *testing.T, parentID string, ty model.ResourceType, content *model.Resource) *model.Resource {
	t.Helper()
	resp, err := f.create(admin, parentID, ty, content)
	require.NoError(t, err)
	require.Equal(t, model.StatusCreated, resp.StatusCode)
	require.NotNil(t, resp.Content)
	return resp.Content
}

func (f *fixture) retrieve(from, id string, rcn model.ResultContent, level, offset int) (*model.ResponsePrimitive, error) {
	return f.ctrl.Retrieve(context.Background(), &model.RequestPrimitive{
		Operation:     model.OperationRetrieve,
		From:          from,
		ResultContent: rcn,
		Level:         level,
		Offset:        offset,
	}, id)
}

func (f *fixture) update(from, id string, content *model.Resource) (*model.ResponsePrimitive, error) {
	return f.ctrl.Update(context.Background(), &model.RequestPrimitive{
		Operation: model.OperationUpdate,
		From:      from,
		Content:   content,
	}, id)
}

func (f *fixture) delete(from, id string) (*model.ResponsePrimitive, error) {
	return f.ctrl.Delete(context.Background(), &model.RequestPrimitive{
		Operation: model.OperationDelete,
		From:      from,
	}, id)
}

func boolPtr(b bool) *bool {
	return &b
}
