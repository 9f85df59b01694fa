// federation/manager.go

// Package federation announces resources to other nodes and routes requests
// whose target lives elsewhere.
package federation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/identity"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/metrics"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// IManager is what the resource controllers depend on
type IManager interface {
	Announce(ctx context.Context, original, parent *model.Resource) []model.AnncCopy
	Deannounce(ctx context.Context, copies []model.AnncCopy) error
	Retarget(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive
}

type Manager struct {
	cseID           string
	adminOriginator string

	mu      sync.RWMutex
	local   Dispatcher
	remotes map[string]Remote
}

var _ IManager = &Manager{}

func NewManager(cseID, adminOriginator string) *Manager {
	return &Manager{
		cseID:           strings.Trim(cseID, "/"),
		adminOriginator: adminOriginator,
		remotes:         make(map[string]Remote),
	}
}

// SetLocal binds the dispatcher of this node. It is set after construction
// because the dispatcher itself depends on the manager.
func (m *Manager) SetLocal(local Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local = local
}

// AddRemote registers the way to reach cseID
func (m *Manager) AddRemote(cseID string, remote Remote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remotes[strings.Trim(cseID, "/")] = remote
}

// AnncTypeFor returns the announced variant of an announceable type
func AnncTypeFor(t model.ResourceType) (model.ResourceType, bool) {
	switch t {
	case model.TypeAE:
		return model.TypeAEAnnc, true
	case model.TypeFlexContainer:
		return model.TypeFlexContainerAnnc, true
	default:
		return 0, false
	}
}

// Announce creates an announced copy of original on every node of its
// announceTo list and returns the copies that were created. parent is the
// original's parent, whose own copies host the new ones when present.
// Nodes that cannot be reached are logged and left out.
func (m *Manager) Announce(ctx context.Context, original, parent *model.Resource) []model.AnncCopy {
	anncType, ok := AnncTypeFor(original.ResourceType)
	if !ok || len(original.AnnounceTo) == 0 {
		return nil
	}

	var copies []model.AnncCopy
	for _, target := range original.AnnounceTo {
		node := identity.NodeOf(strings.TrimPrefix(target, "/"))
		if node == "" || node == m.cseID {
			continue
		}

		req := &model.RequestPrimitive{
			Operation:         model.OperationCreate,
			From:              m.adminOriginator,
			To:                m.anncParentAddress(parent, node),
			RequestIdentifier: uuid.NewString(),
			ResourceType:      anncType,
			Content:           BuildAnnc(original, anncType),
		}
		resp := m.send(ctx, node, req)
		if resp.StatusCode != model.StatusCreated || resp.Content == nil {
			metrics.AnnouncementsTotal.WithLabelValues("announce", "failed").Inc()
			logger.Warn("Failed to announce resource",
				zap.String("resourceID", original.ResourceID),
				zap.String("node", node),
				zap.Int("status", int(resp.StatusCode)),
				zap.String("message", resp.Message))
			continue
		}

		metrics.AnnouncementsTotal.WithLabelValues("announce", "succeeded").Inc()
		copies = append(copies, model.AnncCopy{Node: node, Address: resp.Content.ResourceID})
		logger.Info("Resource announced",
			zap.String("resourceID", original.ResourceID),
			zap.String("node", node),
			zap.String("copy", resp.Content.ResourceID))
	}
	return copies
}

func (m *Manager) anncParentAddress(parent *model.Resource, node string) string {
	if parent != nil {
		for _, c := range parent.AnnouncedCopies {
			if c.Node == node {
				return c.Address
			}
		}
	}
	return "/" + node
}

// BuildAnnc projects original onto its announced variant: the link, the
// always-announced attributes and whatever announcedAttribute selects.
func BuildAnnc(original *model.Resource, anncType model.ResourceType) *model.Resource {
	annc := &model.Resource{
		ResourceType:        anncType,
		Name:                original.Name,
		Link:                original.ResourceID,
		ContainerDefinition: original.ContainerDefinition,
	}
	for _, attr := range original.AnnouncedAttribute {
		switch attr {
		case "lbl":
			annc.Labels = append([]string(nil), original.Labels...)
		case "api":
			annc.AppID = original.AppID
		case "or":
			annc.OntologyRef = original.OntologyRef
		case "nl":
			annc.NodeLink = original.NodeLink
		case "et":
			if original.ExpirationTime != nil {
				et := *original.ExpirationTime
				annc.ExpirationTime = &et
			}
		default:
			if ca := original.CustomAttribute(attr); ca != nil {
				annc.CustomAttributes = append(annc.CustomAttributes, *ca)
			}
		}
	}
	return annc
}

// Deannounce deletes announced copies. A copy already gone counts as
// deleted, since deleting a parent copy removes its children with it.
func (m *Manager) Deannounce(ctx context.Context, copies []model.AnncCopy) error {
	var errs error
	for _, c := range copies {
		req := &model.RequestPrimitive{
			Operation:         model.OperationDelete,
			From:              m.adminOriginator,
			To:                c.Address,
			RequestIdentifier: uuid.NewString(),
		}
		resp := m.send(ctx, c.Node, req)
		if resp.StatusCode == model.StatusDeleted || resp.StatusCode == model.StatusNotFound {
			metrics.AnnouncementsTotal.WithLabelValues("deannounce", "succeeded").Inc()
			continue
		}
		metrics.AnnouncementsTotal.WithLabelValues("deannounce", "failed").Inc()
		errs = multierr.Append(errs, fmt.Errorf("failed to delete announced copy %s on %s: %d %s",
			c.Address, c.Node, resp.StatusCode, resp.Message))
	}
	if errs != nil {
		logger.Warn("De-announcement incomplete", zap.Error(errs))
	}
	return errs
}

// Retarget issues req against the node owning req.To
func (m *Manager) Retarget(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
	return m.send(ctx, identity.NodeOf(req.To), req)
}

func (m *Manager) send(ctx context.Context, node string, req *model.RequestPrimitive) *model.ResponsePrimitive {
	m.mu.RLock()
	local := m.local
	remote, ok := m.remotes[node]
	m.mu.RUnlock()

	if node == m.cseID {
		if local == nil {
			return failure(req, fmt.Errorf("%w: local dispatcher not bound", echo_errors.ErrTargetNotReachable))
		}
		return local.Handle(ctx, req)
	}
	if !ok {
		return failure(req, fmt.Errorf("%w: no route to %s", echo_errors.ErrTargetNotReachable, node))
	}

	resp, err := remote.Send(ctx, req)
	if err != nil {
		return failure(req, err)
	}
	return resp
}

func failure(req *model.RequestPrimitive, err error) *model.ResponsePrimitive {
	resp := model.NewResponse(req, echo_errors.StatusFor(err))
	resp.Message = echo_errors.Message(err)
	return resp
}
