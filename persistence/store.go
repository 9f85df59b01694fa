// persistence/store.go

// Package persistence defines the transactional store the resource core is
// written against. Any engine satisfying Store is interchangeable.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

var (
	ErrTxDone            = errors.New("transaction already committed or rolled back")
	ErrNotLocked         = errors.New("entity must be locked before it is mutated")
	ErrDuplicateID       = fmt.Errorf("%w: resource ID already exists", echo_errors.ErrConflict)
	ErrParentNotFound    = fmt.Errorf("%w: parent no longer exists", echo_errors.ErrResourceNotFound)
	ErrEntityGone        = fmt.Errorf("%w: entity was deleted concurrently", echo_errors.ErrResourceNotFound)
	ErrDanglingReference = fmt.Errorf("%w: referenced dynamicAuthorizationConsultation does not exist", echo_errors.ErrConflict)
	ErrLockTimeout       = fmt.Errorf("lock wait timed out: %w", context.DeadlineExceeded)
)

// Store opens transactions. Implementations must be safe for concurrent use.
type Store interface {
	Begin(ctx context.Context) (Transaction, error)
	Close(ctx context.Context) error
}

// Transaction is one logical unit of work. Writes are invisible to other
// transactions until Commit. Update and Delete require the entity to be
// locked by this transaction unless it was created by it. A Transaction is
// used by one goroutine at a time.
type Transaction interface {
	// Find returns nil, nil when the entity does not exist
	Find(ctx context.Context, id string) (*model.Resource, error)
	Create(ctx context.Context, r *model.Resource) error
	Update(ctx context.Context, r *model.Resource) error
	// Delete removes r and every entity whose ParentID transitively equals r's ID
	Delete(ctx context.Context, r *model.Resource) error
	// Lock takes an exclusive hold on r until Commit or Rollback
	Lock(ctx context.Context, r *model.Resource) error
	// BackLinks lists the resources referencing the given DAC
	BackLinks(ctx context.Context, dacID string) ([]string, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// OnRollback registers fn to run if the transaction does not commit
	OnRollback(fn func())
}

// RollbackHooks collects compensations for side effects made outside the
// store (e.g. URI registrations) during a transaction.
type RollbackHooks struct {
	mu    sync.Mutex
	hooks []func()
}

func (h *RollbackHooks) Add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

// Run executes the hooks newest first and forgets them
func (h *RollbackHooks) Run() {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// Discard forgets the hooks after a successful commit
func (h *RollbackHooks) Discard() {
	h.mu.Lock()
	h.hooks = nil
	h.mu.Unlock()
}
