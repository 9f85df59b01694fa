// dao/resource_store.go

// Package dao persists the resource tree in Neo4j. Every resource is a
// Resource node holding its JSON representation; CHILD_OF edges carry the
// tree and CONSULTS edges the dynamicAuthorizationConsultation references.
package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	echo_neo4j "github.com/dev-mohitbeniwal/echo-cse/model/neo4j"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
)

const (
	labelResource = echo_neo4j.LabelResource
	relChildOf    = echo_neo4j.RelChildOf
	relConsults   = echo_neo4j.RelConsults

	constraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"
)

// CypherRunner is one open explicit transaction
type CypherRunner interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// OpenFunc starts a CypherRunner
type OpenFunc func(ctx context.Context) (CypherRunner, error)

type ResourceStore struct {
	open        OpenFunc
	lockTimeout time.Duration
}

var _ persistence.Store = &ResourceStore{}

// NewResourceStore makes sure the schema constraints exist and returns a
// store opening one write session per transaction on driver
func NewResourceStore(ctx context.Context, driver neo4j.DriverWithContext, lockTimeout time.Duration) (*ResourceStore, error) {
	store := NewResourceStoreWithOpener(func(ctx context.Context) (CypherRunner, error) {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		tx, err := session.BeginTransaction(ctx)
		if err != nil {
			session.Close(ctx)
			return nil, fmt.Errorf("failed to begin Neo4j transaction: %w", err)
		}
		return &explicitRunner{session: session, tx: tx}, nil
	}, lockTimeout)
	if err := store.EnsureUniqueConstraint(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func NewResourceStoreWithOpener(open OpenFunc, lockTimeout time.Duration) *ResourceStore {
	return &ResourceStore{open: open, lockTimeout: lockTimeout}
}

func (s *ResourceStore) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Resource ID")
	runner, err := s.open(ctx)
	if err != nil {
		return err
	}
	query := `CREATE CONSTRAINT unique_resource_id IF NOT EXISTS
        FOR (r:` + labelResource + `) REQUIRE r.id IS UNIQUE`
	if _, err := runner.Query(ctx, query, nil); err != nil {
		runner.Rollback(ctx)
		logger.Error("Failed to ensure unique constraint on Resource ID", zap.Error(err))
		return err
	}
	return runner.Commit(ctx)
}

func (s *ResourceStore) Begin(ctx context.Context) (persistence.Transaction, error) {
	runner, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	return &transaction{
		runner:      runner,
		lockTimeout: s.lockTimeout,
		created:     make(map[string]bool),
		locked:      make(map[string]bool),
	}, nil
}

// Close is a no-op; the driver belongs to the db package
func (s *ResourceStore) Close(ctx context.Context) error {
	return nil
}

type transaction struct {
	runner      CypherRunner
	lockTimeout time.Duration
	created     map[string]bool
	locked      map[string]bool
	hooks       persistence.RollbackHooks
	done        bool
}

func (t *transaction) active(ctx context.Context) error {
	if t.done {
		return persistence.ErrTxDone
	}
	return ctx.Err()
}

func (t *transaction) Find(ctx context.Context, id string) (*model.Resource, error) {
	if err := t.active(ctx); err != nil {
		return nil, err
	}
	records, err := t.runner.Query(ctx, `
        MATCH (r:`+labelResource+` {id: $id})
        RETURN r.data AS data`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find resource %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return decode(records[0])
}

func (t *transaction) Create(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	data, err := encode(r)
	if err != nil {
		return err
	}
	records, err := t.runner.Query(ctx, `
        CREATE (r:`+labelResource+` {id: $id, parentID: $parentID, type: $type, data: $data})
        WITH r
        OPTIONAL MATCH (p:`+labelResource+` {id: $parentID})
        FOREACH (_ IN CASE WHEN p IS NOT NULL THEN [1] ELSE [] END |
            CREATE (r)-[:`+relChildOf+`]->(p)
        )
        RETURN p IS NOT NULL AS parentFound`,
		map[string]any{
			"id":       r.ResourceID,
			"parentID": r.ParentID,
			"type":     int64(r.ResourceType),
			"data":     data,
		})
	if err != nil {
		var neo4jErr *neo4j.Neo4jError
		if errors.As(err, &neo4jErr) && neo4jErr.Code == constraintViolation {
			return fmt.Errorf("%w: %s", persistence.ErrDuplicateID, r.ResourceID)
		}
		return fmt.Errorf("failed to create resource %s: %w", r.ResourceID, err)
	}
	if r.ParentID != "" && !boolValue(records, "parentFound") {
		return fmt.Errorf("%w: %s", persistence.ErrParentNotFound, r.ParentID)
	}
	if err := t.link(ctx, r); err != nil {
		return err
	}
	t.created[r.ResourceID] = true
	return nil
}

func (t *transaction) Update(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	if !t.created[r.ResourceID] && !t.locked[r.ResourceID] {
		return fmt.Errorf("%w: %s", persistence.ErrNotLocked, r.ResourceID)
	}
	if err := t.write(ctx, r); err != nil {
		return err
	}
	return t.link(ctx, r)
}

func (t *transaction) write(ctx context.Context, r *model.Resource) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	records, err := t.runner.Query(ctx, `
        MATCH (r:`+labelResource+` {id: $id})
        SET r.data = $data, r.type = $type
        RETURN r.id AS id`,
		map[string]any{"id": r.ResourceID, "data": data, "type": int64(r.ResourceType)})
	if err != nil {
		return fmt.Errorf("failed to update resource %s: %w", r.ResourceID, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrEntityGone, r.ResourceID)
	}
	return nil
}

// link replaces the CONSULTS edges of r with its current daci list
func (t *transaction) link(ctx context.Context, r *model.Resource) error {
	daci := r.DynamicAuthorizationConsultationIDs
	if daci == nil {
		daci = []string{}
	}
	records, err := t.runner.Query(ctx, `
        MATCH (r:`+labelResource+` {id: $id})
        OPTIONAL MATCH (r)-[old:`+relConsults+`]->()
        DELETE old
        WITH DISTINCT r
        UNWIND $daci AS dacID
        MATCH (d:`+labelResource+` {id: dacID, type: $dacType})
        CREATE (r)-[:`+relConsults+`]->(d)
        RETURN count(d) AS linked`,
		map[string]any{"id": r.ResourceID, "daci": daci, "dacType": int64(model.TypeDAC)})
	if err != nil {
		return fmt.Errorf("failed to link resource %s: %w", r.ResourceID, err)
	}
	if int(intValue(records, "linked")) < len(daci) {
		return fmt.Errorf("%w: %v", persistence.ErrDanglingReference, daci)
	}
	return nil
}

func (t *transaction) Delete(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	if !t.created[r.ResourceID] && !t.locked[r.ResourceID] {
		return fmt.Errorf("%w: %s", persistence.ErrNotLocked, r.ResourceID)
	}
	if err := t.sever(ctx, r.ResourceID); err != nil {
		return err
	}
	if _, err := t.runner.Query(ctx, `
        MATCH (root:`+labelResource+` {id: $id})<-[:`+relChildOf+`*0..]-(d:`+labelResource+`)
        DETACH DELETE d
        RETURN count(d) AS removed`, map[string]any{"id": r.ResourceID}); err != nil {
		return fmt.Errorf("failed to delete resource %s: %w", r.ResourceID, err)
	}
	return nil
}

// sever drops references to the DACs inside the doomed subtree from the
// resources outside it
func (t *transaction) sever(ctx context.Context, rootID string) error {
	records, err := t.runner.Query(ctx, `
        MATCH (root:`+labelResource+` {id: $id})<-[:`+relChildOf+`*0..]-(dac:`+labelResource+` {type: $dacType})<-[:`+relConsults+`]-(ref:`+labelResource+`)
        WHERE NOT (ref)-[:`+relChildOf+`*0..]->(root)
        RETURN dac.id AS dacID, ref.data AS data`,
		map[string]any{"id": rootID, "dacType": int64(model.TypeDAC)})
	if err != nil {
		return fmt.Errorf("failed to find referrers below %s: %w", rootID, err)
	}

	referrers := make(map[string]*model.Resource)
	for _, record := range records {
		ref, err := decode(record)
		if err != nil {
			return err
		}
		if seen, ok := referrers[ref.ResourceID]; ok {
			ref = seen
		}
		dacID, _ := record.Get("dacID")
		ref.DynamicAuthorizationConsultationIDs = without(ref.DynamicAuthorizationConsultationIDs, fmt.Sprint(dacID))
		referrers[ref.ResourceID] = ref
	}
	for _, ref := range referrers {
		if err := t.write(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

// Lock writes a marker property on the node, which makes Neo4j hold its
// write lock until the transaction ends
func (t *transaction) Lock(ctx context.Context, r *model.Resource) error {
	if err := t.active(ctx); err != nil {
		return err
	}
	if t.created[r.ResourceID] || t.locked[r.ResourceID] {
		return nil
	}
	lockCtx := ctx
	if t.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, t.lockTimeout)
		defer cancel()
	}
	_, err := t.runner.Query(lockCtx, `
        MATCH (r:`+labelResource+` {id: $id})
        SET r.lockedAt = timestamp()
        RETURN r.id AS id`, map[string]any{"id": r.ResourceID})
	if err != nil {
		if ctx.Err() == nil && errors.Is(lockCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", persistence.ErrLockTimeout, r.ResourceID)
		}
		return fmt.Errorf("failed to lock resource %s: %w", r.ResourceID, err)
	}
	t.locked[r.ResourceID] = true
	return nil
}

func (t *transaction) BackLinks(ctx context.Context, dacID string) ([]string, error) {
	if err := t.active(ctx); err != nil {
		return nil, err
	}
	records, err := t.runner.Query(ctx, `
        MATCH (ref:`+labelResource+`)-[:`+relConsults+`]->(:`+labelResource+` {id: $id})
        RETURN ref.id AS id`, map[string]any{"id": dacID})
	if err != nil {
		return nil, fmt.Errorf("failed to read back-links of %s: %w", dacID, err)
	}
	links := make([]string, 0, len(records))
	for _, record := range records {
		if id, ok := record.Get("id"); ok {
			links = append(links, fmt.Sprint(id))
		}
	}
	sort.Strings(links)
	return links, nil
}

func (t *transaction) OnRollback(fn func()) {
	t.hooks.Add(fn)
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return persistence.ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		t.abort(context.WithoutCancel(ctx))
		return err
	}
	t.done = true
	if err := t.runner.Commit(ctx); err != nil {
		t.hooks.Run()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.hooks.Discard()
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	return t.abort(ctx)
}

func (t *transaction) abort(ctx context.Context) error {
	t.done = true
	defer t.hooks.Run()
	if err := t.runner.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func encode(r *model.Resource) (string, error) {
	stored := r.Clone()
	stored.ChildResources = nil
	stored.LinkedResourceIDs = nil
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal resource %s: %w", r.ResourceID, err)
	}
	return string(data), nil
}

func decode(record *neo4j.Record) (*model.Resource, error) {
	raw, ok := record.Get("data")
	if !ok {
		return nil, fmt.Errorf("record has no data column")
	}
	data, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected data column type %T", raw)
	}
	var r model.Resource
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource: %w", err)
	}
	return &r, nil
}

func boolValue(records []*neo4j.Record, key string) bool {
	if len(records) == 0 {
		return false
	}
	v, _ := records[0].Get(key)
	b, _ := v.(bool)
	return b
}

func intValue(records []*neo4j.Record, key string) int64 {
	if len(records) == 0 {
		return 0
	}
	v, _ := records[0].Get(key)
	n, _ := v.(int64)
	return n
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// explicitRunner runs queries on a driver transaction and closes its
// session once the transaction ends
type explicitRunner struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
}

func (r *explicitRunner) Query(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (r *explicitRunner) Commit(ctx context.Context) error {
	defer r.session.Close(ctx)
	return r.tx.Commit(ctx)
}

func (r *explicitRunner) Rollback(ctx context.Context) error {
	defer r.session.Close(ctx)
	return r.tx.Rollback(ctx)
}
