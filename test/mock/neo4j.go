// test/mock/neo4j.go
package mock

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"
)

// MockCypherRunner is a mock implementation of dao.CypherRunner
type MockCypherRunner struct {
	mock.Mock
}

func (m *MockCypherRunner) Query(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	args := m.Called(ctx, cypher, params)
	records, _ := args.Get(0).([]*neo4j.Record)
	return records, args.Error(1)
}

func (m *MockCypherRunner) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCypherRunner) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Record builds a driver record from alternating keys and values
func Record(pairs ...any) *neo4j.Record {
	record := &neo4j.Record{}
	for i := 0; i+1 < len(pairs); i += 2 {
		record.Keys = append(record.Keys, pairs[i].(string))
		record.Values = append(record.Values, pairs[i+1])
	}
	return record
}
