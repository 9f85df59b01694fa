package identity_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/identity"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

func TestGeneratorNamespacesIDs(t *testing.T) {
	gen := identity.NewGenerator("in-cse")
	id1, name1 := gen.NewID("fcnt")
	id2, _ := gen.NewID("fcnt")

	assert.True(t, strings.HasPrefix(id1, "/in-cse/fcnt-"))
	assert.True(t, strings.HasPrefix(name1, "fcnt_"))
	assert.Equal(t, strings.TrimPrefix(id1, "/in-cse/fcnt-"), strings.TrimPrefix(name1, "fcnt_"))
	assert.NotEqual(t, id1, id2)
}

func TestURIMapper(t *testing.T) {
	mapper, err := identity.NewURIMapper()
	require.NoError(t, err)

	t.Run("Register_Conflict", func(t *testing.T) {
		require.NoError(t, mapper.Register("/in-cse/in-name/a", "/in-cse/ae-1", model.TypeAE))
		err := mapper.Register("/in-cse/in-name/a", "/in-cse/ae-2", model.TypeAE)
		assert.ErrorIs(t, err, identity.ErrURIConflict)
		assert.ErrorIs(t, err, echo_errors.ErrConflict)

		entry, ok := mapper.Resolve("/in-cse/in-name/a")
		require.True(t, ok)
		assert.Equal(t, "/in-cse/ae-1", entry.ResourceID)
	})

	t.Run("UnregisterTree_And_Restore", func(t *testing.T) {
		require.NoError(t, mapper.Register("/in-cse/in-name/a/b", "/in-cse/cnt-1", model.TypeContainer))
		require.NoError(t, mapper.Register("/in-cse/in-name/a/b/c", "/in-cse/cnt-2", model.TypeContainer))
		require.NoError(t, mapper.Register("/in-cse/in-name/ab", "/in-cse/cnt-3", model.TypeContainer))

		removed, err := mapper.UnregisterTree("/in-cse/in-name/a")
		require.NoError(t, err)
		assert.Len(t, removed, 3)

		_, ok := mapper.Resolve("/in-cse/in-name/a/b/c")
		assert.False(t, ok)
		_, ok = mapper.Resolve("/in-cse/in-name/ab")
		assert.True(t, ok, "sibling sharing a name prefix must survive")

		mapper.Restore(removed)
		_, ok = mapper.Resolve("/in-cse/in-name/a/b")
		assert.True(t, ok)
	})

	t.Run("Unregister_Unknown", func(t *testing.T) {
		assert.NoError(t, mapper.Unregister("/in-cse/in-name/nope"))
	})
}

func TestURIMapperConcurrentRegisterHasOneWinner(t *testing.T) {
	mapper, err := identity.NewURIMapper()
	require.NoError(t, err)

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if mapper.Register("/in-cse/in-name/c1", "id", model.TypeContainer) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestAddressingParse(t *testing.T) {
	a := identity.NewAddressing("in-cse", "in-name")

	cases := []struct {
		to      string
		kind    identity.TargetKind
		address string
	}{
		{"/in-cse", identity.TargetCSEBase, "/in-cse"},
		{"in-name/ae1/cnt", identity.TargetHierarchical, "/in-cse/in-name/ae1/cnt"},
		{"/in-cse/in-name/ae1", identity.TargetHierarchical, "/in-cse/in-name/ae1"},
		{"/in-cse/fcnt-123", identity.TargetUnstructured, "/in-cse/fcnt-123"},
		{"fcnt-123", identity.TargetUnstructured, "/in-cse/fcnt-123"},
		{"//example.net/in-cse/in-name/", identity.TargetHierarchical, "/in-cse/in-name"},
		{"/mn-cse/mn-name/x", identity.TargetRemote, "/mn-cse/mn-name/x"},
	}
	for _, tc := range cases {
		target, err := a.Parse(tc.to)
		require.NoError(t, err, tc.to)
		assert.Equal(t, tc.kind, target.Kind, tc.to)
		assert.Equal(t, tc.address, target.Address, tc.to)
	}

	_, err := a.Parse("  ")
	assert.ErrorIs(t, err, echo_errors.ErrBadRequest)
	assert.Equal(t, "mn-cse", identity.NodeOf("/mn-cse/fcnta-1"))
}
