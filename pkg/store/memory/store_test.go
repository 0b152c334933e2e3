package memory

import (
	"context"
	"testing"

	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryConformance(t *testing.T) {
	storetest.Conformance(t, func(_ *testing.T) store.Store {
		return New()
	})
}

func TestMemoryString(t *testing.T) {
	assert.Equal(t, "memory", New().String())
}

func TestMemorySnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	content := []byte(`{"version":"1.0.0"}`)
	r1, err := s.CreatePackage(ctx, "pkg-a", content, "")
	require.NoError(t, err)

	// mutating the caller buffer must not alter the stored snapshot
	content[len(content)-2] = '1'
	_, got, err := s.GetRevision(ctx, "pkg-a", r1.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, string(got))

	// mutating a fetched buffer must not alter the stored snapshot either
	got[len(got)-2] = '2'
	_, again, err := s.GetRevision(ctx, "pkg-a", r1.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, string(again))
}

func TestMemoryIndependentInstances(t *testing.T) {
	ctx := context.Background()
	s1 := New()
	s2 := New()

	_, err := s1.CreatePackage(ctx, "pkg-a", []byte(`{"v":1}`), "")
	require.NoError(t, err)

	// no process-wide shared state between instances
	_, _, err = s2.GetRevision(ctx, "pkg-a", "")
	require.Error(t, err)
}
