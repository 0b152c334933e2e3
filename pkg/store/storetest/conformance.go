// Copyright © 2019 One Concern

// Package storetest replays a single scenario set against any
// implementation of the store capability interface.
//
// The in-memory backend is the gold-standard target: a new backend is
// considered conformant when this suite passes against it with the
// same outcomes.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/oneconcern/metastore/pkg/errors"
	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory builds a fresh, empty store for a single scenario
type Factory func(t *testing.T) store.Store

var testContributor = model.Contributor{Name: "tester", Email: "test@example.com"}

// Conformance verifies the capability contract against a backend
func Conformance(t *testing.T, factory Factory) {
	scenarios := []struct {
		name string
		run  func(t *testing.T, s store.Store)
	}{
		{"create and fetch", createAndFetch},
		{"create duplicate", createDuplicate},
		{"history monotonicity", historyMonotonicity},
		{"conflict on stale base", conflictOnStaleBase},
		{"force append", forceAppend},
		{"append to missing package", appendToMissingPackage},
		{"historical revisions are immutable", historicalRevisions},
		{"tag resolution stability", tagResolutionStability},
		{"tag duplicate and delete", tagDuplicateAndDelete},
		{"delete package", deletePackage},
		{"not found reads", notFoundReads},
		{"invalid arguments", invalidArguments},
		{"concurrent create race", concurrentCreateRace},
		{"concurrent append race", concurrentAppendRace},
	}
	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			scenario.run(t, factory(t))
		})
	}
}

func createAndFetch(t *testing.T, s store.Store) {
	ctx := context.Background()
	content := []byte(`{"name":"mypackage","version":"1.0.0"}`)

	r1, err := s.CreatePackage(ctx, "pkg-a", content, "initial revision", testContributor)
	require.NoError(t, err)
	assert.Equal(t, "pkg-a", r1.PackageID)
	assert.NotEmpty(t, r1.ID)
	assert.Empty(t, r1.Parent)
	assert.False(t, r1.Timestamp.IsZero())
	assert.Equal(t, "initial revision", r1.Message)

	head, got, err := s.GetRevision(ctx, "pkg-a", "")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, head.ID)
	assert.JSONEq(t, string(content), string(got))

	byID, got, err := s.GetRevision(ctx, "pkg-a", r1.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, byID.ID)
	assert.JSONEq(t, string(content), string(got))

	// reads are idempotent
	again, gotAgain, err := s.GetRevision(ctx, "pkg-a", "")
	require.NoError(t, err)
	assert.Equal(t, head.ID, again.ID)
	assert.Equal(t, got, gotAgain)
}

func createDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"v":1}`), "")
	require.NoError(t, err)

	_, err = s.CreatePackage(ctx, "pkg-a", []byte(`{"v":2}`), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))
}

func historyMonotonicity(t *testing.T, s store.Store) {
	ctx := context.Background()
	const updates = 4

	head, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"version":"0"}`), "rev 0")
	require.NoError(t, err)

	ids := []string{head.ID}
	for i := 1; i <= updates; i++ {
		head, err = s.AppendRevision(ctx, "pkg-a", head.ID,
			[]byte(`{"version":"`+string(rune('0'+i))+`"}`), "next")
		require.NoError(t, err)
		ids = append(ids, head.ID)
	}

	revisions, err := s.ListRevisions(ctx, "pkg-a")
	require.NoError(t, err)
	require.Len(t, revisions, updates+1)

	// newest first, parent chain intact
	for i, revision := range revisions {
		assert.Equal(t, ids[updates-i], revision.ID)
		if i < updates {
			assert.Equal(t, revisions[i+1].ID, revision.Parent)
		}
	}
	assert.Empty(t, revisions.Last().Parent)
	assert.Equal(t, head.ID, revisions[0].ID)
}

func conflictOnStaleBase(t *testing.T, s store.Store) {
	ctx := context.Background()
	r1, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"version":"1.0.0"}`), "")
	require.NoError(t, err)

	r2, err := s.AppendRevision(ctx, "pkg-a", r1.ID, []byte(`{"version":"1.0.1"}`), "")
	require.NoError(t, err)

	// stale base: head moved to r2
	_, err = s.AppendRevision(ctx, "pkg-a", r1.ID, []byte(`{"version":"1.0.2"}`), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrConflict))

	var conflict *store.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "pkg-a", conflict.PackageID)
	assert.Equal(t, r1.ID, conflict.Expected)
	assert.Equal(t, r2.ID, conflict.Head)

	// fresh base succeeds
	r3, err := s.AppendRevision(ctx, "pkg-a", r2.ID, []byte(`{"version":"1.0.2"}`), "")
	require.NoError(t, err)
	assert.Equal(t, r2.ID, r3.Parent)
}

func forceAppend(t *testing.T, s store.Store) {
	ctx := context.Background()
	r1, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"v":1}`), "")
	require.NoError(t, err)
	_, err = s.AppendRevision(ctx, "pkg-a", r1.ID, []byte(`{"v":2}`), "")
	require.NoError(t, err)

	// an empty expected parent means last write wins
	forced, err := s.AppendRevision(ctx, "pkg-a", "", []byte(`{"v":3}`), "forced")
	require.NoError(t, err)

	head, content, err := s.GetRevision(ctx, "pkg-a", "")
	require.NoError(t, err)
	assert.Equal(t, forced.ID, head.ID)
	assert.JSONEq(t, `{"v":3}`, string(content))
}

func appendToMissingPackage(t *testing.T, s store.Store) {
	_, err := s.AppendRevision(context.Background(), "no-such-pkg", "", []byte(`{}`), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func historicalRevisions(t *testing.T, s store.Store) {
	ctx := context.Background()
	v1 := []byte(`{"name":"mypackage","version":"1.0.0"}`)
	v2 := []byte(`{"name":"mypackage","version":"1.0.1"}`)

	r1, err := s.CreatePackage(ctx, "pkg-a", v1, "")
	require.NoError(t, err)
	_, err = s.AppendRevision(ctx, "pkg-a", r1.ID, v2, "")
	require.NoError(t, err)

	_, got, err := s.GetRevision(ctx, "pkg-a", r1.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(v1), string(got))
}

func tagResolutionStability(t *testing.T, s store.Store) {
	ctx := context.Background()
	r1, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"version":"1.0.0"}`), "")
	require.NoError(t, err)
	r2, err := s.AppendRevision(ctx, "pkg-a", r1.ID, []byte(`{"version":"1.0.1"}`), "")
	require.NoError(t, err)

	tag, err := s.CreateTag(ctx, "pkg-a", r2.ID, "ver-1.0.1", testContributor)
	require.NoError(t, err)
	assert.Equal(t, "pkg-a", tag.PackageID)
	assert.Equal(t, r2.ID, tag.RevisionID)
	assert.False(t, tag.Timestamp.IsZero())

	// the head moves on, the tag does not
	_, err = s.AppendRevision(ctx, "pkg-a", r2.ID, []byte(`{"version":"1.0.2"}`), "")
	require.NoError(t, err)

	resolved, err := s.GetTag(ctx, "pkg-a", "ver-1.0.1")
	require.NoError(t, err)
	assert.Equal(t, r2.ID, resolved.RevisionID)

	// tagging a non-current revision is legal
	older, err := s.CreateTag(ctx, "pkg-a", r1.ID, "ver-1.0.0")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, older.RevisionID)

	tags, err := s.ListTags(ctx, "pkg-a")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	byName := make(map[string]string, len(tags))
	for _, tg := range tags {
		byName[tg.Name] = tg.RevisionID
	}
	assert.Equal(t, r2.ID, byName["ver-1.0.1"])
	assert.Equal(t, r1.ID, byName["ver-1.0.0"])
}

func tagDuplicateAndDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	r1, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"v":1}`), "")
	require.NoError(t, err)

	_, err = s.CreateTag(ctx, "pkg-a", r1.ID, "latest")
	require.NoError(t, err)

	// duplicate names fail rather than re-point
	_, err = s.CreateTag(ctx, "pkg-a", r1.ID, "latest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))

	// tagging an unknown revision fails
	_, err = s.CreateTag(ctx, "pkg-a", "no-such-revision", "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	require.NoError(t, s.DeleteTag(ctx, "pkg-a", "latest"))
	_, err = s.GetTag(ctx, "pkg-a", "latest")
	assert.True(t, errors.Is(err, status.ErrNotFound))

	err = s.DeleteTag(ctx, "pkg-a", "latest")
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// the name is free again after deletion
	_, err = s.CreateTag(ctx, "pkg-a", r1.ID, "latest")
	assert.NoError(t, err)
}

func deletePackage(t *testing.T, s store.Store) {
	ctx := context.Background()
	r1, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"v":1}`), "")
	require.NoError(t, err)
	_, err = s.CreateTag(ctx, "pkg-a", r1.ID, "latest")
	require.NoError(t, err)

	require.NoError(t, s.DeletePackage(ctx, "pkg-a"))

	_, _, err = s.GetRevision(ctx, "pkg-a", "")
	assert.True(t, errors.Is(err, status.ErrNotFound))
	_, err = s.ListRevisions(ctx, "pkg-a")
	assert.True(t, errors.Is(err, status.ErrNotFound))
	_, err = s.GetTag(ctx, "pkg-a", "latest")
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// deletion is not idempotent
	err = s.DeletePackage(ctx, "pkg-a")
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// the ID is free again: revisions and tags are gone
	_, err = s.CreatePackage(ctx, "pkg-a", []byte(`{"v":2}`), "")
	require.NoError(t, err)
	revisions, err := s.ListRevisions(ctx, "pkg-a")
	require.NoError(t, err)
	assert.Len(t, revisions, 1)
	tags, err := s.ListTags(ctx, "pkg-a")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func notFoundReads(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, _, err := s.GetRevision(ctx, "no-such-pkg", "")
	assert.True(t, errors.Is(err, status.ErrNotFound))
	_, err = s.ListRevisions(ctx, "no-such-pkg")
	assert.True(t, errors.Is(err, status.ErrNotFound))
	_, err = s.GetTag(ctx, "no-such-pkg", "latest")
	assert.True(t, errors.Is(err, status.ErrNotFound))
	_, err = s.ListTags(ctx, "no-such-pkg")
	assert.True(t, errors.Is(err, status.ErrNotFound))
	err = s.DeletePackage(ctx, "no-such-pkg")
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = s.CreatePackage(ctx, "pkg-a", []byte(`{"v":1}`), "")
	require.NoError(t, err)
	_, _, err = s.GetRevision(ctx, "pkg-a", "no-such-revision")
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func invalidArguments(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.CreatePackage(ctx, "", []byte(`{"v":1}`), "")
	assert.True(t, errors.Is(err, status.ErrInvalidArgument))

	_, err = s.CreatePackage(ctx, "pkg-a", nil, "")
	assert.True(t, errors.Is(err, status.ErrInvalidArgument))

	r1, err := s.CreatePackage(ctx, "pkg-a", []byte(`{"v":1}`), "")
	require.NoError(t, err)

	_, err = s.AppendRevision(ctx, "pkg-a", r1.ID, nil, "")
	assert.True(t, errors.Is(err, status.ErrInvalidArgument))

	_, err = s.CreateTag(ctx, "pkg-a", r1.ID, "not a tag")
	assert.True(t, errors.Is(err, status.ErrInvalidArgument))
}

func concurrentCreateRace(t *testing.T, s store.Store) {
	ctx := context.Background()
	const racers = 8

	var wg sync.WaitGroup
	errC := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreatePackage(ctx, "pkg-race", []byte(`{"v":1}`), "")
			errC <- err
		}()
	}
	wg.Wait()
	close(errC)

	var won, lost int
	for err := range errC {
		switch {
		case err == nil:
			won++
		case errors.Is(err, status.ErrExists):
			lost++
		default:
			t.Errorf("unexpected error on concurrent create: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, racers-1, lost)
}

func concurrentAppendRace(t *testing.T, s store.Store) {
	ctx := context.Background()
	const racers = 8

	r1, err := s.CreatePackage(ctx, "pkg-race", []byte(`{"v":1}`), "")
	require.NoError(t, err)

	// all racers share the same stale base: exactly one append may win
	var wg sync.WaitGroup
	errC := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendRevision(ctx, "pkg-race", r1.ID, []byte(`{"v":2}`), "")
			errC <- err
		}()
	}
	wg.Wait()
	close(errC)

	var won, lost int
	for err := range errC {
		switch {
		case err == nil:
			won++
		case errors.Is(err, status.ErrConflict):
			lost++
		default:
			t.Errorf("unexpected error on concurrent append: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, racers-1, lost)

	revisions, err := s.ListRevisions(ctx, "pkg-race")
	require.NoError(t, err)
	assert.Len(t, revisions, 2)
}
