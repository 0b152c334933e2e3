package metastore

import (
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/metastore/pkg/errors"
	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/memory"
	"github.com/oneconcern/metastore/pkg/store/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMetaStore() *MetaStore {
	return New(memory.New(), Logger(zap.NewNop()))
}

func TestMetaStoreCreateFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	author := model.Contributor{Name: "ada", Email: "ada@example.com"}
	created, err := m.Create(ctx, "dataset-1", []byte(`{"title":"first"}`),
		WithMessage("initial import"), WithContributor(author))
	require.NoError(t, err)
	require.NotEmpty(t, created.Descriptor.ID)
	assert.Equal(t, "dataset-1", created.Descriptor.PackageID)
	assert.Equal(t, "initial import", created.Descriptor.Message)
	assert.Empty(t, created.Descriptor.Parent)
	require.Len(t, created.Descriptor.Contributors, 1)
	assert.Equal(t, author, created.Descriptor.Contributors[0])

	fetched, err := m.Fetch(ctx, "dataset-1", "")
	require.NoError(t, err)
	assert.Equal(t, created.Descriptor.ID, fetched.Descriptor.ID)
	assert.JSONEq(t, `{"title":"first"}`, string(fetched.Content))

	_, err = m.Create(ctx, "dataset-1", []byte(`{"title":"again"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))
}

func TestMetaStoreUpdateBaseRevision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	created, err := m.Create(ctx, "dataset-2", []byte(`{"v":1}`))
	require.NoError(t, err)

	// update against the current head succeeds
	updated, err := m.Update(ctx, "dataset-2", []byte(`{"v":2}`),
		WithBaseRevision(created.Descriptor.ID), WithMessage("bump"))
	require.NoError(t, err)
	assert.Equal(t, created.Descriptor.ID, updated.Descriptor.Parent)

	// a second writer still holding the original head is rejected
	_, err = m.Update(ctx, "dataset-2", []byte(`{"v":99}`),
		WithBaseRevision(created.Descriptor.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrConflict))

	var conflict *store.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "dataset-2", conflict.PackageID)
	assert.Equal(t, created.Descriptor.ID, conflict.Expected)
	assert.Equal(t, updated.Descriptor.ID, conflict.Head)

	// the rejected writer re-fetches and retries against the new head
	head, err := m.Fetch(ctx, "dataset-2", "")
	require.NoError(t, err)
	retried, err := m.Update(ctx, "dataset-2", []byte(`{"v":3}`),
		WithBaseRevision(head.Descriptor.ID))
	require.NoError(t, err)
	assert.Equal(t, updated.Descriptor.ID, retried.Descriptor.Parent)

	// without a base revision the last write wins
	forced, err := m.Update(ctx, "dataset-2", []byte(`{"v":4}`))
	require.NoError(t, err)
	assert.Equal(t, retried.Descriptor.ID, forced.Descriptor.Parent)
}

func TestMetaStoreHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	r1, err := m.Create(ctx, "dataset-3", []byte(`{"step":1}`))
	require.NoError(t, err)
	r2, err := m.Update(ctx, "dataset-3", []byte(`{"step":2}`))
	require.NoError(t, err)
	r3, err := m.Update(ctx, "dataset-3", []byte(`{"step":3}`))
	require.NoError(t, err)

	revisions, err := m.RevisionList(ctx, "dataset-3")
	require.NoError(t, err)
	require.Len(t, revisions, 3)
	assert.Equal(t, r3.Descriptor.ID, revisions[0].ID)
	assert.Equal(t, r2.Descriptor.ID, revisions[1].ID)
	assert.Equal(t, r1.Descriptor.ID, revisions[2].ID)

	// historical revisions remain readable after the head moved on
	old, err := m.Fetch(ctx, "dataset-3", r1.Descriptor.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":1}`, string(old.Content))
}

func TestMetaStorePartialUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	created, err := m.Create(ctx, "dataset-4",
		[]byte(`{"title":"quakes","license":"ODbL","rows":100}`))
	require.NoError(t, err)

	updated, err := m.Update(ctx, "dataset-4", []byte(`{"rows":250,"source":"usgs"}`),
		WithPartial(), WithBaseRevision(created.Descriptor.ID))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(updated.Content, &doc))
	assert.Equal(t, "quakes", doc["title"])
	assert.Equal(t, "ODbL", doc["license"])
	assert.EqualValues(t, 250, doc["rows"])
	assert.Equal(t, "usgs", doc["source"])

	// a partial update over a non-object document is rejected
	_, err = m.Create(ctx, "dataset-4-scalar", []byte(`"not an object"`))
	require.NoError(t, err)
	_, err = m.Update(ctx, "dataset-4-scalar", []byte(`{"k":"v"}`), WithPartial())
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidArgument))
}

func TestMetaStoreTags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	r1, err := m.Create(ctx, "dataset-5", []byte(`{"v":1}`))
	require.NoError(t, err)
	r2, err := m.Update(ctx, "dataset-5", []byte(`{"v":2}`))
	require.NoError(t, err)

	tagger := model.Contributor{Name: "grace", Email: "grace@example.com"}
	tag, err := m.TagCreate(ctx, "dataset-5", r1.Descriptor.ID, "v1.0",
		WithContributor(tagger))
	require.NoError(t, err)
	assert.Equal(t, "v1.0", tag.Name)
	assert.Equal(t, r1.Descriptor.ID, tag.RevisionID)

	// duplicate tag names are rejected
	_, err = m.TagCreate(ctx, "dataset-5", r2.Descriptor.ID, "v1.0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))

	// a fetch by tag name resolves to the tagged revision, not the head
	snapshot, err := m.Fetch(ctx, "dataset-5", "v1.0")
	require.NoError(t, err)
	assert.Equal(t, r1.Descriptor.ID, snapshot.Descriptor.ID)
	assert.JSONEq(t, `{"v":1}`, string(snapshot.Content))

	fetched, err := m.TagFetch(ctx, "dataset-5", "v1.0")
	require.NoError(t, err)
	assert.Equal(t, tag.RevisionID, fetched.RevisionID)

	_, err = m.TagCreate(ctx, "dataset-5", r2.Descriptor.ID, "v2.0")
	require.NoError(t, err)
	tags, err := m.TagList(ctx, "dataset-5")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "v1.0", tags[0].Name)
	assert.Equal(t, "v2.0", tags[1].Name)

	require.NoError(t, m.TagDelete(ctx, "dataset-5", "v2.0"))
	_, err = m.TagFetch(ctx, "dataset-5", "v2.0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// the revision the tag pointed at is untouched
	_, err = m.Fetch(ctx, "dataset-5", r2.Descriptor.ID)
	require.NoError(t, err)
}

func TestMetaStoreTagUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	r1, err := m.Create(ctx, "dataset-6", []byte(`{"v":1}`))
	require.NoError(t, err)
	r2, err := m.Update(ctx, "dataset-6", []byte(`{"v":2}`))
	require.NoError(t, err)

	_, err = m.TagCreate(ctx, "dataset-6", r1.Descriptor.ID, "stable",
		WithContributor(model.Contributor{Name: "ada", Email: "ada@example.com"}))
	require.NoError(t, err)

	// re-point the tag at a newer revision
	tag, err := m.TagUpdate(ctx, "dataset-6", "stable", TagRepoint(r2.Descriptor.ID))
	require.NoError(t, err)
	assert.Equal(t, "stable", tag.Name)
	assert.Equal(t, r2.Descriptor.ID, tag.RevisionID)
	require.Len(t, tag.Contributors, 1)

	// rename the tag: the old name is gone, the new one resolves
	tag, err = m.TagUpdate(ctx, "dataset-6", "stable", TagRename("production"))
	require.NoError(t, err)
	assert.Equal(t, "production", tag.Name)
	assert.Equal(t, r2.Descriptor.ID, tag.RevisionID)

	_, err = m.TagFetch(ctx, "dataset-6", "stable")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	snapshot, err := m.Fetch(ctx, "dataset-6", "production")
	require.NoError(t, err)
	assert.Equal(t, r2.Descriptor.ID, snapshot.Descriptor.ID)

	// an update must change at least one attribute
	_, err = m.TagUpdate(ctx, "dataset-6", "production")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidArgument))

	// updating a missing tag reports not found
	_, err = m.TagUpdate(ctx, "dataset-6", "nope", TagRename("other"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func TestMetaStoreTagUpdateFailureKeepsTag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	r1, err := m.Create(ctx, "dataset-9", []byte(`{"v":1}`))
	require.NoError(t, err)
	r2, err := m.Update(ctx, "dataset-9", []byte(`{"v":2}`))
	require.NoError(t, err)

	_, err = m.TagCreate(ctx, "dataset-9", r1.Descriptor.ID, "stable")
	require.NoError(t, err)

	// a rename to an invalid name fails before the tag is touched
	_, err = m.TagUpdate(ctx, "dataset-9", "stable", TagRename("not a valid name"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidArgument))

	tag, err := m.TagFetch(ctx, "dataset-9", "stable")
	require.NoError(t, err)
	assert.Equal(t, r1.Descriptor.ID, tag.RevisionID)

	// a re-point at an unknown revision fails before the tag is touched
	_, err = m.TagUpdate(ctx, "dataset-9", "stable", TagRepoint("no-such-revision"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	tag, err = m.TagFetch(ctx, "dataset-9", "stable")
	require.NoError(t, err)
	assert.Equal(t, r1.Descriptor.ID, tag.RevisionID)

	// a rename to a taken name fails and leaves both tags intact
	_, err = m.TagCreate(ctx, "dataset-9", r2.Descriptor.ID, "latest")
	require.NoError(t, err)
	_, err = m.TagUpdate(ctx, "dataset-9", "stable", TagRename("latest"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))

	tag, err = m.TagFetch(ctx, "dataset-9", "stable")
	require.NoError(t, err)
	assert.Equal(t, r1.Descriptor.ID, tag.RevisionID)
	tag, err = m.TagFetch(ctx, "dataset-9", "latest")
	require.NoError(t, err)
	assert.Equal(t, r2.Descriptor.ID, tag.RevisionID)
}

func TestMetaStoreDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	r1, err := m.Create(ctx, "dataset-7", []byte(`{"v":1}`))
	require.NoError(t, err)
	_, err = m.TagCreate(ctx, "dataset-7", r1.Descriptor.ID, "v1.0")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "dataset-7"))

	_, err = m.Fetch(ctx, "dataset-7", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))
	_, err = m.TagFetch(ctx, "dataset-7", "v1.0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// deletion is not idempotent
	err = m.Delete(ctx, "dataset-7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// the ID is free for reuse, starting a fresh history
	fresh, err := m.Create(ctx, "dataset-7", []byte(`{"v":"new"}`))
	require.NoError(t, err)
	assert.Empty(t, fresh.Descriptor.Parent)
}

func TestMetaStoreRefResolution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := testMetaStore()

	_, err := m.Create(ctx, "dataset-8", []byte(`{"v":1}`))
	require.NoError(t, err)

	// a ref that is neither a revision ID nor an existing tag
	_, err = m.Fetch(ctx, "dataset-8", "no-such-tag")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// a well-formed revision ID that was never written
	_, err = m.Fetch(ctx, "dataset-8", model.NewRevisionDescriptor().ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))
}
