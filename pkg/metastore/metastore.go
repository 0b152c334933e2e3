// Copyright © 2019 One Concern

package metastore

import (
	"context"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/status"
	"go.uber.org/zap"
)

// PackageRevision is a revision descriptor together with the full
// metadata document snapshotted by that revision
type PackageRevision struct {
	Descriptor model.RevisionDescriptor
	Content    []byte
}

// MetaStore exposes versioned metadata operations on top of a backend
type MetaStore struct {
	store store.Store
	l     *zap.Logger
}

// New builds a metadata store facade over a backend
func New(backend store.Store, opts ...Option) *MetaStore {
	m := &MetaStore{
		store: backend,
		l:     zap.NewNop(),
	}
	for _, apply := range opts {
		apply(m)
	}
	return m
}

// Store yields the underlying backend
func (m *MetaStore) Store() store.Store {
	return m.store
}

// Create stores the first revision of a new package
func (m *MetaStore) Create(ctx context.Context, packageID string, content []byte, opts ...OpOption) (PackageRevision, error) {
	op := newOperation(opts)
	descriptor, err := m.store.CreatePackage(ctx, packageID, content, op.message, op.contributors...)
	if err != nil {
		return PackageRevision{}, err
	}
	m.l.Debug("created package",
		zap.String("packageID", packageID),
		zap.String("revisionID", descriptor.ID))
	return PackageRevision{Descriptor: descriptor, Content: content}, nil
}

// Update appends a new revision to an existing package.
//
// With WithBaseRevision, the update only proceeds when the supplied
// revision is still the current head; otherwise it fails with a
// ConflictError carrying the actual head, and the caller is expected
// to re-fetch and retry. Without it, the last write wins.
//
// With WithPartial, the supplied document is merged key-by-key into
// the base document instead of replacing it wholesale.
func (m *MetaStore) Update(ctx context.Context, packageID string, content []byte, opts ...OpOption) (PackageRevision, error) {
	op := newOperation(opts)

	if op.partial {
		merged, err := m.mergePartial(ctx, packageID, op.baseRevision, content)
		if err != nil {
			return PackageRevision{}, err
		}
		content = merged
	}

	descriptor, err := m.store.AppendRevision(ctx, packageID, op.baseRevision, content, op.message, op.contributors...)
	if err != nil {
		return PackageRevision{}, err
	}
	m.l.Debug("updated package",
		zap.String("packageID", packageID),
		zap.String("baseRevision", op.baseRevision),
		zap.String("revisionID", descriptor.ID))
	return PackageRevision{Descriptor: descriptor, Content: content}, nil
}

// Fetch returns a package snapshot.
//
// The ref may be empty (the current head), a revision ID, or a tag
// name, which is resolved to the revision it points at.
func (m *MetaStore) Fetch(ctx context.Context, packageID, ref string) (PackageRevision, error) {
	revisionID, err := m.resolveRef(ctx, packageID, ref)
	if err != nil {
		return PackageRevision{}, err
	}
	descriptor, content, err := m.store.GetRevision(ctx, packageID, revisionID)
	if err != nil {
		return PackageRevision{}, err
	}
	return PackageRevision{Descriptor: descriptor, Content: content}, nil
}

// RevisionList returns the history of a package, newest first, without
// the document snapshots
func (m *MetaStore) RevisionList(ctx context.Context, packageID string) (model.RevisionDescriptors, error) {
	return m.store.ListRevisions(ctx, packageID)
}

// Delete removes a package, its whole history and all its tags
func (m *MetaStore) Delete(ctx context.Context, packageID string) error {
	if err := m.store.DeletePackage(ctx, packageID); err != nil {
		return err
	}
	m.l.Debug("deleted package", zap.String("packageID", packageID))
	return nil
}

// TagCreate records a named pointer to an existing revision. Duplicate
// names fail: re-pointing an existing tag is an explicit TagUpdate.
func (m *MetaStore) TagCreate(ctx context.Context, packageID, revisionID, name string, opts ...OpOption) (model.TagDescriptor, error) {
	op := newOperation(opts)
	tag, err := m.store.CreateTag(ctx, packageID, revisionID, name, op.contributors...)
	if err != nil {
		return model.TagDescriptor{}, err
	}
	m.l.Debug("created tag",
		zap.String("packageID", packageID),
		zap.String("revisionID", revisionID),
		zap.String("name", name))
	return tag, nil
}

// TagFetch resolves a tag by name
func (m *MetaStore) TagFetch(ctx context.Context, packageID, name string) (model.TagDescriptor, error) {
	return m.store.GetTag(ctx, packageID, name)
}

// TagList returns all tags of a package, sorted by name
func (m *MetaStore) TagList(ctx context.Context, packageID string) (model.TagDescriptors, error) {
	tags, err := m.store.ListTags(ctx, packageID)
	if err != nil {
		return nil, err
	}
	sort.Sort(tags)
	return tags, nil
}

// TagDelete removes a single tag, leaving the revision it pointed at
// untouched
func (m *MetaStore) TagDelete(ctx context.Context, packageID, name string) error {
	return m.store.DeleteTag(ctx, packageID, name)
}

// TagUpdate renames a tag and/or re-points it at another revision.
//
// The update is composed from tag creation and deletion at the
// capability boundary: it is not atomic with respect to concurrent
// readers of the same tag. A failed update never loses the tag: the
// new name and the target revision are checked before the current tag
// is touched, and a rename writes the new tag before removing the old
// one.
func (m *MetaStore) TagUpdate(ctx context.Context, packageID, name string, opts ...TagUpdateOption) (model.TagDescriptor, error) {
	op := &tagUpdate{}
	for _, apply := range opts {
		apply(op)
	}
	if op.newName == "" && op.revisionID == "" {
		return model.TagDescriptor{}, status.ErrInvalidArgument.WrapMessage(
			"expecting at least one of a new name or a new revision")
	}
	if op.newName != "" {
		if err := model.ValidateTagName(op.newName); err != nil {
			return model.TagDescriptor{}, status.ErrInvalidArgument.Wrap(err)
		}
	}

	current, err := m.store.GetTag(ctx, packageID, name)
	if err != nil {
		return model.TagDescriptor{}, err
	}

	newName := op.newName
	if newName == "" {
		newName = current.Name
	}
	revisionID := op.revisionID
	if revisionID == "" {
		revisionID = current.RevisionID
	}
	if op.revisionID != "" {
		if _, _, err := m.store.GetRevision(ctx, packageID, revisionID); err != nil {
			return model.TagDescriptor{}, err
		}
	}

	var tag model.TagDescriptor
	if newName != name {
		tag, err = m.store.CreateTag(ctx, packageID, revisionID, newName, current.Contributors...)
		if err != nil {
			return model.TagDescriptor{}, err
		}
		if err := m.store.DeleteTag(ctx, packageID, name); err != nil {
			return model.TagDescriptor{}, err
		}
	} else {
		// re-point under the same name: the name has to be freed first
		if err := m.store.DeleteTag(ctx, packageID, name); err != nil {
			return model.TagDescriptor{}, err
		}
		tag, err = m.store.CreateTag(ctx, packageID, revisionID, newName, current.Contributors...)
		if err != nil {
			return model.TagDescriptor{}, err
		}
	}
	m.l.Debug("updated tag",
		zap.String("packageID", packageID),
		zap.String("name", name),
		zap.String("newName", newName),
		zap.String("revisionID", revisionID))
	return tag, nil
}

// resolveRef maps a user supplied reference to a revision ID
func (m *MetaStore) resolveRef(ctx context.Context, packageID, ref string) (string, error) {
	if ref == "" || model.IsRevisionID(ref) {
		return ref, nil
	}
	tag, err := m.store.GetTag(ctx, packageID, ref)
	if err != nil {
		return "", err
	}
	return tag.RevisionID, nil
}

// mergePartial overlays a partial document on the base revision's
// document. Only top level keys are merged: metadata documents are
// otherwise opaque.
func (m *MetaStore) mergePartial(ctx context.Context, packageID, baseRevision string, content []byte) ([]byte, error) {
	_, base, err := m.store.GetRevision(ctx, packageID, baseRevision)
	if err != nil {
		return nil, err
	}

	var baseDoc, patchDoc map[string]interface{}
	if err := jsoniter.Unmarshal(base, &baseDoc); err != nil {
		return nil, status.ErrInvalidArgument.WrapMessage(
			"partial update requires the base document to be a JSON object")
	}
	if err := jsoniter.Unmarshal(content, &patchDoc); err != nil {
		return nil, status.ErrInvalidArgument.WrapMessage(
			"partial update requires the patch document to be a JSON object")
	}
	for k, v := range patchDoc {
		baseDoc[k] = v
	}
	merged, err := jsoniter.Marshal(baseDoc)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return merged, nil
}
