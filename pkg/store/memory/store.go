// Copyright © 2019 One Concern

// Package memory implements the store capability interface purely in
// process memory.
//
// This backend has no persistence: it exists to validate the facade
// logic and to serve as the conformance target every other backend is
// measured against.
package memory

import (
	"context"
	"sync"

	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/status"
)

// New creates a new in-memory backed metadata store
func New() store.Store {
	return &memStore{
		packages: make(map[string]*packageState),
	}
}

type revisionEntry struct {
	descriptor model.RevisionDescriptor
	content    []byte
}

type packageState struct {
	revisions []revisionEntry // oldest first, head is the last entry
	tags      map[string]model.TagDescriptor
}

func (p *packageState) head() revisionEntry {
	return p.revisions[len(p.revisions)-1]
}

type memStore struct {
	mu       sync.Mutex
	packages map[string]*packageState
}

func (m *memStore) String() string {
	return "memory"
}

func (m *memStore) CreatePackage(_ context.Context, packageID string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := model.ValidatePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.Wrap(err)
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.packages[packageID]; ok {
		return model.RevisionDescriptor{}, status.ErrExists.WrapMessage("package " + packageID)
	}

	descriptor := model.NewRevisionDescriptor(
		model.RevisionPackageID(packageID),
		model.RevisionMessage(message),
		model.RevisionContributors(contributors),
	)
	m.packages[packageID] = &packageState{
		revisions: []revisionEntry{{descriptor: *descriptor, content: clone(content)}},
		tags:      make(map[string]model.TagDescriptor),
	}
	return *descriptor, nil
}

func (m *memStore) AppendRevision(_ context.Context, packageID, expectedParent string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := model.ValidatePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.Wrap(err)
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[packageID]
	if !ok {
		return model.RevisionDescriptor{}, status.ErrNotFound.WrapMessage("package " + packageID)
	}

	head := pkg.head().descriptor
	if expectedParent != "" && head.ID != expectedParent {
		return model.RevisionDescriptor{}, store.NewConflictError(packageID, expectedParent, head.ID)
	}

	descriptor := model.NewRevisionDescriptor(
		model.RevisionPackageID(packageID),
		model.RevisionParent(head.ID),
		model.RevisionMessage(message),
		model.RevisionContributors(contributors),
	)
	pkg.revisions = append(pkg.revisions, revisionEntry{descriptor: *descriptor, content: clone(content)})
	return *descriptor, nil
}

func (m *memStore) GetRevision(_ context.Context, packageID, revisionID string) (model.RevisionDescriptor, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[packageID]
	if !ok {
		return model.RevisionDescriptor{}, nil, status.ErrNotFound.WrapMessage("package " + packageID)
	}

	if revisionID == "" {
		head := pkg.head()
		return head.descriptor, clone(head.content), nil
	}
	for _, entry := range pkg.revisions {
		if entry.descriptor.ID == revisionID {
			return entry.descriptor, clone(entry.content), nil
		}
	}
	return model.RevisionDescriptor{}, nil, status.ErrNotFound.WrapMessage("revision " + revisionID)
}

func (m *memStore) ListRevisions(_ context.Context, packageID string) (model.RevisionDescriptors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[packageID]
	if !ok {
		return nil, status.ErrNotFound.WrapMessage("package " + packageID)
	}

	descriptors := make(model.RevisionDescriptors, 0, len(pkg.revisions))
	for i := len(pkg.revisions) - 1; i >= 0; i-- {
		descriptors = append(descriptors, pkg.revisions[i].descriptor)
	}
	return descriptors, nil
}

func (m *memStore) DeletePackage(_ context.Context, packageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.packages[packageID]; !ok {
		return status.ErrNotFound.WrapMessage("package " + packageID)
	}
	delete(m.packages, packageID)
	return nil
}

func (m *memStore) CreateTag(_ context.Context, packageID, revisionID, name string, contributors ...model.Contributor) (model.TagDescriptor, error) {
	if err := model.ValidateTagName(name); err != nil {
		return model.TagDescriptor{}, status.ErrInvalidArgument.Wrap(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[packageID]
	if !ok {
		return model.TagDescriptor{}, status.ErrNotFound.WrapMessage("package " + packageID)
	}

	found := false
	for _, entry := range pkg.revisions {
		if entry.descriptor.ID == revisionID {
			found = true
			break
		}
	}
	if !found {
		return model.TagDescriptor{}, status.ErrNotFound.WrapMessage("revision " + revisionID)
	}
	if _, ok := pkg.tags[name]; ok {
		return model.TagDescriptor{}, status.ErrExists.WrapMessage("tag " + name)
	}

	descriptor := model.NewTagDescriptor(
		model.TagPackageID(packageID),
		model.TagName(name),
		model.TagRevision(revisionID),
		model.TagContributors(contributors),
	)
	pkg.tags[name] = *descriptor
	return *descriptor, nil
}

func (m *memStore) GetTag(_ context.Context, packageID, name string) (model.TagDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[packageID]
	if !ok {
		return model.TagDescriptor{}, status.ErrNotFound.WrapMessage("package " + packageID)
	}
	tag, ok := pkg.tags[name]
	if !ok {
		return model.TagDescriptor{}, status.ErrNotFound.WrapMessage("tag " + name)
	}
	return tag, nil
}

func (m *memStore) ListTags(_ context.Context, packageID string) (model.TagDescriptors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[packageID]
	if !ok {
		return nil, status.ErrNotFound.WrapMessage("package " + packageID)
	}

	tags := make(model.TagDescriptors, 0, len(pkg.tags))
	for _, tag := range pkg.tags {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (m *memStore) DeleteTag(_ context.Context, packageID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[packageID]
	if !ok {
		return status.ErrNotFound.WrapMessage("package " + packageID)
	}
	if _, ok := pkg.tags[name]; !ok {
		return status.ErrNotFound.WrapMessage("tag " + name)
	}
	delete(pkg.tags, name)
	return nil
}

// clone guards the immutability of stored snapshots against callers
// mutating their buffers after the call
func clone(content []byte) []byte {
	dup := make([]byte, len(content))
	copy(dup, content)
	return dup
}
