// Copyright © 2019 One Concern

package store

import (
	"context"

	"github.com/oneconcern/metastore/pkg/model"
	"go.uber.org/zap"
)

// Instrument decorates a backend with debug logging on every operation
func Instrument(logger *zap.Logger, backend Store) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumentedStore{
		store: backend,
		l:     logger.With(zap.String("store", backend.String())),
	}
}

type instrumentedStore struct {
	store Store
	l     *zap.Logger
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}

func (i *instrumentedStore) CreatePackage(ctx context.Context, packageID string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	descriptor, err := i.store.CreatePackage(ctx, packageID, content, message, contributors...)
	i.log("create package", packageID, zap.String("revisionID", descriptor.ID), zap.Error(err))
	return descriptor, err
}

func (i *instrumentedStore) AppendRevision(ctx context.Context, packageID, expectedParent string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	descriptor, err := i.store.AppendRevision(ctx, packageID, expectedParent, content, message, contributors...)
	i.log("append revision", packageID,
		zap.String("expectedParent", expectedParent),
		zap.String("revisionID", descriptor.ID),
		zap.Error(err))
	return descriptor, err
}

func (i *instrumentedStore) GetRevision(ctx context.Context, packageID, revisionID string) (model.RevisionDescriptor, []byte, error) {
	descriptor, content, err := i.store.GetRevision(ctx, packageID, revisionID)
	i.log("get revision", packageID, zap.String("revisionID", revisionID), zap.Error(err))
	return descriptor, content, err
}

func (i *instrumentedStore) ListRevisions(ctx context.Context, packageID string) (model.RevisionDescriptors, error) {
	descriptors, err := i.store.ListRevisions(ctx, packageID)
	i.log("list revisions", packageID, zap.Int("count", len(descriptors)), zap.Error(err))
	return descriptors, err
}

func (i *instrumentedStore) DeletePackage(ctx context.Context, packageID string) error {
	err := i.store.DeletePackage(ctx, packageID)
	i.log("delete package", packageID, zap.Error(err))
	return err
}

func (i *instrumentedStore) CreateTag(ctx context.Context, packageID, revisionID, name string, contributors ...model.Contributor) (model.TagDescriptor, error) {
	tag, err := i.store.CreateTag(ctx, packageID, revisionID, name, contributors...)
	i.log("create tag", packageID,
		zap.String("revisionID", revisionID),
		zap.String("name", name),
		zap.Error(err))
	return tag, err
}

func (i *instrumentedStore) GetTag(ctx context.Context, packageID, name string) (model.TagDescriptor, error) {
	tag, err := i.store.GetTag(ctx, packageID, name)
	i.log("get tag", packageID, zap.String("name", name), zap.Error(err))
	return tag, err
}

func (i *instrumentedStore) ListTags(ctx context.Context, packageID string) (model.TagDescriptors, error) {
	tags, err := i.store.ListTags(ctx, packageID)
	i.log("list tags", packageID, zap.Int("count", len(tags)), zap.Error(err))
	return tags, err
}

func (i *instrumentedStore) DeleteTag(ctx context.Context, packageID, name string) error {
	err := i.store.DeleteTag(ctx, packageID, name)
	i.log("delete tag", packageID, zap.String("name", name), zap.Error(err))
	return err
}

func (i *instrumentedStore) log(op, packageID string, fields ...zap.Field) {
	i.l.Debug(op, append([]zap.Field{zap.String("packageID", packageID)}, fields...)...)
}
