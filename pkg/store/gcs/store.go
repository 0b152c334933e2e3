// Copyright © 2019 One Concern

// Package gcs implements the store capability interface on top of
// Google Cloud Storage.
//
// The head pointer of a package is a single object updated with
// generation preconditions: creation uses DoesNotExist and updates use
// GenerationMatch, so the check-then-write sequence is arbitrated by
// the bucket, not by this process. Revision and tag records are
// immutable objects written once with DoesNotExist.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/metastore/pkg/errors"
	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/status"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v2"
)

// Option is a functor to pass optional parameters to the gcs store
type Option func(*gcs)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(g *gcs) {
		if logger != nil {
			g.l = logger
		}
	}
}

// CredentialsFile points to a service account credentials file
func CredentialsFile(path string) Option {
	return func(g *gcs) {
		g.credentialsFile = path
	}
}

// Prefix roots all archive keys under a common prefix, so that several
// stores can share one bucket
func Prefix(prefix string) Option {
	return func(g *gcs) {
		g.prefix = prefix
	}
}

type gcs struct {
	client          *gcsStorage.Client
	readOnlyClient  *gcsStorage.Client
	bucket          string
	prefix          string
	credentialsFile string
	l               *zap.Logger
}

// New creates a GCS backed metadata store on the named bucket
func New(ctx context.Context, bucket string, opts ...Option) (store.Store, error) {
	googleStore := &gcs{
		bucket: bucket,
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(googleStore)
	}

	roOptions := []option.ClientOption{option.WithScopes(gcsStorage.ScopeReadOnly)}
	rwOptions := []option.ClientOption{option.WithScopes(gcsStorage.ScopeFullControl)}
	if googleStore.credentialsFile != "" {
		roOptions = append(roOptions, option.WithCredentialsFile(googleStore.credentialsFile))
		rwOptions = append(rwOptions, option.WithCredentialsFile(googleStore.credentialsFile))
	}

	var err error
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx, roOptions...)
	if err != nil {
		return nil, status.ErrUnavailable.Wrap(err)
	}
	googleStore.client, err = gcsStorage.NewClient(ctx, rwOptions...)
	if err != nil {
		return nil, status.ErrUnavailable.Wrap(err)
	}
	return googleStore, nil
}

func (g *gcs) String() string {
	if g.prefix == "" {
		return "gcs://" + g.bucket
	}
	return "gcs://" + g.bucket + "/" + g.prefix
}

func (g *gcs) key(pth string) string {
	return g.prefix + pth
}

func (g *gcs) CreatePackage(ctx context.Context, packageID string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}
	g.l.Debug("start CreatePackage", zap.String("packageID", packageID))

	descriptor := model.NewRevisionDescriptor(
		model.RevisionPackageID(packageID),
		model.RevisionMessage(message),
		model.RevisionContributors(contributors),
	)
	if err := g.putRevision(ctx, *descriptor, content); err != nil {
		return model.RevisionDescriptor{}, err
	}

	err := g.putHead(ctx, packageID, descriptor.ID, gcsStorage.Conditions{DoesNotExist: true})
	if err != nil {
		// the revision object is unreachable without a head: undo it
		g.dropOrphanRevision(ctx, packageID, descriptor.ID)
		if errors.Is(err, status.ErrConflict) {
			return model.RevisionDescriptor{}, status.ErrExists.WrapMessage("package " + packageID)
		}
		return model.RevisionDescriptor{}, err
	}
	return *descriptor, nil
}

func (g *gcs) AppendRevision(ctx context.Context, packageID, expectedParent string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}
	g.l.Debug("start AppendRevision",
		zap.String("packageID", packageID),
		zap.String("expectedParent", expectedParent))

	for {
		head, generation, err := g.readHead(ctx, packageID)
		if err != nil {
			return model.RevisionDescriptor{}, err
		}
		if expectedParent != "" && head != expectedParent {
			return model.RevisionDescriptor{}, store.NewConflictError(packageID, expectedParent, head)
		}

		descriptor := model.NewRevisionDescriptor(
			model.RevisionPackageID(packageID),
			model.RevisionParent(head),
			model.RevisionMessage(message),
			model.RevisionContributors(contributors),
		)
		if err := g.putRevision(ctx, *descriptor, content); err != nil {
			return model.RevisionDescriptor{}, err
		}

		err = g.putHead(ctx, packageID, descriptor.ID, gcsStorage.Conditions{GenerationMatch: generation})
		if err == nil {
			return *descriptor, nil
		}
		g.dropOrphanRevision(ctx, packageID, descriptor.ID)
		if !errors.Is(err, status.ErrConflict) {
			return model.RevisionDescriptor{}, err
		}
		// the head moved underneath us
		if expectedParent != "" {
			current, _, headErr := g.readHead(ctx, packageID)
			if headErr != nil {
				return model.RevisionDescriptor{}, headErr
			}
			return model.RevisionDescriptor{}, store.NewConflictError(packageID, expectedParent, current)
		}
		// force write: last write wins, try again on the new generation
	}
}

func (g *gcs) GetRevision(ctx context.Context, packageID, revisionID string) (model.RevisionDescriptor, []byte, error) {
	g.l.Debug("start GetRevision",
		zap.String("packageID", packageID),
		zap.String("revisionID", revisionID))

	if revisionID == "" {
		head, _, err := g.readHead(ctx, packageID)
		if err != nil {
			return model.RevisionDescriptor{}, nil, err
		}
		revisionID = head
	}
	record, err := g.readRevision(ctx, packageID, revisionID)
	if err != nil {
		return model.RevisionDescriptor{}, nil, err
	}
	return record.Descriptor, record.Content, nil
}

func (g *gcs) ListRevisions(ctx context.Context, packageID string) (model.RevisionDescriptors, error) {
	g.l.Debug("start ListRevisions", zap.String("packageID", packageID))

	head, _, err := g.readHead(ctx, packageID)
	if err != nil {
		return nil, err
	}
	var descriptors model.RevisionDescriptors
	for next := head; next != ""; {
		record, err := g.readRevision(ctx, packageID, next)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, record.Descriptor)
		next = record.Descriptor.Parent
	}
	return descriptors, nil
}

func (g *gcs) DeletePackage(ctx context.Context, packageID string) error {
	g.l.Debug("start DeletePackage", zap.String("packageID", packageID))

	// removing the head first makes the whole package vanish atomically
	// from a reader's perspective; the remaining objects are unreachable
	// garbage until cleaned up below
	err := g.client.Bucket(g.bucket).Object(g.key(model.GetArchivePathToHead(packageID))).Delete(ctx)
	if err != nil {
		return toSentinelErrors(err)
	}

	it := g.client.Bucket(g.bucket).Objects(ctx, &gcsStorage.Query{
		Prefix: g.key(model.GetArchivePathPrefixToPackage(packageID)),
	})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return toSentinelErrors(err)
		}
		if err := g.client.Bucket(g.bucket).Object(attrs.Name).Delete(ctx); err != nil {
			if err == gcsStorage.ErrObjectNotExist {
				continue
			}
			return toSentinelErrors(err)
		}
	}
	return nil
}

func (g *gcs) CreateTag(ctx context.Context, packageID, revisionID, name string, contributors ...model.Contributor) (model.TagDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.TagDescriptor{}, err
	}
	if err := model.ValidateTagName(name); err != nil {
		return model.TagDescriptor{}, status.ErrInvalidArgument.Wrap(err)
	}
	g.l.Debug("start CreateTag",
		zap.String("packageID", packageID),
		zap.String("name", name))

	if _, err := g.readRevision(ctx, packageID, revisionID); err != nil {
		return model.TagDescriptor{}, err
	}

	descriptor := model.NewTagDescriptor(
		model.TagPackageID(packageID),
		model.TagName(name),
		model.TagRevision(revisionID),
		model.TagContributors(contributors),
	)
	buffer, err := yaml.Marshal(descriptor)
	if err != nil {
		return model.TagDescriptor{}, status.ErrStorageAPI.Wrap(err)
	}
	err = g.putObject(ctx, g.key(model.GetArchivePathToTag(packageID, name)), buffer,
		gcsStorage.Conditions{DoesNotExist: true})
	if err != nil {
		if errors.Is(err, status.ErrConflict) {
			return model.TagDescriptor{}, status.ErrExists.WrapMessage("tag " + name)
		}
		return model.TagDescriptor{}, err
	}
	return *descriptor, nil
}

func (g *gcs) GetTag(ctx context.Context, packageID, name string) (model.TagDescriptor, error) {
	data, err := g.getObject(ctx, g.key(model.GetArchivePathToTag(packageID, name)))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return model.TagDescriptor{}, status.ErrNotFound.WrapMessage(
				fmt.Sprintf("tag %s for package %s", name, packageID))
		}
		return model.TagDescriptor{}, err
	}
	var tag model.TagDescriptor
	if err := yaml.Unmarshal(data, &tag); err != nil {
		return model.TagDescriptor{}, status.ErrStorageAPI.Wrap(err)
	}
	return tag, nil
}

func (g *gcs) ListTags(ctx context.Context, packageID string) (model.TagDescriptors, error) {
	g.l.Debug("start ListTags", zap.String("packageID", packageID))

	// a package without a head does not exist
	if _, _, err := g.readHead(ctx, packageID); err != nil {
		return nil, err
	}

	tags := model.TagDescriptors{}
	it := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, &gcsStorage.Query{
		Prefix: g.key(model.GetArchivePathPrefixToTags(packageID)),
	})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, toSentinelErrors(err)
		}
		tag, err := g.GetTag(ctx, packageID, model.TagNameFromArchivePath(packageID, strings.TrimPrefix(attrs.Name, g.prefix)))
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (g *gcs) DeleteTag(ctx context.Context, packageID, name string) error {
	err := g.client.Bucket(g.bucket).Object(g.key(model.GetArchivePathToTag(packageID, name))).Delete(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return status.ErrNotFound.WrapMessage(
				fmt.Sprintf("tag %s for package %s", name, packageID))
		}
		return toSentinelErrors(err)
	}
	return nil
}

func (g *gcs) readHead(ctx context.Context, packageID string) (string, int64, error) {
	object := g.readOnlyClient.Bucket(g.bucket).Object(g.key(model.GetArchivePathToHead(packageID)))
	attrs, err := object.Attrs(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return "", 0, status.ErrNotFound.WrapMessage("package " + packageID)
		}
		return "", 0, toSentinelErrors(err)
	}

	// pin the read to the generation reported by Attrs, so the returned
	// generation always matches the returned head
	reader, err := object.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return "", 0, toSentinelErrors(err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", 0, status.ErrUnavailable.Wrap(err)
	}
	var head model.HeadRecord
	if err := yaml.Unmarshal(data, &head); err != nil {
		return "", 0, status.ErrStorageAPI.Wrap(err)
	}
	return head.RevisionID, attrs.Generation, nil
}

func (g *gcs) putHead(ctx context.Context, packageID, revisionID string, conditions gcsStorage.Conditions) error {
	buffer, err := yaml.Marshal(model.HeadRecord{RevisionID: revisionID})
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	return g.putObject(ctx, g.key(model.GetArchivePathToHead(packageID)), buffer, conditions)
}

func (g *gcs) readRevision(ctx context.Context, packageID, revisionID string) (model.RevisionRecord, error) {
	data, err := g.getObject(ctx, g.key(model.GetArchivePathToRevision(packageID, revisionID)))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return model.RevisionRecord{}, status.ErrNotFound.WrapMessage(
				fmt.Sprintf("revision %s@%s", packageID, revisionID))
		}
		return model.RevisionRecord{}, err
	}
	var record model.RevisionRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return model.RevisionRecord{}, status.ErrStorageAPI.Wrap(err)
	}
	return record, nil
}

func (g *gcs) putRevision(ctx context.Context, descriptor model.RevisionDescriptor, content []byte) error {
	if err := model.ValidateRevision(descriptor); err != nil {
		return status.ErrInvalidArgument.Wrap(err)
	}
	buffer, err := yaml.Marshal(model.RevisionRecord{Descriptor: descriptor, Content: content})
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	return g.putObject(ctx, g.key(model.GetArchivePathToRevision(descriptor.PackageID, descriptor.ID)), buffer,
		gcsStorage.Conditions{DoesNotExist: true})
}

// dropOrphanRevision removes a revision record that never became
// reachable because its head update lost the race. Best effort: an
// orphan is invisible to chain walks either way.
func (g *gcs) dropOrphanRevision(ctx context.Context, packageID, revisionID string) {
	err := g.client.Bucket(g.bucket).Object(g.key(model.GetArchivePathToRevision(packageID, revisionID))).Delete(ctx)
	if err != nil && err != gcsStorage.ErrObjectNotExist {
		g.l.Warn("could not clean up orphan revision",
			zap.String("packageID", packageID),
			zap.String("revisionID", revisionID),
			zap.Error(err))
	}
}

func (g *gcs) getObject(ctx context.Context, objectName string) ([]byte, error) {
	reader, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, status.ErrUnavailable.Wrap(err)
	}
	return data, nil
}

func (g *gcs) putObject(ctx context.Context, objectName string, data []byte, conditions gcsStorage.Conditions) error {
	writer := g.client.Bucket(g.bucket).Object(objectName).If(conditions).NewWriter(ctx)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return toSentinelErrors(err)
	}
	if err := writer.Close(); err != nil {
		return toSentinelErrors(err)
	}
	return nil
}
