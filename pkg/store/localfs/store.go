// Copyright © 2019 One Concern

// Package localfs implements the store capability interface on top of
// an afero file system.
//
// Revisions and tags are stored as one yaml record per object, and the
// mutable head pointer of a package is rewritten via a staging area and
// afero.Fs.Rename(), so that concurrent readers always observe either
// the previous or the new head, never a partial write.
//
// Mutual exclusion of the check-then-write sequence is provided by an
// in-process lock: like the memory backend, a localfs store instance
// must be the only writer for the file tree it manages. Use it for
// single-node deployments and tests, not for media shared between
// processes.
package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oneconcern/metastore/pkg/errors"
	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/status"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// staging area for atomic rename-into-place writes
const putStageName = ".put-stage"

// New creates a new local file system backed metadata store
func New(fs afero.Fs) store.Store {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(".metastore", "packages"))
	}
	return &localFS{fs: fs}
}

type localFS struct {
	fs afero.Fs
	mu sync.Mutex
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	default:
		return localfs
	}
}

func (l *localFS) CreatePackage(_ context.Context, packageID string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.readHead(packageID)
	switch {
	case err == nil:
		return model.RevisionDescriptor{}, status.ErrExists.WrapMessage("package " + packageID)
	case !errors.Is(err, status.ErrNotFound):
		return model.RevisionDescriptor{}, err
	}

	descriptor := model.NewRevisionDescriptor(
		model.RevisionPackageID(packageID),
		model.RevisionMessage(message),
		model.RevisionContributors(contributors),
	)
	if err := l.writeRevision(*descriptor, content); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if err := l.writeHead(packageID, descriptor.ID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	return *descriptor, nil
}

func (l *localFS) AppendRevision(_ context.Context, packageID, expectedParent string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	head, err := l.readHead(packageID)
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
	if err := l.writeRevision(*descriptor, content); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if err := l.writeHead(packageID, descriptor.ID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	return *descriptor, nil
}

func (l *localFS) GetRevision(_ context.Context, packageID, revisionID string) (model.RevisionDescriptor, []byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if revisionID == "" {
		head, err := l.readHead(packageID)
		if err != nil {
			return model.RevisionDescriptor{}, nil, err
		}
		revisionID = head
	}
	record, err := l.readRevision(packageID, revisionID)
	if err != nil {
		return model.RevisionDescriptor{}, nil, err
	}
	return record.Descriptor, record.Content, nil
}

func (l *localFS) ListRevisions(_ context.Context, packageID string) (model.RevisionDescriptors, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	head, err := l.readHead(packageID)
	if err != nil {
		return nil, err
	}

	// walk the parent chain from the head: this yields the history
	// newest first and skips orphans left over from aborted writes
	var descriptors model.RevisionDescriptors
	for next := head; next != ""; {
		record, err := l.readRevision(packageID, next)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, record.Descriptor)
		next = record.Descriptor.Parent
	}
	return descriptors, nil
}

func (l *localFS) DeletePackage(_ context.Context, packageID string) error {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.readHead(packageID); err != nil {
		return err
	}
	pkgDir := filepath.Clean(model.GetArchivePathPrefixToPackage(packageID))
	if err := l.fs.RemoveAll(pkgDir); err != nil {
		return status.ErrUnavailable.Wrap(err)
	}
	return nil
}

func (l *localFS) CreateTag(_ context.Context, packageID, revisionID, name string, contributors ...model.Contributor) (model.TagDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.TagDescriptor{}, err
	}
	if err := model.ValidateTagName(name); err != nil {
		return model.TagDescriptor{}, status.ErrInvalidArgument.Wrap(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.readRevision(packageID, revisionID); err != nil {
		return model.TagDescriptor{}, err
	}

	tagPath := model.GetArchivePathToTag(packageID, name)
	if exists, err := afero.Exists(l.fs, tagPath); err != nil {
		return model.TagDescriptor{}, status.ErrUnavailable.Wrap(err)
	} else if exists {
		return model.TagDescriptor{}, status.ErrExists.WrapMessage("tag " + name)
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
	if err := l.putStaged(tagPath, buffer); err != nil {
		return model.TagDescriptor{}, err
	}
	return *descriptor, nil
}

func (l *localFS) GetTag(_ context.Context, packageID, name string) (model.TagDescriptor, error) {
	// a name that never passed CreateTag validation must not reach the
	// file tree as a path
	if err := model.ValidateTagName(name); err != nil {
		return model.TagDescriptor{}, status.ErrInvalidArgument.Wrap(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.readTag(packageID, name)
}

func (l *localFS) ListTags(_ context.Context, packageID string) (model.TagDescriptors, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.readHead(packageID); err != nil {
		return nil, err
	}

	tagsDir := filepath.Clean(model.GetArchivePathPrefixToTags(packageID))
	infos, err := afero.ReadDir(l.fs, tagsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return model.TagDescriptors{}, nil
		}
		return nil, status.ErrUnavailable.Wrap(err)
	}

	tags := make(model.TagDescriptors, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		tag, err := l.readTag(packageID, model.TagNameFromArchivePath(packageID, tagsDir+"/"+info.Name()))
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (l *localFS) DeleteTag(_ context.Context, packageID, name string) error {
	if err := model.ValidateTagName(name); err != nil {
		return status.ErrInvalidArgument.Wrap(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tagPath := model.GetArchivePathToTag(packageID, name)
	if exists, err := afero.Exists(l.fs, tagPath); err != nil {
		return status.ErrUnavailable.Wrap(err)
	} else if !exists {
		return status.ErrNotFound.WrapMessage("tag " + name)
	}
	if err := l.fs.Remove(tagPath); err != nil {
		return status.ErrUnavailable.Wrap(err)
	}
	return nil
}

func (l *localFS) readHead(packageID string) (string, error) {
	data, err := afero.ReadFile(l.fs, model.GetArchivePathToHead(packageID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", status.ErrNotFound.WrapMessage("package " + packageID)
		}
		return "", status.ErrUnavailable.Wrap(err)
	}
	var head model.HeadRecord
	if err := yaml.Unmarshal(data, &head); err != nil {
		return "", status.ErrStorageAPI.Wrap(err)
	}
	return head.RevisionID, nil
}

func (l *localFS) writeHead(packageID, revisionID string) error {
	buffer, err := yaml.Marshal(model.HeadRecord{RevisionID: revisionID})
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	return l.putStaged(model.GetArchivePathToHead(packageID), buffer)
}

func (l *localFS) readRevision(packageID, revisionID string) (model.RevisionRecord, error) {
	data, err := afero.ReadFile(l.fs, model.GetArchivePathToRevision(packageID, revisionID))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RevisionRecord{}, status.ErrNotFound.WrapMessage(
				fmt.Sprintf("revision %s@%s", packageID, revisionID))
		}
		return model.RevisionRecord{}, status.ErrUnavailable.Wrap(err)
	}
	var record model.RevisionRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return model.RevisionRecord{}, status.ErrStorageAPI.Wrap(err)
	}
	return record, nil
}

func (l *localFS) writeRevision(descriptor model.RevisionDescriptor, content []byte) error {
	if err := model.ValidateRevision(descriptor); err != nil {
		return status.ErrInvalidArgument.Wrap(err)
	}
	buffer, err := yaml.Marshal(model.RevisionRecord{Descriptor: descriptor, Content: content})
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	return l.putStaged(model.GetArchivePathToRevision(descriptor.PackageID, descriptor.ID), buffer)
}

func (l *localFS) readTag(packageID, name string) (model.TagDescriptor, error) {
	data, err := afero.ReadFile(l.fs, model.GetArchivePathToTag(packageID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return model.TagDescriptor{}, status.ErrNotFound.WrapMessage(
				fmt.Sprintf("tag %s for package %s", name, packageID))
		}
		return model.TagDescriptor{}, status.ErrUnavailable.Wrap(err)
	}
	var tag model.TagDescriptor
	if err := yaml.Unmarshal(data, &tag); err != nil {
		return model.TagDescriptor{}, status.ErrStorageAPI.Wrap(err)
	}
	return tag, nil
}

// putStaged writes a file in the staging area, then Rename()s it into
// place. Rename is the atomicity primitive of this backend.
func (l *localFS) putStaged(key string, data []byte) error {
	if err := l.fs.MkdirAll(putStageName, 0700); err != nil {
		return status.ErrUnavailable.Wrap(err)
	}
	stageKey := filepath.Join(putStageName, ksuid.New().String())
	if err := afero.WriteFile(l.fs, stageKey, data, 0600); err != nil {
		return status.ErrUnavailable.Wrap(err)
	}
	// Rename() doesn't create directories automatically
	if dir := filepath.Dir(key); dir != "" {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return status.ErrUnavailable.Wrap(err)
		}
	}
	if err := l.fs.Rename(stageKey, key); err != nil {
		return status.ErrUnavailable.Wrap(err)
	}
	return nil
}
