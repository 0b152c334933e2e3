// Copyright © 2019 One Concern

// Package bdgr implements the store capability interface on top of a
// badger key-value database.
//
// Atomicity of the check-then-write sequence relies on badger
// transactions: a concurrent commit touching the same head key makes
// the transaction fail with badger.ErrConflict, in which case the
// whole transaction is re-run against the new state. A stale expected
// parent then surfaces as a regular ConflictError.
package bdgr

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger"
	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/status"
)

// Option is a functor to pass optional parameters to the badger store
type Option func(*badgerStore)

// Database overrides the badger database used by this store.
//
// Mostly useful for tests sharing one database across stores.
func Database(db *badger.DB) Option {
	return func(b *badgerStore) {
		b.db = db
	}
}

// New creates a badger backed metadata store rooted at dir
func New(dir string, opts ...Option) (store.Store, error) {
	b := &badgerStore{dir: dir}
	for _, apply := range opts {
		apply(b)
	}
	if b.db == nil {
		db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
		if err != nil {
			return nil, status.ErrUnavailable.Wrap(err)
		}
		b.db = db
	}
	return b, nil
}

type badgerStore struct {
	dir string
	db  *badger.DB
}

func (b *badgerStore) String() string {
	return "badger@" + b.dir
}

// Close releases the underlying badger database
func (b *badgerStore) Close() error {
	return b.db.Close()
}

func headKey(packageID string) []byte {
	return []byte(fmt.Sprint("heads/", packageID))
}

func revisionKey(packageID, revisionID string) []byte {
	return []byte(fmt.Sprint("revisions/", packageID, "/", revisionID))
}

func revisionPrefix(packageID string) []byte {
	return []byte(fmt.Sprint("revisions/", packageID, "/"))
}

func tagKey(packageID, name string) []byte {
	return []byte(fmt.Sprint("tags/", packageID, "/", name))
}

func tagPrefix(packageID string) []byte {
	return []byte(fmt.Sprint("tags/", packageID, "/"))
}

// update re-runs a transaction for as long as concurrent commits
// invalidate its reads. Logical outcomes, conflicts included, are
// decided inside the transaction against the freshest state.
func (b *badgerStore) update(fn func(txn *badger.Txn) error) error {
	for {
		err := b.db.Update(fn)
		if err == badger.ErrConflict {
			continue
		}
		return err
	}
}

func (b *badgerStore) CreatePackage(_ context.Context, packageID string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}

	var descriptor model.RevisionDescriptor
	err := b.update(func(txn *badger.Txn) error {
		_, err := txn.Get(headKey(packageID))
		switch err {
		case nil:
			return status.ErrExists.WrapMessage("package " + packageID)
		case badger.ErrKeyNotFound:
		default:
			return status.ErrUnavailable.Wrap(err)
		}

		descriptor = *model.NewRevisionDescriptor(
			model.RevisionPackageID(packageID),
			model.RevisionMessage(message),
			model.RevisionContributors(contributors),
		)
		return b.writeRevisionAndHead(txn, descriptor, content)
	})
	if err != nil {
		return model.RevisionDescriptor{}, err
	}
	return descriptor, nil
}

func (b *badgerStore) AppendRevision(_ context.Context, packageID, expectedParent string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.RevisionDescriptor{}, err
	}
	if len(content) == 0 {
		return model.RevisionDescriptor{}, status.ErrInvalidArgument.WrapMessage("empty metadata document")
	}

	var descriptor model.RevisionDescriptor
	err := b.update(func(txn *badger.Txn) error {
		head, err := b.readHead(txn, packageID)
		if err != nil {
			return err
		}
		if expectedParent != "" && head != expectedParent {
			return store.NewConflictError(packageID, expectedParent, head)
		}

		descriptor = *model.NewRevisionDescriptor(
			model.RevisionPackageID(packageID),
			model.RevisionParent(head),
			model.RevisionMessage(message),
			model.RevisionContributors(contributors),
		)
		return b.writeRevisionAndHead(txn, descriptor, content)
	})
	if err != nil {
		return model.RevisionDescriptor{}, err
	}
	return descriptor, nil
}

func (b *badgerStore) GetRevision(_ context.Context, packageID, revisionID string) (model.RevisionDescriptor, []byte, error) {
	var record model.RevisionRecord
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		if revisionID == "" {
			if revisionID, err = b.readHead(txn, packageID); err != nil {
				return err
			}
		}
		record, err = b.readRevision(txn, packageID, revisionID)
		return err
	})
	if err != nil {
		return model.RevisionDescriptor{}, nil, err
	}
	return record.Descriptor, record.Content, nil
}

func (b *badgerStore) ListRevisions(_ context.Context, packageID string) (model.RevisionDescriptors, error) {
	var descriptors model.RevisionDescriptors
	err := b.db.View(func(txn *badger.Txn) error {
		head, err := b.readHead(txn, packageID)
		if err != nil {
			return err
		}
		for next := head; next != ""; {
			record, err := b.readRevision(txn, packageID, next)
			if err != nil {
				return err
			}
			descriptors = append(descriptors, record.Descriptor)
			next = record.Descriptor.Parent
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return descriptors, nil
}

func (b *badgerStore) DeletePackage(_ context.Context, packageID string) error {
	return b.update(func(txn *badger.Txn) error {
		if _, err := b.readHead(txn, packageID); err != nil {
			return err
		}
		if err := txn.Delete(headKey(packageID)); err != nil {
			return status.ErrUnavailable.Wrap(err)
		}
		for _, prefix := range [][]byte{revisionPrefix(packageID), tagPrefix(packageID)} {
			keys, err := keysWithPrefix(txn, prefix)
			if err != nil {
				return err
			}
			for _, key := range keys {
				if err := txn.Delete(key); err != nil {
					return status.ErrUnavailable.Wrap(err)
				}
			}
		}
		return nil
	})
}

func (b *badgerStore) CreateTag(_ context.Context, packageID, revisionID, name string, contributors ...model.Contributor) (model.TagDescriptor, error) {
	if err := store.CheckArchivePackageID(packageID); err != nil {
		return model.TagDescriptor{}, err
	}
	if err := model.ValidateTagName(name); err != nil {
		return model.TagDescriptor{}, status.ErrInvalidArgument.Wrap(err)
	}

	var descriptor model.TagDescriptor
	err := b.update(func(txn *badger.Txn) error {
		if _, err := b.readRevision(txn, packageID, revisionID); err != nil {
			return err
		}
		_, err := txn.Get(tagKey(packageID, name))
		switch err {
		case nil:
			return status.ErrExists.WrapMessage("tag " + name)
		case badger.ErrKeyNotFound:
		default:
			return status.ErrUnavailable.Wrap(err)
		}

		descriptor = *model.NewTagDescriptor(
			model.TagPackageID(packageID),
			model.TagName(name),
			model.TagRevision(revisionID),
			model.TagContributors(contributors),
		)
		buffer, err := jsoniter.Marshal(descriptor)
		if err != nil {
			return status.ErrStorageAPI.Wrap(err)
		}
		return txn.Set(tagKey(packageID, name), buffer)
	})
	if err != nil {
		return model.TagDescriptor{}, err
	}
	return descriptor, nil
}

func (b *badgerStore) GetTag(_ context.Context, packageID, name string) (model.TagDescriptor, error) {
	var tag model.TagDescriptor
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		tag, err = b.readTag(txn, packageID, name)
		return err
	})
	if err != nil {
		return model.TagDescriptor{}, err
	}
	return tag, nil
}

func (b *badgerStore) ListTags(_ context.Context, packageID string) (model.TagDescriptors, error) {
	var tags model.TagDescriptors
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := b.readHead(txn, packageID); err != nil {
			return err
		}
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := tagPrefix(packageID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var tag model.TagDescriptor
			err := it.Item().Value(func(data []byte) error {
				return jsoniter.Unmarshal(data, &tag)
			})
			if err != nil {
				return status.ErrStorageAPI.Wrap(err)
			}
			tags = append(tags, tag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = model.TagDescriptors{}
	}
	return tags, nil
}

func (b *badgerStore) DeleteTag(_ context.Context, packageID, name string) error {
	return b.update(func(txn *badger.Txn) error {
		if _, err := b.readTag(txn, packageID, name); err != nil {
			return err
		}
		return txn.Delete(tagKey(packageID, name))
	})
}

func (b *badgerStore) writeRevisionAndHead(txn *badger.Txn, descriptor model.RevisionDescriptor, content []byte) error {
	buffer, err := jsoniter.Marshal(model.RevisionRecord{Descriptor: descriptor, Content: content})
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	if err := txn.Set(revisionKey(descriptor.PackageID, descriptor.ID), buffer); err != nil {
		return status.ErrUnavailable.Wrap(err)
	}
	head, err := jsoniter.Marshal(model.HeadRecord{RevisionID: descriptor.ID})
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	if err := txn.Set(headKey(descriptor.PackageID), head); err != nil {
		return status.ErrUnavailable.Wrap(err)
	}
	return nil
}

func (b *badgerStore) readHead(txn *badger.Txn, packageID string) (string, error) {
	item, err := txn.Get(headKey(packageID))
	if err != nil {
		return "", badgerRewriteError(err, "package "+packageID)
	}
	var head model.HeadRecord
	err = item.Value(func(data []byte) error {
		return jsoniter.Unmarshal(data, &head)
	})
	if err != nil {
		return "", status.ErrStorageAPI.Wrap(err)
	}
	return head.RevisionID, nil
}

func (b *badgerStore) readRevision(txn *badger.Txn, packageID, revisionID string) (model.RevisionRecord, error) {
	item, err := txn.Get(revisionKey(packageID, revisionID))
	if err != nil {
		return model.RevisionRecord{}, badgerRewriteError(err, fmt.Sprintf("revision %s@%s", packageID, revisionID))
	}
	var record model.RevisionRecord
	err = item.Value(func(data []byte) error {
		return jsoniter.Unmarshal(data, &record)
	})
	if err != nil {
		return model.RevisionRecord{}, status.ErrStorageAPI.Wrap(err)
	}
	return record, nil
}

func (b *badgerStore) readTag(txn *badger.Txn, packageID, name string) (model.TagDescriptor, error) {
	item, err := txn.Get(tagKey(packageID, name))
	if err != nil {
		return model.TagDescriptor{}, badgerRewriteError(err, fmt.Sprintf("tag %s for package %s", name, packageID))
	}
	var tag model.TagDescriptor
	err = item.Value(func(data []byte) error {
		return jsoniter.Unmarshal(data, &tag)
	})
	if err != nil {
		return model.TagDescriptor{}, status.ErrStorageAPI.Wrap(err)
	}
	return tag, nil
}

func keysWithPrefix(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

func badgerRewriteError(err error, subject string) error {
	switch err {
	case badger.ErrKeyNotFound:
		return status.ErrNotFound.WrapMessage(subject)
	case badger.ErrEmptyKey:
		return status.ErrInvalidArgument.Wrap(err)
	default:
		return status.ErrUnavailable.Wrap(err)
	}
}
