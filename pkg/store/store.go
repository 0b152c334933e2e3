// Copyright © 2019 One Concern

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/oneconcern/metastore/pkg/model"
	"github.com/oneconcern/metastore/pkg/store/status"
)

// Store implementations know how to persist versioned package metadata.
//
// Typically this is something file system-like or object store-like.
// Implementations of this interface are assumed to be fairly simple:
// the one correctness-critical contract they must provide is that
// AppendRevision's check-then-write is indivisible with respect to
// other concurrent callers targeting the same package, by whatever
// locking or conditional-write primitive the medium offers.
//
// All operations are all-or-nothing: a failed call never leaves a
// package with a half-written history or dangling tags.
type Store interface {
	String() string

	// CreatePackage persists the first revision of a new package.
	// It fails with status.ErrExists when the package already has at
	// least one revision.
	CreatePackage(ctx context.Context, packageID string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error)

	// AppendRevision atomically appends a revision on top of the current
	// head. When expectedParent is not empty, the append only proceeds if
	// the head revision ID equals expectedParent, and fails with a
	// ConflictError otherwise. An empty expectedParent skips the check
	// (force write). Fails with status.ErrNotFound when the package has
	// no revisions yet.
	AppendRevision(ctx context.Context, packageID, expectedParent string, content []byte, message string, contributors ...model.Contributor) (model.RevisionDescriptor, error)

	// GetRevision returns a revision descriptor and the metadata document
	// snapshotted by that revision. An empty revisionID selects the
	// current head.
	GetRevision(ctx context.Context, packageID, revisionID string) (model.RevisionDescriptor, []byte, error)

	// ListRevisions returns the complete history of a package, newest first
	ListRevisions(ctx context.Context, packageID string) (model.RevisionDescriptors, error)

	// DeletePackage removes a package, all its revisions and all its tags
	// atomically. Fails with status.ErrNotFound on a missing package.
	DeletePackage(ctx context.Context, packageID string) error

	// CreateTag records a named pointer to an existing revision. Fails
	// with status.ErrNotFound when the revision is unknown and with
	// status.ErrExists when the name is already taken.
	CreateTag(ctx context.Context, packageID, revisionID, name string, contributors ...model.Contributor) (model.TagDescriptor, error)

	// GetTag resolves a tag by name
	GetTag(ctx context.Context, packageID, name string) (model.TagDescriptor, error)

	// ListTags returns all tags of a package. Ordering is not guaranteed.
	ListTags(ctx context.Context, packageID string) (model.TagDescriptors, error)

	// DeleteTag removes a single tag. Fails with status.ErrNotFound on a
	// missing tag.
	DeleteTag(ctx context.Context, packageID, name string) error
}

// ConflictError reports a failed optimistic concurrency check, along
// with the current head revision ID so a caller can re-fetch and retry
// without an extra round trip.
//
// ConflictError unwraps to status.ErrConflict.
type ConflictError struct {
	PackageID string
	Expected  string
	Head      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on package %s: expected head %s, actual head %s",
		e.PackageID, e.Expected, e.Head)
}

func (e *ConflictError) Unwrap() error {
	return status.ErrConflict
}

// NewConflictError builds a ConflictError for a package whose head moved
// past the expected revision
func NewConflictError(packageID, expected, head string) *ConflictError {
	return &ConflictError{
		PackageID: packageID,
		Expected:  expected,
		Head:      head,
	}
}

// CheckArchivePackageID verifies that a package ID may be used as a
// path component of the archive layout described by the model package.
//
// Backends holding the whole package state in memory accept any
// non-empty ID: this stricter check only applies to media addressed by
// hierarchical keys.
func CheckArchivePackageID(packageID string) error {
	if err := model.ValidatePackageID(packageID); err != nil {
		return status.ErrInvalidArgument.Wrap(err)
	}
	if strings.ContainsAny(packageID, `/\`) || packageID == "." || packageID == ".." {
		return status.ErrInvalidArgument.WrapMessage(
			fmt.Sprintf("package ID %q cannot be used as an archive path component", packageID))
	}
	return nil
}
