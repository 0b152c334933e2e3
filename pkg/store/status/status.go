// Copyright © 2019 One Concern

// Package status declares error constants returned by
// implementations of the Store interface.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between pkg/store and one
// of its implementations.
package status

import "github.com/oneconcern/metastore/pkg/errors"

var (
	// Sentinel errors returned by implementations of the interface defined by store

	// ErrNotFound indicates that the referenced package, revision or tag does not exist
	ErrNotFound = errors.New("not found")

	// ErrExists indicates that the package or tag already exists and cannot be overridden
	ErrExists = errors.New("exists already")

	// ErrConflict indicates that an optimistic concurrency check failed: the
	// supplied base revision is no longer the current head of the package
	ErrConflict = errors.New("conflict with concurrent update")

	// ErrInvalidArgument indicates a malformed identifier or payload
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable indicates that the backend medium could not complete the
	// operation (network failure, transient I/O error). Retrying is up to the
	// caller: the side effect may or may not have landed remotely.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrStorageAPI indicates any other storage API error
	ErrStorageAPI = errors.New("storage API error")

	// ErrNotImplemented tells that this feature has not been implemented yet
	ErrNotImplemented = errors.New("not implemented")
)
