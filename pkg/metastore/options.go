// Copyright © 2019 One Concern

package metastore

import (
	"github.com/oneconcern/metastore/pkg/model"
	"go.uber.org/zap"
)

// Option is a functor to configure the metadata store facade
type Option func(*MetaStore)

// Logger specifies a logger for this facade
func Logger(logger *zap.Logger) Option {
	return func(m *MetaStore) {
		if logger != nil {
			m.l = logger
		}
	}
}

type operation struct {
	message      string
	baseRevision string
	partial      bool
	contributors []model.Contributor
}

func newOperation(opts []OpOption) *operation {
	op := &operation{}
	for _, apply := range opts {
		apply(op)
	}
	return op
}

// OpOption is a functor to pass optional parameters to facade operations
type OpOption func(*operation)

// WithMessage describes the revision being created
func WithMessage(message string) OpOption {
	return func(op *operation) {
		op.message = message
	}
}

// WithBaseRevision declares the revision the caller last read.
//
// An update supplying a base revision fails with a conflict when that
// revision is no longer the head of the package. Omitting it means
// last write wins.
func WithBaseRevision(revisionID string) OpOption {
	return func(op *operation) {
		op.baseRevision = revisionID
	}
}

// WithPartial merges the supplied document into the base document
// instead of replacing it
func WithPartial() OpOption {
	return func(op *operation) {
		op.partial = true
	}
}

// WithContributors records the contributors of a revision or tag
func WithContributors(c []model.Contributor) OpOption {
	return func(op *operation) {
		op.contributors = c
	}
}

// WithContributor records a single contributor of a revision or tag
func WithContributor(c model.Contributor) OpOption {
	return WithContributors([]model.Contributor{c})
}

type tagUpdate struct {
	newName    string
	revisionID string
}

// TagUpdateOption is a functor to pass optional parameters to TagUpdate
type TagUpdateOption func(*tagUpdate)

// TagRename gives the tag a new name
func TagRename(newName string) TagUpdateOption {
	return func(op *tagUpdate) {
		op.newName = newName
	}
}

// TagRepoint points the tag at another existing revision
func TagRepoint(revisionID string) TagUpdateOption {
	return func(op *tagUpdate) {
		op.revisionID = revisionID
	}
}
