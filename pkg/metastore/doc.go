// Copyright © 2019 One Concern

// Package metastore is the public facade of the versioned metadata
// store: it sequences calls to a backend implementing the store
// capability interface, and hosts the optimistic concurrency logic
// shared by every backend.
//
// Callers express concurrency intent by supplying the revision they
// last read (WithBaseRevision): an update proceeds only when that
// revision is still the head of the package, and fails with a
// ConflictError reporting the new head otherwise. Conflicts are
// resolved by rejection, never by merging: metadata content is opaque
// to the facade.
package metastore
