// Copyright © 2019 One Concern

// Package store defines the capability interface implemented by
// versioned metadata backends.
//
// This package supports the following backends:
//   - process memory (reference implementation)
//   - local or in-memory file systems (afero)
//   - badger key-value databases
//   - GCS (Google)
package store
