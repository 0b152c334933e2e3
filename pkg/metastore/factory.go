// Copyright © 2019 One Concern

package metastore

import (
	"context"

	"github.com/oneconcern/metastore/pkg/dlogger"
	"github.com/oneconcern/metastore/pkg/errors"
	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/bdgr"
	"github.com/oneconcern/metastore/pkg/store/gcs"
	"github.com/oneconcern/metastore/pkg/store/localfs"
	"github.com/oneconcern/metastore/pkg/store/memory"
	"github.com/oneconcern/metastore/pkg/store/status"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
)

// Supported backend types, to be passed to NewStore.
const (
	BackendMemory  = "memory"
	BackendLocalFS = "localfs"
	BackendBadger  = "badger"
	BackendGCS     = "gcs"
)

// NewStore builds a storage backend from a type name and a loosely typed
// option map, e.g. as unmarshaled from a configuration file.
//
// Recognized options per backend:
//   - localfs: "path" (base directory, defaults to the process working directory)
//   - badger:  "dir" (required)
//   - gcs:     "bucket" (required), "credentials_file", "prefix"
//
// All backends honor "log_level": when set, the returned store logs its
// operations with a zap logger at that level.
func NewStore(ctx context.Context, backendType string, options map[string]interface{}) (store.Store, error) {
	var (
		backend store.Store
		err     error
	)
	switch backendType {
	case BackendMemory:
		backend = memory.New()

	case BackendLocalFS:
		var fs afero.Fs
		if path := cast.ToString(options["path"]); path != "" {
			fs = afero.NewBasePathFs(afero.NewOsFs(), path)
		}
		backend = localfs.New(fs)

	case BackendBadger:
		dir := cast.ToString(options["dir"])
		if dir == "" {
			return nil, errors.New("badger backend requires a dir option").Wrap(status.ErrInvalidArgument)
		}
		backend, err = bdgr.New(dir)
		if err != nil {
			return nil, err
		}

	case BackendGCS:
		bucket := cast.ToString(options["bucket"])
		if bucket == "" {
			return nil, errors.New("gcs backend requires a bucket option").Wrap(status.ErrInvalidArgument)
		}
		gcsOpts := make([]gcs.Option, 0, 2)
		if credentials := cast.ToString(options["credentials_file"]); credentials != "" {
			gcsOpts = append(gcsOpts, gcs.CredentialsFile(credentials))
		}
		if prefix := cast.ToString(options["prefix"]); prefix != "" {
			gcsOpts = append(gcsOpts, gcs.Prefix(prefix))
		}
		backend, err = gcs.New(ctx, bucket, gcsOpts...)
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.New("unknown backend type: " + backendType).Wrap(status.ErrInvalidArgument)
	}

	if logLevel := cast.ToString(options["log_level"]); logLevel != "" {
		logger, err := dlogger.GetLogger(logLevel)
		if err != nil {
			return nil, err
		}
		backend = store.Instrument(logger, backend)
	}
	return backend, nil
}
