// Copyright © 2019 One Concern

package gcs

import (
	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/metastore/pkg/store/status"
	"google.golang.org/api/googleapi"
)

func apiErrors(err *googleapi.Error) error {
	switch {
	case err.Code == 404:
		return status.ErrNotFound.Wrap(err)
	case err.Code == 412:
		// failed precondition on a conditional write: the caller decides
		// whether this means a lost race on the head or a taken name
		return status.ErrConflict.Wrap(err)
	case err.Code == 429 || err.Code >= 500:
		return status.ErrUnavailable.Wrap(err)
	default:
		return status.ErrStorageAPI.Wrap(err)
	}
}

func toSentinelErrors(err error) error {
	// return sentinel errors defined by the status package
	if err == nil {
		return nil
	}
	if err == gcsStorage.ErrObjectNotExist {
		return status.ErrNotFound.Wrap(err)
	}
	if typedErr, isGoogle := err.(*googleapi.Error); isGoogle {
		return apiErrors(typedErr)
	}
	// transport level failures: the side effect may have landed remotely
	return status.ErrUnavailable.Wrap(err)
}
