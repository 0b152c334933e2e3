package gcs

import (
	"fmt"
	"testing"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/metastore/pkg/errors"
	"github.com/oneconcern/metastore/pkg/store/status"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestToSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "object does not exist",
			err:  gcsStorage.ErrObjectNotExist,
			want: status.ErrNotFound,
		},
		{
			name: "missing resource",
			err:  &googleapi.Error{Code: 404},
			want: status.ErrNotFound,
		},
		{
			name: "failed precondition",
			err:  &googleapi.Error{Code: 412},
			want: status.ErrConflict,
		},
		{
			name: "rate limited",
			err:  &googleapi.Error{Code: 429},
			want: status.ErrUnavailable,
		},
		{
			name: "server failure",
			err:  &googleapi.Error{Code: 503},
			want: status.ErrUnavailable,
		},
		{
			name: "anything else from the API",
			err:  &googleapi.Error{Code: 403},
			want: status.ErrStorageAPI,
		},
		{
			name: "transport failure",
			err:  fmt.Errorf("connection reset"),
			want: status.ErrUnavailable,
		},
	}
	for _, tts := range tests {
		tt := tts
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := toSentinelErrors(tt.err)
			assert.Truef(t, errors.Is(got, tt.want), "expected %v to map to %v", tt.err, tt.want)
		})
	}

	assert.NoError(t, toSentinelErrors(nil))
}
