package gcs

import (
	"context"
	"os"
	"testing"

	"github.com/oneconcern/metastore/pkg/store"
	"github.com/oneconcern/metastore/pkg/store/storetest"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/require"
)

// TestGCSConformance replays the shared scenario set against a real
// bucket. It requires credentials and is skipped otherwise.
func TestGCSConformance(t *testing.T) {
	bucket := os.Getenv("METASTORE_GCS_TEST_BUCKET")
	if bucket == "" {
		t.Skip("set METASTORE_GCS_TEST_BUCKET to run GCS integration tests")
	}

	storetest.Conformance(t, func(t *testing.T) store.Store {
		s, err := New(context.Background(), bucket, Prefix("conformance-"+ksuid.New().String()+"/"))
		require.NoError(t, err)
		return s
	})
}
