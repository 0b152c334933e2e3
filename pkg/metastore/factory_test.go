package metastore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/oneconcern/metastore/pkg/errors"
	"github.com/oneconcern/metastore/pkg/store/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		s, err := NewStore(ctx, BackendMemory, nil)
		require.NoError(t, err)
		assert.Equal(t, "memory", s.String())
	})

	t.Run("localfs", func(t *testing.T) {
		t.Parallel()
		s, err := NewStore(ctx, BackendLocalFS, map[string]interface{}{
			"path": t.TempDir(),
		})
		require.NoError(t, err)
		// the label carries the resolved base path
		assert.True(t, strings.HasPrefix(s.String(), "localfs@"))

		_, err = New(s).Create(ctx, "pkg-f", []byte(`{"v":1}`))
		require.NoError(t, err)
	})

	t.Run("badger", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		s, err := NewStore(ctx, BackendBadger, map[string]interface{}{
			"dir": dir,
		})
		require.NoError(t, err)
		assert.Equal(t, "badger@"+dir, s.String())

		_, err = New(s).Create(ctx, "pkg-f", []byte(`{"v":1}`))
		require.NoError(t, err)
		if closer, ok := s.(io.Closer); ok {
			require.NoError(t, closer.Close())
		}
	})

	t.Run("badger without dir", func(t *testing.T) {
		t.Parallel()
		_, err := NewStore(ctx, BackendBadger, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrInvalidArgument))
	})

	t.Run("gcs without bucket", func(t *testing.T) {
		t.Parallel()
		_, err := NewStore(ctx, BackendGCS, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrInvalidArgument))
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()
		_, err := NewStore(ctx, "etcd", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrInvalidArgument))
	})

	t.Run("instrumented", func(t *testing.T) {
		t.Parallel()
		s, err := NewStore(ctx, BackendMemory, map[string]interface{}{
			"log_level": "debug",
		})
		require.NoError(t, err)
		// the decorator delegates String() to the wrapped backend
		assert.Equal(t, "memory", s.String())

		_, err = New(s).Create(ctx, "pkg-f", []byte(`{"v":1}`))
		require.NoError(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Parallel()
		_, err := NewStore(ctx, BackendMemory, map[string]interface{}{
			"log_level": "chatty",
		})
		require.Error(t, err)
	})
}
