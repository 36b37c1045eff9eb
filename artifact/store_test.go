package artifact_test

import (
	"context"
	"testing"

	"github.com/ojpb/relational/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]artifact.Store {
	t.Helper()

	local, err := artifact.NewLocal(t.TempDir())
	require.NoError(t, err)

	return map[string]artifact.Store{
		"memory": artifact.NewMemory(),
		"local":  local,
	}
}

func TestStoreRoundtrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "runs/a/v1", []byte("first")))
			require.NoError(t, store.Put(ctx, "runs/a/v2", []byte("second")))
			require.NoError(t, store.Put(ctx, "runs/b/v1", []byte("other")))

			data, err := store.Get(ctx, "runs/a/v2")
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), data)

			names, err := store.List(ctx, "runs/a/")
			require.NoError(t, err)
			assert.Equal(t, []string{"runs/a/v1", "runs/a/v2"}, names)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, artifact.ErrNotFound)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "ckpt", []byte("old")))
			require.NoError(t, store.Put(ctx, "ckpt", []byte("new")))

			data, err := store.Get(ctx, "ckpt")
			require.NoError(t, err)
			assert.Equal(t, []byte("new"), data)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "ckpt", []byte("data")))
			require.NoError(t, store.Delete(ctx, "ckpt"))

			_, err := store.Get(ctx, "ckpt")
			require.ErrorIs(t, err, artifact.ErrNotFound)

			// Deleting a missing artifact is not an error.
			require.NoError(t, store.Delete(ctx, "ckpt"))
		})
	}
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	store := artifact.NewMemory()

	data := []byte("mutable")
	require.NoError(t, store.Put(ctx, "ckpt", data))
	data[0] = 'X'

	got, err := store.Get(ctx, "ckpt")
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got)
}
