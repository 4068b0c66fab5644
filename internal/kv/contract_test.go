package kv

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("get missing key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "groups", `[]`))
		require.NoError(t, s.Put(ctx, "groups", `[{"id":"grp-a","name":"A"}]`))

		value, err := s.Get(ctx, "groups")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"grp-a","name":"A"}]`, value)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "marker:1", "x"))
		require.NoError(t, s.Delete(ctx, "marker:1"))
		require.NoError(t, s.Delete(ctx, "marker:1"))

		_, err := s.Get(ctx, "marker:1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list pages through prefix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var want []string
		for i := 0; i < 23; i++ {
			key := fmt.Sprintf("marker:%02d", i)
			want = append(want, key)
			require.NoError(t, s.Put(ctx, key, "{}"))
		}
		require.NoError(t, s.Put(ctx, "markers-elsewhere", "{}"))
		require.NoError(t, s.Put(ctx, "pair:g:r:markerIds", "[]"))
		require.NoError(t, s.Put(ctx, "Marker:upper", "{}"))

		got, err := ListAll(ctx, s, "marker:", 5)
		require.NoError(t, err)
		sort.Strings(got)
		assert.Equal(t, want, got)
	})

	t.Run("list empty prefix set", func(t *testing.T) {
		s := newStore(t)
		got, err := ListAll(context.Background(), s, "marker:", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(context.Background()))
	})
}
