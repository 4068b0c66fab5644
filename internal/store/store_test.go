package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"markershare/internal/kv"
)

type fixture struct {
	kv      *kv.MemoryStore
	groups  *EntityRepository
	raids   *EntityRepository
	markers *MarkerRepository
}

func newFixture(t *testing.T, opts ...MarkerOption) *fixture {
	t.Helper()
	s := kv.NewMemoryStore()
	groups := NewGroupRepository(s)
	raids := NewRaidRepository(s)

	seq := 0
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	defaults := []MarkerOption{
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("m%03d", seq)
		}),
		WithClock(func() time.Time {
			return base.Add(time.Duration(seq) * time.Minute)
		}),
	}
	return &fixture{
		kv:      s,
		groups:  groups,
		raids:   raids,
		markers: NewMarkerRepository(s, groups, raids, append(defaults, opts...)...),
	}
}

func (f *fixture) group(t *testing.T, name string) Entity {
	t.Helper()
	entity, _, err := f.groups.Create(context.Background(), name)
	require.NoError(t, err)
	return entity
}

func (f *fixture) raid(t *testing.T, name string) Entity {
	t.Helper()
	entity, _, err := f.raids.Create(context.Background(), name)
	require.NoError(t, err)
	return entity
}

func (f *fixture) marker(t *testing.T, groupID, raidID string) Marker {
	t.Helper()
	marker, err := f.markers.Create(context.Background(), NewMarker{
		GroupID:      groupID,
		RaidID:       raidID,
		MarkerString: "<markers>" + groupID + raidID + "</markers>",
	}, "admin")
	require.NoError(t, err)
	return marker
}

func (f *fixture) exists(t *testing.T, key string) bool {
	t.Helper()
	_, err := f.kv.Get(context.Background(), key)
	if errors.Is(err, kv.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}
