package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"markershare/internal/kv"
)

const defaultListPageSize = 100

type MarkerOption func(*MarkerRepository)

// WithLengthBounds enforces markerString length in characters. Zero disables a bound.
func WithLengthBounds(minLength, maxLength int) MarkerOption {
	return func(r *MarkerRepository) {
		r.minLength = minLength
		r.maxLength = maxLength
	}
}

func WithListPageSize(size int) MarkerOption {
	return func(r *MarkerRepository) {
		if size > 0 {
			r.pageSize = size
		}
	}
}

func WithClock(now func() time.Time) MarkerOption {
	return func(r *MarkerRepository) { r.now = now }
}

func WithIDGenerator(newID func() string) MarkerOption {
	return func(r *MarkerRepository) { r.newID = newID }
}

// MarkerRepository keeps versioned markers per (group, raid) pair. None of
// its multi-key writes are atomic; concurrent creates on one pair may
// assign the same version.
type MarkerRepository struct {
	kv     kv.Store
	groups *EntityRepository
	raids  *EntityRepository
	assoc  *Associations

	minLength int
	maxLength int
	pageSize  int
	now       func() time.Time
	newID     func() string
}

func NewMarkerRepository(s kv.Store, groups, raids *EntityRepository, opts ...MarkerOption) *MarkerRepository {
	r := &MarkerRepository{
		kv:       s,
		groups:   groups,
		raids:    raids,
		assoc:    NewAssociations(s),
		pageSize: defaultListPageSize,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MarkerRepository) Create(ctx context.Context, input NewMarker, author string) (Marker, error) {
	input.GroupID = strings.TrimSpace(input.GroupID)
	input.RaidID = strings.TrimSpace(input.RaidID)
	input.Type = strings.TrimSpace(input.Type)
	if err := r.validate(input); err != nil {
		return Marker{}, err
	}

	if _, ok, err := r.groups.Find(ctx, input.GroupID); err != nil {
		return Marker{}, err
	} else if !ok {
		return Marker{}, ErrGroupNotFound
	}
	if _, ok, err := r.raids.Find(ctx, input.RaidID); err != nil {
		return Marker{}, err
	} else if !ok {
		return Marker{}, ErrRaidNotFound
	}

	if err := r.assoc.Add(ctx, input.GroupID, input.RaidID); err != nil {
		return Marker{}, err
	}
	latest, err := r.LatestVersion(ctx, input.GroupID, input.RaidID)
	if err != nil {
		return Marker{}, err
	}

	marker := Marker{
		ID:           r.newID(),
		GroupID:      input.GroupID,
		RaidID:       input.RaidID,
		Version:      latest + 1,
		Type:         input.Type,
		MarkerString: input.MarkerString,
		CreatedAt:    r.now().UTC(),
		CreatedBy:    author,
	}
	if err := kv.PutJSON(ctx, r.kv, markerKey(marker.ID), marker); err != nil {
		return Marker{}, fmt.Errorf("save marker: %w", err)
	}
	if err := r.setLatestVersion(ctx, marker.GroupID, marker.RaidID, marker.Version); err != nil {
		return Marker{}, err
	}

	ids, err := r.pairMarkerIDs(ctx, marker.GroupID, marker.RaidID)
	if err != nil {
		return Marker{}, err
	}
	ids = append([]string{marker.ID}, ids...)
	if err := kv.PutJSON(ctx, r.kv, pairMarkerIDsKey(marker.GroupID, marker.RaidID), ids); err != nil {
		return Marker{}, fmt.Errorf("save marker ids: %w", err)
	}
	return marker, nil
}

func (r *MarkerRepository) validate(input NewMarker) error {
	if input.GroupID == "" {
		return fieldRequired("groupId")
	}
	if input.RaidID == "" {
		return fieldRequired("raidId")
	}
	if strings.TrimSpace(input.MarkerString) == "" {
		return fieldRequired("markerString")
	}
	length := utf8.RuneCountInString(input.MarkerString)
	if r.minLength > 0 && length < r.minLength {
		return &ValidationError{Field: "markerString", Message: fmt.Sprintf("field markerString must be at least %d characters", r.minLength)}
	}
	if r.maxLength > 0 && length > r.maxLength {
		return &ValidationError{Field: "markerString", Message: fmt.Sprintf("field markerString must be at most %d characters", r.maxLength)}
	}
	return nil
}

func (r *MarkerRepository) Get(ctx context.Context, id string) (Marker, error) {
	var marker Marker
	ok, err := kv.GetJSON(ctx, r.kv, markerKey(id), &marker)
	if err != nil {
		return Marker{}, fmt.Errorf("load marker %s: %w", id, err)
	}
	if !ok {
		return Marker{}, ErrNotFound
	}
	return marker, nil
}

// Delete never renumbers the survivors. The pair's latest version becomes
// the highest surviving version, and the pair keys go away with the last marker.
func (r *MarkerRepository) Delete(ctx context.Context, id string) error {
	marker, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.kv.Delete(ctx, markerKey(id)); err != nil {
		return fmt.Errorf("delete marker %s: %w", id, err)
	}

	ids, err := r.pairMarkerIDs(ctx, marker.GroupID, marker.RaidID)
	if err != nil {
		return err
	}
	remaining := without(ids, id)
	if len(remaining) == 0 {
		if err := r.kv.Delete(ctx, pairMarkerIDsKey(marker.GroupID, marker.RaidID)); err != nil {
			return err
		}
		return r.kv.Delete(ctx, pairLatestVersionKey(marker.GroupID, marker.RaidID))
	}

	if err := kv.PutJSON(ctx, r.kv, pairMarkerIDsKey(marker.GroupID, marker.RaidID), remaining); err != nil {
		return err
	}
	latest := 0
	for _, survivorID := range remaining {
		survivor, err := r.Get(ctx, survivorID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if survivor.Version > latest {
			latest = survivor.Version
		}
	}
	return r.setLatestVersion(ctx, marker.GroupID, marker.RaidID, latest)
}

// LatestVersion is 0 for a pair that never had markers.
func (r *MarkerRepository) LatestVersion(ctx context.Context, groupID, raidID string) (int, error) {
	raw, err := r.kv.Get(ctx, pairLatestVersionKey(groupID, raidID))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load latest version: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse latest version %q: %w", raw, err)
	}
	return version, nil
}

// ListAll scans every marker record, newest first.
func (r *MarkerRepository) ListAll(ctx context.Context) ([]MarkerSummary, error) {
	keys, err := kv.ListAll(ctx, r.kv, markerPrefix, r.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	markers := make([]Marker, 0, len(keys))
	for _, key := range keys {
		marker, err := r.Get(ctx, strings.TrimPrefix(key, markerPrefix))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		markers = append(markers, marker)
	}
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].CreatedAt.After(markers[j].CreatedAt)
	})
	return summaries(markers), nil
}

// ListForPair keeps the stored order and drops ids whose record is gone
// or points at another pair.
func (r *MarkerRepository) ListForPair(ctx context.Context, groupID, raidID string) ([]MarkerSummary, error) {
	ids, err := r.pairMarkerIDs(ctx, groupID, raidID)
	if err != nil {
		return nil, err
	}
	markers := make([]Marker, 0, len(ids))
	for _, id := range ids {
		marker, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if marker.GroupID != groupID || marker.RaidID != raidID {
			continue
		}
		markers = append(markers, marker)
	}
	return summaries(markers), nil
}

// ListForGroup concatenates the pair listings of every raid associated with the group.
func (r *MarkerRepository) ListForGroup(ctx context.Context, groupID string) ([]MarkerSummary, error) {
	raidIDs, err := r.assoc.RaidIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := []MarkerSummary{}
	for _, raidID := range raidIDs {
		items, err := r.ListForPair(ctx, groupID, raidID)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (r *MarkerRepository) pairMarkerIDs(ctx context.Context, groupID, raidID string) ([]string, error) {
	var ids []string
	if _, err := kv.GetJSON(ctx, r.kv, pairMarkerIDsKey(groupID, raidID), &ids); err != nil {
		return nil, fmt.Errorf("load marker ids for %s/%s: %w", groupID, raidID, err)
	}
	return ids, nil
}

func (r *MarkerRepository) setLatestVersion(ctx context.Context, groupID, raidID string, version int) error {
	if err := r.kv.Put(ctx, pairLatestVersionKey(groupID, raidID), strconv.Itoa(version)); err != nil {
		return fmt.Errorf("save latest version: %w", err)
	}
	return nil
}

func summaries(markers []Marker) []MarkerSummary {
	out := make([]MarkerSummary, 0, len(markers))
	for _, marker := range markers {
		out = append(out, marker.Summary())
	}
	return out
}
