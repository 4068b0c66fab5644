package store

import (
	"context"
	"fmt"
	"strings"

	"markershare/internal/kv"
)

// EntityRepository stores one kind of entity as a single JSON array under
// the kind's collection key.
type EntityRepository struct {
	kv    kv.Store
	kind  Kind
	assoc *Associations
}

func NewGroupRepository(s kv.Store) *EntityRepository {
	return &EntityRepository{kv: s, kind: GroupKind, assoc: NewAssociations(s)}
}

func NewRaidRepository(s kv.Store) *EntityRepository {
	return &EntityRepository{kv: s, kind: RaidKind, assoc: NewAssociations(s)}
}

func (r *EntityRepository) Kind() Kind { return r.kind }

func (r *EntityRepository) List(ctx context.Context) ([]Entity, error) {
	var items []Entity
	if _, err := kv.GetJSON(ctx, r.kv, r.kind.CollectionKey, &items); err != nil {
		return nil, fmt.Errorf("load %s: %w", r.kind.CollectionKey, err)
	}
	if items == nil {
		items = []Entity{}
	}
	return items, nil
}

func (r *EntityRepository) Find(ctx context.Context, id string) (Entity, bool, error) {
	items, err := r.List(ctx)
	if err != nil {
		return Entity{}, false, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, true, nil
		}
	}
	return Entity{}, false, nil
}

// Create returns the existing entity when one has the same normalized name.
func (r *EntityRepository) Create(ctx context.Context, name string) (Entity, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entity{}, false, ErrNameRequired
	}
	items, err := r.List(ctx)
	if err != nil {
		return Entity{}, false, err
	}

	normalized := NormalizeName(name)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if NormalizeName(item.Name) == normalized {
			return item, false, nil
		}
		ids = append(ids, item.ID)
	}

	entity := Entity{ID: generateEntityID(r.kind.IDPrefix, name, ids), Name: name}
	if err := kv.PutJSON(ctx, r.kv, r.kind.CollectionKey, append(items, entity)); err != nil {
		return Entity{}, false, fmt.Errorf("save %s: %w", r.kind.CollectionKey, err)
	}
	return entity, true, nil
}

// Delete removes the entity and purges the marker data hanging off it.
func (r *EntityRepository) Delete(ctx context.Context, id string) error {
	items, err := r.List(ctx)
	if err != nil {
		return err
	}
	remaining := make([]Entity, 0, len(items))
	found := false
	for _, item := range items {
		if item.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !found {
		return r.notFound()
	}

	switch r.kind {
	case GroupKind:
		err = r.cascadeGroup(ctx, id, remaining)
	case RaidKind:
		err = r.cascadeRaid(ctx, id, remaining)
	default:
		err = kv.PutJSON(ctx, r.kv, r.kind.CollectionKey, remaining)
	}
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", r.kind.Name, id, err)
	}
	return nil
}

func (r *EntityRepository) cascadeGroup(ctx context.Context, groupID string, remaining []Entity) error {
	raidIDs, err := r.assoc.RaidIDs(ctx, groupID)
	if err != nil {
		return err
	}
	for _, raidID := range raidIDs {
		if err := PurgePair(ctx, r.kv, groupID, raidID); err != nil {
			return err
		}
	}
	if err := kv.PutJSON(ctx, r.kv, r.kind.CollectionKey, remaining); err != nil {
		return err
	}
	return r.assoc.Drop(ctx, groupID)
}

func (r *EntityRepository) cascadeRaid(ctx context.Context, raidID string, remaining []Entity) error {
	var groups []Entity
	if _, err := kv.GetJSON(ctx, r.kv, groupsKey, &groups); err != nil {
		return err
	}
	for _, group := range groups {
		raidIDs, err := r.assoc.RaidIDs(ctx, group.ID)
		if err != nil {
			return err
		}
		if !contains(raidIDs, raidID) {
			continue
		}
		if err := PurgePair(ctx, r.kv, group.ID, raidID); err != nil {
			return err
		}
		if _, err := r.assoc.Remove(ctx, group.ID, raidID); err != nil {
			return err
		}
	}
	return kv.PutJSON(ctx, r.kv, r.kind.CollectionKey, remaining)
}

func (r *EntityRepository) notFound() error {
	if r.kind == RaidKind {
		return ErrRaidNotFound
	}
	return ErrGroupNotFound
}
