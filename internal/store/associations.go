package store

import (
	"context"
	"fmt"

	"markershare/internal/kv"
)

// Associations is the group -> raid index. A raid joins a group's list the
// first time a marker is created for the pair.
type Associations struct {
	kv kv.Store
}

func NewAssociations(s kv.Store) *Associations {
	return &Associations{kv: s}
}

func (a *Associations) RaidIDs(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	if _, err := kv.GetJSON(ctx, a.kv, groupRaidIDsKey(groupID), &ids); err != nil {
		return nil, fmt.Errorf("load raid ids for %s: %w", groupID, err)
	}
	return ids, nil
}

func (a *Associations) Add(ctx context.Context, groupID, raidID string) error {
	ids, err := a.RaidIDs(ctx, groupID)
	if err != nil {
		return err
	}
	if contains(ids, raidID) {
		return nil
	}
	return kv.PutJSON(ctx, a.kv, groupRaidIDsKey(groupID), append(ids, raidID))
}

// Remove drops raidID from the group's list and deletes the list once empty.
// It reports whether the raid was associated.
func (a *Associations) Remove(ctx context.Context, groupID, raidID string) (bool, error) {
	ids, err := a.RaidIDs(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !contains(ids, raidID) {
		return false, nil
	}
	remaining := without(ids, raidID)
	if len(remaining) == 0 {
		return true, a.Drop(ctx, groupID)
	}
	return true, kv.PutJSON(ctx, a.kv, groupRaidIDsKey(groupID), remaining)
}

func (a *Associations) Drop(ctx context.Context, groupID string) error {
	return a.kv.Delete(ctx, groupRaidIDsKey(groupID))
}

func contains(ids []string, id string) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, item := range ids {
		if item != id {
			out = append(out, item)
		}
	}
	return out
}
