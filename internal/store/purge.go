package store

import (
	"context"
	"fmt"

	"markershare/internal/kv"
)

// PurgePair deletes every marker of the pair plus its id list and version
// counter. Calling it on a pair with no data is a no-op.
func PurgePair(ctx context.Context, s kv.Store, groupID, raidID string) error {
	var markerIDs []string
	if _, err := kv.GetJSON(ctx, s, pairMarkerIDsKey(groupID, raidID), &markerIDs); err != nil {
		return fmt.Errorf("load marker ids for %s/%s: %w", groupID, raidID, err)
	}
	for _, id := range markerIDs {
		if err := s.Delete(ctx, markerKey(id)); err != nil {
			return err
		}
	}
	if err := s.Delete(ctx, pairMarkerIDsKey(groupID, raidID)); err != nil {
		return err
	}
	return s.Delete(ctx, pairLatestVersionKey(groupID, raidID))
}
