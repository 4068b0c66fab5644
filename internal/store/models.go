package store

import "time"

// Entity is a named group or raid. IDs are slugs prefixed with the kind tag.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Kind separates the group and raid namespaces.
type Kind struct {
	Name          string
	CollectionKey string
	IDPrefix      string
}

var (
	GroupKind = Kind{Name: "group", CollectionKey: groupsKey, IDPrefix: "grp"}
	RaidKind  = Kind{Name: "raid", CollectionKey: raidsKey, IDPrefix: "raid"}
)

// Marker is immutable once written.
type Marker struct {
	ID           string    `json:"id"`
	GroupID      string    `json:"groupId"`
	RaidID       string    `json:"raidId"`
	Version      int       `json:"version"`
	Type         string    `json:"type,omitempty"`
	MarkerString string    `json:"markerString"`
	CreatedAt    time.Time `json:"createdAt"`
	CreatedBy    string    `json:"createdBy"`
}

// MarkerSummary is a Marker without its payload.
type MarkerSummary struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName,omitempty"`
	RaidID    string    `json:"raidId"`
	RaidName  string    `json:"raidName,omitempty"`
	Version   int       `json:"version"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

func (m Marker) Summary() MarkerSummary {
	return MarkerSummary{
		ID:        m.ID,
		GroupID:   m.GroupID,
		RaidID:    m.RaidID,
		Version:   m.Version,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
		CreatedBy: m.CreatedBy,
	}
}

type NewMarker struct {
	GroupID      string
	RaidID       string
	MarkerString string
	Type         string
}
