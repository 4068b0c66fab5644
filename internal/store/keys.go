package store

// Persisted key layout:
//
//	groups                        JSON []Entity
//	raids                         JSON []Entity
//	group:{id}:raidIds            JSON []string, raids that have markers for the group
//	pair:{g}:{r}:markerIds        JSON []string, newest first
//	pair:{g}:{r}:latestVersion    decimal integer
//	marker:{id}                   JSON Marker
const (
	groupsKey    = "groups"
	raidsKey     = "raids"
	markerPrefix = "marker:"
)

func groupRaidIDsKey(groupID string) string {
	return "group:" + groupID + ":raidIds"
}

func pairMarkerIDsKey(groupID, raidID string) string {
	return "pair:" + groupID + ":" + raidID + ":markerIds"
}

func pairLatestVersionKey(groupID, raidID string) string {
	return "pair:" + groupID + ":" + raidID + ":latestVersion"
}

func markerKey(markerID string) string {
	return markerPrefix + markerID
}
