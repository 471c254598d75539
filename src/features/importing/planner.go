package importing

import "github.com/nvall/sitevault/src/places"

// PathPlanner maps (location snapshot, media type, content hash) to an
// archive-relative destination path. It must be a pure function and stable
// across versions: the same hash always yields the same destination, which
// doubles as a cheap duplicate signal and the idempotence check on resume.
type PathPlanner interface {
	PlanPath(snapshot places.LocationSnapshot, mediaType places.MediaType, hash, ext string) string
}
