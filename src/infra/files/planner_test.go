package files

import (
	"strings"
	"testing"

	"github.com/nvall/sitevault/src/places"
)

func snapshot() places.LocationSnapshot {
	return places.LocationSnapshot{
		ID:        "a1b2c3",
		Name:      "Old Mill Complex",
		ShortName: "Old Mill",
		Region:    "Hudson Valley",
		Type:      "Industrial",
	}
}

func TestPlanPath(t *testing.T) {
	planner := NewArchivePlanner()
	hash := strings.Repeat("ab", 32)

	got := planner.PlanPath(snapshot(), places.MediaImage, hash, ".JPG")
	want := "locations/hudson-valley-industrial/old-mill-a1b2c3/photos/" + hash + ".jpg"
	if got != want {
		t.Errorf("PlanPath = %q, want %q", got, want)
	}
}

func TestPlanPath_Buckets(t *testing.T) {
	planner := NewArchivePlanner()
	hash := strings.Repeat("00", 32)

	cases := []struct {
		mediaType places.MediaType
		bucket    string
	}{
		{places.MediaImage, "photos"},
		{places.MediaVideo, "videos"},
		{places.MediaAudio, "audio"},
		{places.MediaMap, "maps"},
		{places.MediaDocument, "documents"},
	}
	for _, tc := range cases {
		got := planner.PlanPath(snapshot(), tc.mediaType, hash, ".bin")
		if !strings.Contains(got, "/"+tc.bucket+"/") {
			t.Errorf("%s: path %q missing bucket %q", tc.mediaType, got, tc.bucket)
		}
	}
}

func TestPlanPath_IsStable(t *testing.T) {
	planner := NewArchivePlanner()
	hash := strings.Repeat("cd", 32)
	first := planner.PlanPath(snapshot(), places.MediaVideo, hash, ".mp4")
	second := planner.PlanPath(snapshot(), places.MediaVideo, hash, ".mp4")
	if first != second {
		t.Errorf("planner is not stable: %q vs %q", first, second)
	}
}

func TestPlanPath_TransliteratesAndTruncates(t *testing.T) {
	planner := NewArchivePlanner()
	s := snapshot()
	s.ShortName = "Ancien Moulin à Eau de la Rivière Noire"
	s.Region = "Île-de-France"

	got := planner.PlanPath(s, places.MediaImage, strings.Repeat("ef", 32), ".jpg")
	if strings.ContainsAny(got, "àèîÎÉ ") {
		t.Errorf("path not transliterated: %q", got)
	}
	segments := strings.Split(got, "/")
	folder := segments[2]
	shortPart := strings.TrimSuffix(folder, "-a1b2c3")
	if len(shortPart) > 24 {
		t.Errorf("short name not truncated: %q (%d runes)", shortPart, len(shortPart))
	}
	if !strings.HasPrefix(segments[1], "ile-de-france-") {
		t.Errorf("unexpected region slug: %q", segments[1])
	}
}

func TestPlanPath_EmptyShortNameFallsBackToName(t *testing.T) {
	planner := NewArchivePlanner()
	s := snapshot()
	s.ShortName = ""
	got := planner.PlanPath(s, places.MediaImage, strings.Repeat("01", 32), ".jpg")
	if !strings.Contains(got, "/old-mill-complex-a1b2c3/") {
		t.Errorf("expected name fallback in path, got %q", got)
	}
}
