package results

import (
	"fmt"
	"math"
	"strconv"

	"github.com/RyanBlaney/phrasebound/segmentation"
)

// SongFeatures is the per-song payload of the results document. The bpm and
// key fields stay empty strings unless annotations were computed.
type SongFeatures struct {
	BPM                   string   `json:"bpm"`
	Key                   string   `json:"key"`
	Scale                 string   `json:"scale"`
	KeyStrength           string   `json:"key_strength"`
	FirstPhraseBoundaries []string `json:"first_phrase_boundaries"`
	LastPhraseBoundaries  []string `json:"last_phrase_boundaries"`
	BoundarySource        string   `json:"boundary_source"`
}

// SongEntry is one element of the document's songs array
type SongEntry struct {
	SongName string       `json:"Song_name"`
	Features SongFeatures `json:"features"`
}

// FormatTimestamp renders seconds as "MM:SS.s". Rounding to tenths happens
// before minutes are split off, so 59.96 becomes "01:00.0".
func FormatTimestamp(seconds float64) string {
	tenths := int(math.Round(math.Max(seconds, 0) * 10))
	minutes := tenths / 600
	rem := float64(tenths%600) / 10
	return fmt.Sprintf("%02d:%04.1f", minutes, rem)
}

func formatBoundaries(boundaries []segmentation.PhraseBoundary) []string {
	out := make([]string, len(boundaries))
	for i, b := range boundaries {
		out[i] = FormatTimestamp(b.Time)
	}
	return out
}

// NewSongEntry converts an analysis result into a document entry with up to
// maxBoundaries entry and exit timestamps
func NewSongEntry(res *segmentation.Result, maxBoundaries int) SongEntry {
	features := SongFeatures{
		FirstPhraseBoundaries: formatBoundaries(res.Boundaries.Entry(maxBoundaries)),
		LastPhraseBoundaries:  formatBoundaries(res.Boundaries.Exit(maxBoundaries)),
		BoundarySource:        res.Boundaries.Source,
	}

	if ann := res.Annotations; ann != nil {
		if ann.BPM > 0 {
			features.BPM = strconv.FormatFloat(ann.BPM, 'f', 2, 64)
		}
		features.Key = ann.Key
		features.Scale = ann.Scale
		if ann.Key != "" {
			features.KeyStrength = strconv.FormatFloat(ann.KeyStrength, 'f', 4, 64)
		}
	}

	return SongEntry{SongName: res.SongID, Features: features}
}
