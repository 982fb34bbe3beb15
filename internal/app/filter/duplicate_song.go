package filter

import (
	"context"
	"regexp"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/song"
)

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\((official\s+)?(music\s+)?(video|audio)\)`), // "(Official Video)"
		regexp.MustCompile(`\s*\[(official\s+)?(music\s+)?(video|audio)\]`), // "[Official Audio]"
		regexp.MustCompile(`\s*\(.*?version\)`),                             // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),                                // "(Radio Edit)"
		regexp.MustCompile(`\s*\(live\)`),                                   // "(Live)"
		regexp.MustCompile(`\s*-\s*live$`),                                  // "- Live"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),                          // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`),                      // "- Single Version"
	}
	spaces = regexp.MustCompile(`\s+`)
)

// DuplicateSongFilter rejects songs that are already queued.
// Detects:
// - Exact song ID matches
// - Remasters and re-uploads (normalized title + same artist)
// Excludes:
// - Cover songs (same title but different artist)
type DuplicateSongFilter struct {
	queue   QueueReader
	catalog Catalog
}

// NewDuplicateSongFilter creates a new duplicate song filter.
func NewDuplicateSongFilter(queue QueueReader, catalog Catalog) *DuplicateSongFilter {
	return &DuplicateSongFilter{
		queue:   queue,
		catalog: catalog,
	}
}

// Name returns the filter name.
func (f *DuplicateSongFilter) Name() string {
	return "duplicate_song_filter"
}

// Description returns the filter description.
func (f *DuplicateSongFilter) Description() string {
	return "Rejects songs already in the queue, remasters included. Covers by other artists are allowed"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateSongFilter) ReturnCodes() []string {
	return []string{"duplicate_song"}
}

// AppliesTo returns which origins this filter applies to.
func (f *DuplicateSongFilter) AppliesTo(origin Origin) bool {
	// Playlists may repeat songs on purpose
	return origin == OriginUser
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateSongFilter) ValidateConfig(map[string]any) error {
	return nil
}

// Check checks if the song is a duplicate.
func (f *DuplicateSongFilter) Check(ctx context.Context, req Request, requested song.Metadata) Result {
	if f.queue.Contains(req.SongID) {
		return Reject("duplicate_song")
	}
	if f.catalog == nil || requested.Title == "" {
		return Accept()
	}

	for _, id := range f.queue.SongIDs() {
		queued, err := f.catalog.Metadata(ctx, id)
		if err != nil {
			zlog.Debug().Err(err).Msgf("No metadata for queued song %s", id)
			continue
		}
		if isRemaster(queued, requested) {
			return Reject("duplicate_song")
		}
	}
	return Accept()
}

// isRemaster checks if two songs are the same recording in another version.
// Returns true if:
// - Normalized titles match
// - Main artist is the same
func isRemaster(a, b song.Metadata) bool {
	if normalizeTitle(a.Title) != normalizeTitle(b.Title) {
		return false
	}
	// Same normalized title by a different artist is a cover
	return isSameArtist(a, b)
}

// normalizeTitle removes remaster information and version details.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")
	return strings.TrimRight(normalized, " -")
}

// isSameArtist checks if two songs have the same main artist.
func isSameArtist(a, b song.Metadata) bool {
	artistA, artistB := mainArtist(a), mainArtist(b)
	if artistA == "" || artistB == "" {
		return false
	}
	return strings.EqualFold(artistA, artistB)
}

func mainArtist(m song.Metadata) string {
	if len(m.Artists) > 0 {
		return strings.TrimSpace(m.Artists[0])
	}
	return strings.TrimSuffix(strings.TrimSpace(m.Channel), " - Topic")
}

func init() {
	Register("duplicate_song_filter", func(d Deps) Filter {
		return NewDuplicateSongFilter(d.Queue, d.Catalog)
	})
}
