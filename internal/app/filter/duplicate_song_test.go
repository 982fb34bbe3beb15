package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/queuebox/internal/domain/song"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Yesterday", expected: "yesterday"},
		{name: "year remaster suffix", input: "Come Together - 2019 Remaster", expected: "come together"},
		{name: "parenthesized remaster", input: "Let It Be (Remastered 2009)", expected: "let it be"},
		{name: "bracketed remaster", input: "Help! [Remastered]", expected: "help!"},
		{name: "official video", input: "Bad Guy (Official Music Video)", expected: "bad guy"},
		{name: "radio edit", input: "Levels (Radio Edit)", expected: "levels"},
		{name: "live suffix", input: "Hey Jude - Live", expected: "hey jude"},
		{name: "extra spaces", input: "  Hey   Jude  ", expected: "hey jude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTitle(tt.input))
		})
	}
}

func TestDuplicateSongFilter_Check(t *testing.T) {
	queue := &fakeQueue{songs: []song.Metadata{
		{ID: "abc", Title: "Come Together", Artists: []string{"The Beatles"}},
		{ID: "def", Title: "Bad Guy", Channel: "Billie Eilish - Topic"},
	}}
	f := NewDuplicateSongFilter(queue, queue)

	tests := []struct {
		name     string
		req      song.Metadata
		accepted bool
	}{
		{name: "same id", req: song.Metadata{ID: "abc", Title: "Something else"}, accepted: false},
		{name: "remaster by same artist", req: song.Metadata{ID: "xyz", Title: "Come Together - 2019 Remaster", Artists: []string{"the beatles"}}, accepted: false},
		{name: "channel upload", req: song.Metadata{ID: "xyz", Title: "Bad Guy (Official Audio)", Channel: "Billie Eilish"}, accepted: false},
		{name: "cover by other artist", req: song.Metadata{ID: "xyz", Title: "Come Together", Artists: []string{"Aerosmith"}}, accepted: true},
		{name: "unknown artist", req: song.Metadata{ID: "xyz", Title: "Come Together"}, accepted: true},
		{name: "different title", req: song.Metadata{ID: "xyz", Title: "Something", Artists: []string{"The Beatles"}}, accepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Check(context.Background(), Request{SongID: tt.req.ID, Origin: OriginUser}, tt.req)
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "duplicate_song", result.Code)
			}
		})
	}
}

func TestDuplicateSongFilter_WithoutCatalog(t *testing.T) {
	queue := &fakeQueue{songs: []song.Metadata{{ID: "abc", Title: "Come Together", Artists: []string{"The Beatles"}}}}
	f := NewDuplicateSongFilter(queue, nil)

	req := song.Metadata{ID: "xyz", Title: "Come Together - 2019 Remaster", Artists: []string{"The Beatles"}}
	assert.True(t, f.Check(context.Background(), Request{SongID: req.ID}, req).Accepted)
	assert.False(t, f.Check(context.Background(), Request{SongID: "abc"}, song.Metadata{ID: "abc"}).Accepted)
}

func TestDuplicateSongFilter_AppliesTo(t *testing.T) {
	f := NewDuplicateSongFilter(&fakeQueue{}, nil)
	assert.True(t, f.AppliesTo(OriginUser))
	assert.False(t, f.AppliesTo(OriginPlaylist))
}
