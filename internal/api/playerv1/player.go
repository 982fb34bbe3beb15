package playerv1

import (
	"time"

	"github.com/osa030/queuebox/internal/domain/queue"
)

// Node is a queue node on the wire. It is the record form playlists and the
// saved state use, so a node read from disk and one read over the API match.
type Node = queue.Record

// Empty is the request or response of calls that carry no data.
type Empty struct{}

type EnqueueRequest struct {
	Parent string `json:"parent"`          // Group path, "/" or empty for the root
	Index  *int32 `json:"index,omitempty"` // Appends when unset
	Node   *Node  `json:"node"`
}

type Rejection struct {
	SongID  string `json:"song_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type EnqueueResponse struct {
	Path     string      `json:"path,omitempty"`
	Added    int32       `json:"added"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

type MoveRequest struct {
	From     string `json:"from"`
	ToParent string `json:"to_parent"`
	ToIndex  int32  `json:"to_index"`
}

type RemoveRequest struct {
	Path string `json:"path"`
}

type RemoveResponse struct {
	Removed *Node `json:"removed"`
}

type PlayNowRequest struct {
	Path string `json:"path"` // Empty plays the current song
}

type SeekRequest struct {
	PositionMs int64 `json:"position_ms"`
}

type SetVolumeRequest struct {
	Volume float64 `json:"volume"`
}

type SetVolumeResponse struct {
	Volume float64 `json:"volume"`
}

type ClearCacheResponse struct {
	Removed int32 `json:"removed"`
}

type Playlist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SongCount  int32     `json:"song_count"`
	DurationMs int64     `json:"duration_ms"`
	SavedAt    time.Time `json:"saved_at"`
	Root       *Node     `json:"root,omitempty"`
}

type SavePlaylistRequest struct {
	Name string `json:"name"`
	Path string `json:"path"` // Node to save, the whole queue when empty
}

type LoadPlaylistRequest struct {
	ID     string `json:"id"`
	Parent string `json:"parent"`
	Index  *int32 `json:"index,omitempty"`
}

type ListPlaylistsResponse struct {
	Playlists []Playlist `json:"playlists"`
}

type DeletePlaylistRequest struct {
	ID string `json:"id"`
}

type GetQueueResponse struct {
	Root    *Node  `json:"root"`
	Cursor  string `json:"cursor,omitempty"` // Empty when nothing is current
	Playing string `json:"playing,omitempty"`
	Drifted bool   `json:"drifted"`
}

type GetStatusResponse struct {
	State        string  `json:"state"`
	SongID       string  `json:"song_id,omitempty"`
	PositionMs   int64   `json:"position_ms"`
	DurationMs   int64   `json:"duration_ms"`
	Volume       float64 `json:"volume"`
	Seekable     bool    `json:"seekable"`
	Current      string  `json:"current,omitempty"`
	Cursor       string  `json:"cursor,omitempty"`
	Next         string  `json:"next,omitempty"`
	Drifted      bool    `json:"drifted"`
	QueueLength  int32   `json:"queue_length"`
	CacheEntries int32   `json:"cache_entries"`
	CacheBytes   int64   `json:"cache_bytes"`
}

type GetSongRequest struct {
	SongID string `json:"song_id"`
}

type Song struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists,omitempty"`
	Channel    string   `json:"channel,omitempty"`
	Album      string   `json:"album,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	URL        string   `json:"url,omitempty"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type SubscribeRequest struct{}

type Notification struct {
	SequenceNo uint64    `json:"sequence_no"`
	Type       string    `json:"type"`
	At         time.Time `json:"at"`
	SongID     string    `json:"song_id,omitempty"`
	State      string    `json:"state,omitempty"`
	PositionMs int64     `json:"position_ms,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Message    string    `json:"message,omitempty"`
}
