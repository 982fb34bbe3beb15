package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	playerv1 "github.com/osa030/queuebox/internal/api/playerv1"
	"github.com/osa030/queuebox/internal/app/coordinator"
	"github.com/osa030/queuebox/internal/app/fetch"
	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/domain/playlist"
	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

// toNode converts a wire node into a queue node.
func toNode(n *playerv1.Node) (*queue.Node, error) {
	if n == nil {
		return nil, errors.Wrap(queue.ErrInvalidNode, "node is required")
	}
	return queue.FromRecord(*n)
}

// fromNode converts a queue node into its wire form.
func fromNode(n *queue.Node) *playerv1.Node {
	if n == nil {
		return nil
	}
	r := n.ToRecord()
	return &r
}

func parsePath(s string) (queue.Path, error) {
	p, err := queue.ParsePath(s)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return p, nil
}

// pathString renders a path, empty when there is none.
func pathString(p queue.Path) string {
	if p == nil {
		return ""
	}
	return p.String()
}

func indexOrAppend(index *int32) int {
	if index == nil {
		return coordinator.AppendIndex
	}
	return int(*index)
}

func (s *PlayerService) enqueueResponse(result coordinator.EnqueueResult) *playerv1.EnqueueResponse {
	return &playerv1.EnqueueResponse{
		Path:  pathString(result.Path),
		Added: int32(result.Added),
		Rejected: lo.Map(result.Rejected, func(r coordinator.RejectedError, _ int) playerv1.Rejection {
			return playerv1.Rejection{
				SongID:  r.SongID.String(),
				Code:    r.Code,
				Message: s.config.GetMessage(r.Code),
			}
		}),
	}
}

func fromPlaylist(p *playlist.Playlist, withRoot bool) playerv1.Playlist {
	msg := playerv1.Playlist{
		ID:         p.ID.String(),
		Name:       p.Name,
		SongCount:  int32(p.Len()),
		DurationMs: p.TotalDuration().Milliseconds(),
		SavedAt:    p.SavedAt,
	}
	if withRoot {
		msg.Root = fromNode(p.Root)
	}
	return msg
}

func fromMetadata(m song.Metadata) *playerv1.Song {
	return &playerv1.Song{
		ID:         m.ID.String(),
		Title:      m.Title,
		Artists:    m.Artists,
		Channel:    m.Channel,
		Album:      m.Album,
		DurationMs: m.Duration.Milliseconds(),
		URL:        m.URL,
		Thumbnail:  m.Thumbnail,
		Tags:       m.Tags,
	}
}

func fromStatus(st coordinator.Status) *playerv1.GetStatusResponse {
	return &playerv1.GetStatusResponse{
		State:        st.Playback.State.String(),
		SongID:       st.Playback.SongID.String(),
		PositionMs:   st.Playback.Position.Milliseconds(),
		DurationMs:   st.Playback.Duration.Milliseconds(),
		Volume:       st.Playback.Volume,
		Seekable:     st.Playback.Seekable,
		Current:      st.Current.String(),
		Cursor:       pathString(st.Cursor),
		Next:         st.Next.String(),
		Drifted:      st.Drifted,
		QueueLength:  int32(st.Length),
		CacheEntries: int32(st.Cache.Entries),
		CacheBytes:   st.Cache.Bytes,
	}
}

func fromNotification(n *notification.Notification) *playerv1.Notification {
	return &playerv1.Notification{
		SequenceNo: n.SequenceNo,
		Type:       n.Type.String(),
		At:         n.At,
		SongID:     n.SongID.String(),
		State:      n.State,
		PositionMs: n.Position.Milliseconds(),
		DurationMs: n.Duration.Milliseconds(),
		Message:    n.Message,
	}
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, context.Canceled), fetch.IsKind(err, fetch.KindCancelled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case queue.IsStructural(err), errors.IsAny(err, queue.ErrInvalidRecord, playlist.ErrEmptyName):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case coordinator.IsNotFound(err), fetch.IsKind(err, fetch.KindNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.IsAny(err,
		playback.ErrInvalidTransition,
		playback.ErrSeekUnavailable,
		coordinator.ErrNothingToPlay,
		coordinator.ErrAtStart):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.IsAny(err,
		coordinator.ErrNotRunning,
		coordinator.ErrNoPlaylistStore,
		playback.ErrNoAudioDevice),
		fetch.IsKind(err, fetch.KindNetwork):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
