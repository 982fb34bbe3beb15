// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	playerv1 "github.com/osa030/queuebox/internal/api/playerv1"
	"github.com/osa030/queuebox/internal/api/playerv1/playerv1connect"
	"github.com/osa030/queuebox/internal/app/coordinator"
	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/domain/playlist"
	"github.com/osa030/queuebox/internal/domain/song"
	"github.com/osa030/queuebox/internal/infra/config"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	coord    *coordinator.Coordinator
	notifier *notification.Manager
	config   *config.Config
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(coord *coordinator.Coordinator, notifier *notification.Manager, cfg *config.Config) *PlayerService {
	return &PlayerService{
		coord:    coord,
		notifier: notifier,
		config:   cfg,
	}
}

// Ensure PlayerService implements the interface.
var _ playerv1connect.PlayerServiceHandler = (*PlayerService)(nil)

func empty() *connect.Response[playerv1.Empty] {
	return connect.NewResponse(&playerv1.Empty{})
}

// Enqueue handles song submissions. Refused songs are reported in the response.
func (s *PlayerService) Enqueue(
	ctx context.Context,
	req *connect.Request[playerv1.EnqueueRequest],
) (*connect.Response[playerv1.EnqueueResponse], error) {
	parent, err := parsePath(req.Msg.Parent)
	if err != nil {
		return nil, err
	}
	node, err := toNode(req.Msg.Node)
	if err != nil {
		return nil, toConnectError(err)
	}

	result, err := s.coord.Enqueue(ctx, coordinator.EnqueueRequest{
		Parent: parent,
		Index:  indexOrAppend(req.Msg.Index),
		Node:   node,
		Origin: filter.OriginUser,
	})
	if err != nil {
		if _, ok := coordinator.IsRejected(err); !ok {
			return nil, toConnectError(err)
		}
	}
	return connect.NewResponse(s.enqueueResponse(result)), nil
}

// Move relocates a queue node.
func (s *PlayerService) Move(
	ctx context.Context,
	req *connect.Request[playerv1.MoveRequest],
) (*connect.Response[playerv1.Empty], error) {
	from, err := parsePath(req.Msg.From)
	if err != nil {
		return nil, err
	}
	toParent, err := parsePath(req.Msg.ToParent)
	if err != nil {
		return nil, err
	}
	if err := s.coord.Move(ctx, from, toParent, int(req.Msg.ToIndex)); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// Remove detaches a queue node and returns it.
func (s *PlayerService) Remove(
	ctx context.Context,
	req *connect.Request[playerv1.RemoveRequest],
) (*connect.Response[playerv1.RemoveResponse], error) {
	path, err := parsePath(req.Msg.Path)
	if err != nil {
		return nil, err
	}
	removed, err := s.coord.Remove(ctx, path)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.RemoveResponse{Removed: fromNode(removed)}), nil
}

// PlayNow jumps to a queue node.
func (s *PlayerService) PlayNow(
	ctx context.Context,
	req *connect.Request[playerv1.PlayNowRequest],
) (*connect.Response[playerv1.Empty], error) {
	path, err := parsePath(req.Msg.Path)
	if err != nil {
		return nil, err
	}
	if err := s.coord.PlayNow(ctx, path); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// Pause pauses playback.
func (s *PlayerService) Pause(ctx context.Context, _ *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	if err := s.coord.Pause(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// Resume continues playback.
func (s *PlayerService) Resume(ctx context.Context, _ *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	if err := s.coord.Resume(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// Seek moves within the playing song.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[playerv1.SeekRequest],
) (*connect.Response[playerv1.Empty], error) {
	if req.Msg.PositionMs < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("position must not be negative"))
	}
	if err := s.coord.Seek(ctx, time.Duration(req.Msg.PositionMs)*time.Millisecond); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// SkipNext plays the next song.
func (s *PlayerService) SkipNext(ctx context.Context, _ *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	if err := s.coord.SkipNext(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// SkipPrevious plays the previous song.
func (s *PlayerService) SkipPrevious(ctx context.Context, _ *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	if err := s.coord.SkipPrevious(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// Stop stops playback and keeps the cursor.
func (s *PlayerService) Stop(ctx context.Context, _ *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	if err := s.coord.Stop(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// SetVolume sets the output volume and returns the applied value.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[playerv1.SetVolumeRequest],
) (*connect.Response[playerv1.SetVolumeResponse], error) {
	v, err := s.coord.SetVolume(ctx, req.Msg.Volume)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.SetVolumeResponse{Volume: v}), nil
}

// SavePlaylist saves a queue node as a playlist.
func (s *PlayerService) SavePlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.SavePlaylistRequest],
) (*connect.Response[playerv1.Playlist], error) {
	path, err := parsePath(req.Msg.Path)
	if err != nil {
		return nil, err
	}
	p, err := s.coord.SavePlaylist(ctx, req.Msg.Name, path)
	if err != nil {
		return nil, toConnectError(err)
	}
	msg := fromPlaylist(p, true)
	return connect.NewResponse(&msg), nil
}

// LoadPlaylist inserts a saved playlist into the queue.
func (s *PlayerService) LoadPlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.LoadPlaylistRequest],
) (*connect.Response[playerv1.EnqueueResponse], error) {
	id, err := parsePlaylistID(req.Msg.ID)
	if err != nil {
		return nil, err
	}
	parent, err := parsePath(req.Msg.Parent)
	if err != nil {
		return nil, err
	}
	result, err := s.coord.LoadPlaylist(ctx, id, parent, indexOrAppend(req.Msg.Index))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(s.enqueueResponse(result)), nil
}

// ListPlaylists lists saved playlists without their contents.
func (s *PlayerService) ListPlaylists(
	ctx context.Context,
	_ *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.ListPlaylistsResponse], error) {
	playlists, err := s.coord.ListPlaylists(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.ListPlaylistsResponse{
		Playlists: lo.Map(playlists, func(p *playlist.Playlist, _ int) playerv1.Playlist {
			return fromPlaylist(p, false)
		}),
	}), nil
}

// DeletePlaylist deletes a saved playlist.
func (s *PlayerService) DeletePlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.DeletePlaylistRequest],
) (*connect.Response[playerv1.Empty], error) {
	id, err := parsePlaylistID(req.Msg.ID)
	if err != nil {
		return nil, err
	}
	if err := s.coord.DeletePlaylist(ctx, id); err != nil {
		return nil, toConnectError(err)
	}
	return empty(), nil
}

// ClearCache drops every cached song that is not in use.
func (s *PlayerService) ClearCache(
	ctx context.Context,
	_ *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.ClearCacheResponse], error) {
	removed, err := s.coord.ClearCache(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.ClearCacheResponse{Removed: int32(removed)}), nil
}

// GetQueue returns the queue tree.
func (s *PlayerService) GetQueue(
	ctx context.Context,
	_ *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.GetQueueResponse], error) {
	snap, err := s.coord.Snapshot(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.GetQueueResponse{
		Root:    fromNode(snap.Root),
		Cursor:  pathString(snap.Cursor),
		Playing: snap.Playing.String(),
		Drifted: snap.Drifted,
	}), nil
}

// GetStatus returns the playback status.
func (s *PlayerService) GetStatus(
	ctx context.Context,
	_ *connect.Request[playerv1.Empty],
) (*connect.Response[playerv1.GetStatusResponse], error) {
	st, err := s.coord.Status(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(fromStatus(st)), nil
}

// GetSong returns catalog metadata of a song.
func (s *PlayerService) GetSong(
	ctx context.Context,
	req *connect.Request[playerv1.GetSongRequest],
) (*connect.Response[playerv1.Song], error) {
	id := song.ID(req.Msg.SongID)
	if id.IsZero() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("song id is required"))
	}
	m, err := s.coord.SongInfo(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(fromMetadata(m)), nil
}

// Subscribe streams notifications, starting with the current state.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	_ *connect.Request[playerv1.SubscribeRequest],
	stream *connect.ServerStream[playerv1.Notification],
) error {
	st, err := s.coord.Status(ctx)
	if err != nil {
		return toConnectError(err)
	}

	initial := &notification.Notification{
		SequenceNo: s.notifier.NextSequenceNo(),
		Type:       notification.TypeInitialState,
		At:         time.Now(),
		SongID:     st.Playback.SongID,
		State:      st.Playback.State.String(),
		Position:   st.Playback.Position,
		Duration:   st.Playback.Duration,
	}
	if err := stream.Send(fromNotification(initial)); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notifier.Subscribe(adapter)
	zlog.Debug().Msgf("subscriber %s joined", subscriptionID)

	// Wait for the client to leave or the coordinator to stop
	select {
	case <-ctx.Done():
	case <-s.coord.Done():
	}

	s.notifier.Unsubscribe(subscriptionID)
	adapter.close()
	zlog.Debug().Msgf("subscriber %s left", subscriptionID)
	return nil
}

func parsePlaylistID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, errors.Wrapf(err, "invalid playlist id %q", s))
	}
	return id, nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// The stream must not be used once the handler has returned, so close waits
// for an in-flight send and turns later ones into no-ops.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[playerv1.Notification]
	closed bool
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	return a.stream.Send(fromNotification(n))
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
