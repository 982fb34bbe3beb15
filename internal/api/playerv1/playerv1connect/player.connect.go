// Package playerv1connect holds the Connect bindings of the player API.
package playerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	playerv1 "github.com/osa030/queuebox/internal/api/playerv1"
)

// PlayerServiceName is the fully-qualified name of the PlayerService service.
const PlayerServiceName = "queuebox.player.v1.PlayerService"

// Procedure paths of PlayerService.
const (
	PlayerServiceEnqueueProcedure        = "/queuebox.player.v1.PlayerService/Enqueue"
	PlayerServiceMoveProcedure           = "/queuebox.player.v1.PlayerService/Move"
	PlayerServiceRemoveProcedure         = "/queuebox.player.v1.PlayerService/Remove"
	PlayerServicePlayNowProcedure        = "/queuebox.player.v1.PlayerService/PlayNow"
	PlayerServicePauseProcedure          = "/queuebox.player.v1.PlayerService/Pause"
	PlayerServiceResumeProcedure         = "/queuebox.player.v1.PlayerService/Resume"
	PlayerServiceSeekProcedure           = "/queuebox.player.v1.PlayerService/Seek"
	PlayerServiceSkipNextProcedure       = "/queuebox.player.v1.PlayerService/SkipNext"
	PlayerServiceSkipPreviousProcedure   = "/queuebox.player.v1.PlayerService/SkipPrevious"
	PlayerServiceStopProcedure           = "/queuebox.player.v1.PlayerService/Stop"
	PlayerServiceSetVolumeProcedure      = "/queuebox.player.v1.PlayerService/SetVolume"
	PlayerServiceSavePlaylistProcedure   = "/queuebox.player.v1.PlayerService/SavePlaylist"
	PlayerServiceLoadPlaylistProcedure   = "/queuebox.player.v1.PlayerService/LoadPlaylist"
	PlayerServiceListPlaylistsProcedure  = "/queuebox.player.v1.PlayerService/ListPlaylists"
	PlayerServiceDeletePlaylistProcedure = "/queuebox.player.v1.PlayerService/DeletePlaylist"
	PlayerServiceClearCacheProcedure     = "/queuebox.player.v1.PlayerService/ClearCache"
	PlayerServiceGetQueueProcedure       = "/queuebox.player.v1.PlayerService/GetQueue"
	PlayerServiceGetStatusProcedure      = "/queuebox.player.v1.PlayerService/GetStatus"
	PlayerServiceGetSongProcedure        = "/queuebox.player.v1.PlayerService/GetSong"
	PlayerServiceSubscribeProcedure      = "/queuebox.player.v1.PlayerService/Subscribe"
)

// PlayerServiceHandler is implemented by the player API server.
type PlayerServiceHandler interface {
	// Enqueue inserts songs into the queue.
	Enqueue(context.Context, *connect.Request[playerv1.EnqueueRequest]) (*connect.Response[playerv1.EnqueueResponse], error)
	// Move relocates a queue node.
	Move(context.Context, *connect.Request[playerv1.MoveRequest]) (*connect.Response[playerv1.Empty], error)
	// Remove detaches a queue node.
	Remove(context.Context, *connect.Request[playerv1.RemoveRequest]) (*connect.Response[playerv1.RemoveResponse], error)
	// PlayNow jumps to a queue node and plays it.
	PlayNow(context.Context, *connect.Request[playerv1.PlayNowRequest]) (*connect.Response[playerv1.Empty], error)
	// Pause pauses playback.
	Pause(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	// Resume continues playback.
	Resume(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	// Seek moves within the playing song.
	Seek(context.Context, *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.Empty], error)
	// SkipNext plays the next song.
	SkipNext(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	// SkipPrevious plays the previous song.
	SkipPrevious(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	// Stop stops playback.
	Stop(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	// SetVolume sets the output volume.
	SetVolume(context.Context, *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.SetVolumeResponse], error)
	// SavePlaylist saves a queue node as a playlist.
	SavePlaylist(context.Context, *connect.Request[playerv1.SavePlaylistRequest]) (*connect.Response[playerv1.Playlist], error)
	// LoadPlaylist inserts a saved playlist.
	LoadPlaylist(context.Context, *connect.Request[playerv1.LoadPlaylistRequest]) (*connect.Response[playerv1.EnqueueResponse], error)
	// ListPlaylists lists saved playlists.
	ListPlaylists(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.ListPlaylistsResponse], error)
	// DeletePlaylist deletes a saved playlist.
	DeletePlaylist(context.Context, *connect.Request[playerv1.DeletePlaylistRequest]) (*connect.Response[playerv1.Empty], error)
	// ClearCache drops cached audio.
	ClearCache(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.ClearCacheResponse], error)
	// GetQueue returns the queue tree.
	GetQueue(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.GetQueueResponse], error)
	// GetStatus returns the playback status.
	GetStatus(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.GetStatusResponse], error)
	// GetSong returns song metadata.
	GetSong(context.Context, *connect.Request[playerv1.GetSongRequest]) (*connect.Response[playerv1.Song], error)
	// Subscribe streams notifications.
	Subscribe(context.Context, *connect.Request[playerv1.SubscribeRequest], *connect.ServerStream[playerv1.Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(playerv1.Codec{})}, opts...)
	handlers := map[string]http.Handler{
		PlayerServiceEnqueueProcedure:        connect.NewUnaryHandler(PlayerServiceEnqueueProcedure, svc.Enqueue, opts...),
		PlayerServiceMoveProcedure:           connect.NewUnaryHandler(PlayerServiceMoveProcedure, svc.Move, opts...),
		PlayerServiceRemoveProcedure:         connect.NewUnaryHandler(PlayerServiceRemoveProcedure, svc.Remove, opts...),
		PlayerServicePlayNowProcedure:        connect.NewUnaryHandler(PlayerServicePlayNowProcedure, svc.PlayNow, opts...),
		PlayerServicePauseProcedure:          connect.NewUnaryHandler(PlayerServicePauseProcedure, svc.Pause, opts...),
		PlayerServiceResumeProcedure:         connect.NewUnaryHandler(PlayerServiceResumeProcedure, svc.Resume, opts...),
		PlayerServiceSeekProcedure:           connect.NewUnaryHandler(PlayerServiceSeekProcedure, svc.Seek, opts...),
		PlayerServiceSkipNextProcedure:       connect.NewUnaryHandler(PlayerServiceSkipNextProcedure, svc.SkipNext, opts...),
		PlayerServiceSkipPreviousProcedure:   connect.NewUnaryHandler(PlayerServiceSkipPreviousProcedure, svc.SkipPrevious, opts...),
		PlayerServiceStopProcedure:           connect.NewUnaryHandler(PlayerServiceStopProcedure, svc.Stop, opts...),
		PlayerServiceSetVolumeProcedure:      connect.NewUnaryHandler(PlayerServiceSetVolumeProcedure, svc.SetVolume, opts...),
		PlayerServiceSavePlaylistProcedure:   connect.NewUnaryHandler(PlayerServiceSavePlaylistProcedure, svc.SavePlaylist, opts...),
		PlayerServiceLoadPlaylistProcedure:   connect.NewUnaryHandler(PlayerServiceLoadPlaylistProcedure, svc.LoadPlaylist, opts...),
		PlayerServiceListPlaylistsProcedure:  connect.NewUnaryHandler(PlayerServiceListPlaylistsProcedure, svc.ListPlaylists, opts...),
		PlayerServiceDeletePlaylistProcedure: connect.NewUnaryHandler(PlayerServiceDeletePlaylistProcedure, svc.DeletePlaylist, opts...),
		PlayerServiceClearCacheProcedure:     connect.NewUnaryHandler(PlayerServiceClearCacheProcedure, svc.ClearCache, opts...),
		PlayerServiceGetQueueProcedure:       connect.NewUnaryHandler(PlayerServiceGetQueueProcedure, svc.GetQueue, opts...),
		PlayerServiceGetStatusProcedure:      connect.NewUnaryHandler(PlayerServiceGetStatusProcedure, svc.GetStatus, opts...),
		PlayerServiceGetSongProcedure:        connect.NewUnaryHandler(PlayerServiceGetSongProcedure, svc.GetSong, opts...),
		PlayerServiceSubscribeProcedure:      connect.NewServerStreamHandler(PlayerServiceSubscribeProcedure, svc.Subscribe, opts...),
	}
	return "/" + PlayerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// PlayerServiceClient is a client for the player API.
type PlayerServiceClient interface {
	Enqueue(context.Context, *connect.Request[playerv1.EnqueueRequest]) (*connect.Response[playerv1.EnqueueResponse], error)
	Move(context.Context, *connect.Request[playerv1.MoveRequest]) (*connect.Response[playerv1.Empty], error)
	Remove(context.Context, *connect.Request[playerv1.RemoveRequest]) (*connect.Response[playerv1.RemoveResponse], error)
	PlayNow(context.Context, *connect.Request[playerv1.PlayNowRequest]) (*connect.Response[playerv1.Empty], error)
	Pause(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	Resume(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	Seek(context.Context, *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.Empty], error)
	SkipNext(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	SkipPrevious(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	Stop(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error)
	SetVolume(context.Context, *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.SetVolumeResponse], error)
	SavePlaylist(context.Context, *connect.Request[playerv1.SavePlaylistRequest]) (*connect.Response[playerv1.Playlist], error)
	LoadPlaylist(context.Context, *connect.Request[playerv1.LoadPlaylistRequest]) (*connect.Response[playerv1.EnqueueResponse], error)
	ListPlaylists(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.ListPlaylistsResponse], error)
	DeletePlaylist(context.Context, *connect.Request[playerv1.DeletePlaylistRequest]) (*connect.Response[playerv1.Empty], error)
	ClearCache(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.ClearCacheResponse], error)
	GetQueue(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.GetQueueResponse], error)
	GetStatus(context.Context, *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.GetStatusResponse], error)
	GetSong(context.Context, *connect.Request[playerv1.GetSongRequest]) (*connect.Response[playerv1.Song], error)
	Subscribe(context.Context, *connect.Request[playerv1.SubscribeRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error)
}

// NewPlayerServiceClient constructs a client for the player API. baseURL is
// the server root, for example http://localhost:8080.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(playerv1.Codec{})}, opts...)
	return &playerServiceClient{
		enqueue:        connect.NewClient[playerv1.EnqueueRequest, playerv1.EnqueueResponse](httpClient, baseURL+PlayerServiceEnqueueProcedure, opts...),
		move:           connect.NewClient[playerv1.MoveRequest, playerv1.Empty](httpClient, baseURL+PlayerServiceMoveProcedure, opts...),
		remove:         connect.NewClient[playerv1.RemoveRequest, playerv1.RemoveResponse](httpClient, baseURL+PlayerServiceRemoveProcedure, opts...),
		playNow:        connect.NewClient[playerv1.PlayNowRequest, playerv1.Empty](httpClient, baseURL+PlayerServicePlayNowProcedure, opts...),
		pause:          connect.NewClient[playerv1.Empty, playerv1.Empty](httpClient, baseURL+PlayerServicePauseProcedure, opts...),
		resume:         connect.NewClient[playerv1.Empty, playerv1.Empty](httpClient, baseURL+PlayerServiceResumeProcedure, opts...),
		seek:           connect.NewClient[playerv1.SeekRequest, playerv1.Empty](httpClient, baseURL+PlayerServiceSeekProcedure, opts...),
		skipNext:       connect.NewClient[playerv1.Empty, playerv1.Empty](httpClient, baseURL+PlayerServiceSkipNextProcedure, opts...),
		skipPrevious:   connect.NewClient[playerv1.Empty, playerv1.Empty](httpClient, baseURL+PlayerServiceSkipPreviousProcedure, opts...),
		stop:           connect.NewClient[playerv1.Empty, playerv1.Empty](httpClient, baseURL+PlayerServiceStopProcedure, opts...),
		setVolume:      connect.NewClient[playerv1.SetVolumeRequest, playerv1.SetVolumeResponse](httpClient, baseURL+PlayerServiceSetVolumeProcedure, opts...),
		savePlaylist:   connect.NewClient[playerv1.SavePlaylistRequest, playerv1.Playlist](httpClient, baseURL+PlayerServiceSavePlaylistProcedure, opts...),
		loadPlaylist:   connect.NewClient[playerv1.LoadPlaylistRequest, playerv1.EnqueueResponse](httpClient, baseURL+PlayerServiceLoadPlaylistProcedure, opts...),
		listPlaylists:  connect.NewClient[playerv1.Empty, playerv1.ListPlaylistsResponse](httpClient, baseURL+PlayerServiceListPlaylistsProcedure, opts...),
		deletePlaylist: connect.NewClient[playerv1.DeletePlaylistRequest, playerv1.Empty](httpClient, baseURL+PlayerServiceDeletePlaylistProcedure, opts...),
		clearCache:     connect.NewClient[playerv1.Empty, playerv1.ClearCacheResponse](httpClient, baseURL+PlayerServiceClearCacheProcedure, opts...),
		getQueue:       connect.NewClient[playerv1.Empty, playerv1.GetQueueResponse](httpClient, baseURL+PlayerServiceGetQueueProcedure, opts...),
		getStatus:      connect.NewClient[playerv1.Empty, playerv1.GetStatusResponse](httpClient, baseURL+PlayerServiceGetStatusProcedure, opts...),
		getSong:        connect.NewClient[playerv1.GetSongRequest, playerv1.Song](httpClient, baseURL+PlayerServiceGetSongProcedure, opts...),
		subscribe:      connect.NewClient[playerv1.SubscribeRequest, playerv1.Notification](httpClient, baseURL+PlayerServiceSubscribeProcedure, opts...),
	}
}

type playerServiceClient struct {
	enqueue        *connect.Client[playerv1.EnqueueRequest, playerv1.EnqueueResponse]
	move           *connect.Client[playerv1.MoveRequest, playerv1.Empty]
	remove         *connect.Client[playerv1.RemoveRequest, playerv1.RemoveResponse]
	playNow        *connect.Client[playerv1.PlayNowRequest, playerv1.Empty]
	pause          *connect.Client[playerv1.Empty, playerv1.Empty]
	resume         *connect.Client[playerv1.Empty, playerv1.Empty]
	seek           *connect.Client[playerv1.SeekRequest, playerv1.Empty]
	skipNext       *connect.Client[playerv1.Empty, playerv1.Empty]
	skipPrevious   *connect.Client[playerv1.Empty, playerv1.Empty]
	stop           *connect.Client[playerv1.Empty, playerv1.Empty]
	setVolume      *connect.Client[playerv1.SetVolumeRequest, playerv1.SetVolumeResponse]
	savePlaylist   *connect.Client[playerv1.SavePlaylistRequest, playerv1.Playlist]
	loadPlaylist   *connect.Client[playerv1.LoadPlaylistRequest, playerv1.EnqueueResponse]
	listPlaylists  *connect.Client[playerv1.Empty, playerv1.ListPlaylistsResponse]
	deletePlaylist *connect.Client[playerv1.DeletePlaylistRequest, playerv1.Empty]
	clearCache     *connect.Client[playerv1.Empty, playerv1.ClearCacheResponse]
	getQueue       *connect.Client[playerv1.Empty, playerv1.GetQueueResponse]
	getStatus      *connect.Client[playerv1.Empty, playerv1.GetStatusResponse]
	getSong        *connect.Client[playerv1.GetSongRequest, playerv1.Song]
	subscribe      *connect.Client[playerv1.SubscribeRequest, playerv1.Notification]
}

// Enqueue calls queuebox.player.v1.PlayerService.Enqueue.
func (c *playerServiceClient) Enqueue(ctx context.Context, req *connect.Request[playerv1.EnqueueRequest]) (*connect.Response[playerv1.EnqueueResponse], error) {
	return c.enqueue.CallUnary(ctx, req)
}

// Move calls queuebox.player.v1.PlayerService.Move.
func (c *playerServiceClient) Move(ctx context.Context, req *connect.Request[playerv1.MoveRequest]) (*connect.Response[playerv1.Empty], error) {
	return c.move.CallUnary(ctx, req)
}

// Remove calls queuebox.player.v1.PlayerService.Remove.
func (c *playerServiceClient) Remove(ctx context.Context, req *connect.Request[playerv1.RemoveRequest]) (*connect.Response[playerv1.RemoveResponse], error) {
	return c.remove.CallUnary(ctx, req)
}

// PlayNow calls queuebox.player.v1.PlayerService.PlayNow.
func (c *playerServiceClient) PlayNow(ctx context.Context, req *connect.Request[playerv1.PlayNowRequest]) (*connect.Response[playerv1.Empty], error) {
	return c.playNow.CallUnary(ctx, req)
}

// Pause calls queuebox.player.v1.PlayerService.Pause.
func (c *playerServiceClient) Pause(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	return c.pause.CallUnary(ctx, req)
}

// Resume calls queuebox.player.v1.PlayerService.Resume.
func (c *playerServiceClient) Resume(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	return c.resume.CallUnary(ctx, req)
}

// Seek calls queuebox.player.v1.PlayerService.Seek.
func (c *playerServiceClient) Seek(ctx context.Context, req *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.Empty], error) {
	return c.seek.CallUnary(ctx, req)
}

// SkipNext calls queuebox.player.v1.PlayerService.SkipNext.
func (c *playerServiceClient) SkipNext(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	return c.skipNext.CallUnary(ctx, req)
}

// SkipPrevious calls queuebox.player.v1.PlayerService.SkipPrevious.
func (c *playerServiceClient) SkipPrevious(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	return c.skipPrevious.CallUnary(ctx, req)
}

// Stop calls queuebox.player.v1.PlayerService.Stop.
func (c *playerServiceClient) Stop(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.Empty], error) {
	return c.stop.CallUnary(ctx, req)
}

// SetVolume calls queuebox.player.v1.PlayerService.SetVolume.
func (c *playerServiceClient) SetVolume(ctx context.Context, req *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.SetVolumeResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

// SavePlaylist calls queuebox.player.v1.PlayerService.SavePlaylist.
func (c *playerServiceClient) SavePlaylist(ctx context.Context, req *connect.Request[playerv1.SavePlaylistRequest]) (*connect.Response[playerv1.Playlist], error) {
	return c.savePlaylist.CallUnary(ctx, req)
}

// LoadPlaylist calls queuebox.player.v1.PlayerService.LoadPlaylist.
func (c *playerServiceClient) LoadPlaylist(ctx context.Context, req *connect.Request[playerv1.LoadPlaylistRequest]) (*connect.Response[playerv1.EnqueueResponse], error) {
	return c.loadPlaylist.CallUnary(ctx, req)
}

// ListPlaylists calls queuebox.player.v1.PlayerService.ListPlaylists.
func (c *playerServiceClient) ListPlaylists(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.ListPlaylistsResponse], error) {
	return c.listPlaylists.CallUnary(ctx, req)
}

// DeletePlaylist calls queuebox.player.v1.PlayerService.DeletePlaylist.
func (c *playerServiceClient) DeletePlaylist(ctx context.Context, req *connect.Request[playerv1.DeletePlaylistRequest]) (*connect.Response[playerv1.Empty], error) {
	return c.deletePlaylist.CallUnary(ctx, req)
}

// ClearCache calls queuebox.player.v1.PlayerService.ClearCache.
func (c *playerServiceClient) ClearCache(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.ClearCacheResponse], error) {
	return c.clearCache.CallUnary(ctx, req)
}

// GetQueue calls queuebox.player.v1.PlayerService.GetQueue.
func (c *playerServiceClient) GetQueue(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.GetQueueResponse], error) {
	return c.getQueue.CallUnary(ctx, req)
}

// GetStatus calls queuebox.player.v1.PlayerService.GetStatus.
func (c *playerServiceClient) GetStatus(ctx context.Context, req *connect.Request[playerv1.Empty]) (*connect.Response[playerv1.GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

// GetSong calls queuebox.player.v1.PlayerService.GetSong.
func (c *playerServiceClient) GetSong(ctx context.Context, req *connect.Request[playerv1.GetSongRequest]) (*connect.Response[playerv1.Song], error) {
	return c.getSong.CallUnary(ctx, req)
}

// Subscribe calls queuebox.player.v1.PlayerService.Subscribe.
func (c *playerServiceClient) Subscribe(ctx context.Context, req *connect.Request[playerv1.SubscribeRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}
