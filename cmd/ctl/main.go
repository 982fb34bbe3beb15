// Package main provides the control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/queuebox/internal/api/connect"
	"github.com/osa030/queuebox/internal/api/playerv1"
	"github.com/osa030/queuebox/internal/api/playerv1/playerv1connect"
)

var (
	app    = kingpin.New("queuebox-ctl", "queuebox player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "API token (or set QUEUEBOX_API_TOKEN env)").Envar("QUEUEBOX_API_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show playback status")

	// queue command
	queueCmd = app.Command("queue", "Show the queue tree").Alias("ls")

	// add command
	addCmd    = app.Command("add", "Add songs to the queue")
	addIDs    = addCmd.Arg("song-ids", "Song IDs").Required().Strings()
	addParent = addCmd.Flag("parent", "Group path to insert into").Default("/").String()
	addIndex  = addCmd.Flag("index", "Position within the group (default: append)").IsSetByUser(&addIndexSet).Int32()
	addLabel  = addCmd.Flag("group", "Wrap the songs in a group with this label").String()

	// move command
	moveCmd    = app.Command("move", "Move a queue node")
	moveFrom   = moveCmd.Arg("from", "Path of the node").Required().String()
	moveParent = moveCmd.Arg("to-parent", "Destination group path").Required().String()
	moveIndex  = moveCmd.Arg("to-index", "Position within the destination").Required().Int32()

	// remove command
	removeCmd  = app.Command("remove", "Remove a queue node").Alias("rm")
	removePath = removeCmd.Arg("path", "Path of the node").Required().String()

	// play command
	playCmd  = app.Command("play", "Play a queue node now")
	playPath = playCmd.Arg("path", "Path of the node (default: current song)").String()

	// transport commands
	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	nextCmd   = app.Command("next", "Skip to the next song").Alias("skip")
	prevCmd   = app.Command("prev", "Go back to the previous song")
	stopCmd   = app.Command("stop", "Stop playback")
	seekCmd   = app.Command("seek", "Seek within the playing song")
	seekTo    = seekCmd.Arg("position", "Position, e.g. 1m30s").Required().Duration()
	volumeCmd = app.Command("volume", "Set the volume")
	volumeTo  = volumeCmd.Arg("level", "Volume between 0 and 1").Required().Float64()

	// song command
	songCmd = app.Command("song", "Show song metadata")
	songID  = songCmd.Arg("song-id", "Song ID").Required().String()

	// clear-cache command
	clearCacheCmd = app.Command("clear-cache", "Drop cached audio that is not in use")

	// playlist commands
	playlistCmd        = app.Command("playlist", "Manage saved playlists")
	playlistSaveCmd    = playlistCmd.Command("save", "Save a queue node as a playlist")
	playlistSaveName   = playlistSaveCmd.Arg("name", "Playlist name").Required().String()
	playlistSavePath   = playlistSaveCmd.Arg("path", "Path of the node (default: whole queue)").Default("/").String()
	playlistLoadCmd    = playlistCmd.Command("load", "Add a saved playlist to the queue")
	playlistLoadID     = playlistLoadCmd.Arg("id", "Playlist ID (UUID)").Required().String()
	playlistLoadParent = playlistLoadCmd.Flag("parent", "Group path to insert into").Default("/").String()
	playlistListCmd    = playlistCmd.Command("list", "List saved playlists").Alias("ls")
	playlistDeleteCmd  = playlistCmd.Command("delete", "Delete a saved playlist").Alias("rm")
	playlistDeleteID   = playlistDeleteCmd.Arg("id", "Playlist ID (UUID)").Required().String()

	// watch command
	watchCmd = app.Command("watch", "Stream notifications").Alias("subscribe")

	addIndexSet bool
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := playerv1connect.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewTokenInterceptor(*token)),
	)

	ctx := context.Background()

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case queueCmd.FullCommand():
		showQueue(ctx, client)
	case addCmd.FullCommand():
		add(ctx, client)
	case moveCmd.FullCommand():
		_, err := client.Move(ctx, connect.NewRequest(&playerv1.MoveRequest{From: *moveFrom, ToParent: *moveParent, ToIndex: *moveIndex}))
		done(err, "Moved")
	case removeCmd.FullCommand():
		resp, err := client.Remove(ctx, connect.NewRequest(&playerv1.RemoveRequest{Path: *removePath}))
		check(err)
		fmt.Printf("Removed %s\n", describe(resp.Msg.Removed))
	case playCmd.FullCommand():
		_, err := client.PlayNow(ctx, connect.NewRequest(&playerv1.PlayNowRequest{Path: *playPath}))
		done(err, "Playing")
	case pauseCmd.FullCommand():
		_, err := client.Pause(ctx, connect.NewRequest(&playerv1.Empty{}))
		done(err, "Paused")
	case resumeCmd.FullCommand():
		_, err := client.Resume(ctx, connect.NewRequest(&playerv1.Empty{}))
		done(err, "Resumed")
	case nextCmd.FullCommand():
		_, err := client.SkipNext(ctx, connect.NewRequest(&playerv1.Empty{}))
		done(err, "Skipped")
	case prevCmd.FullCommand():
		_, err := client.SkipPrevious(ctx, connect.NewRequest(&playerv1.Empty{}))
		done(err, "Went back")
	case stopCmd.FullCommand():
		_, err := client.Stop(ctx, connect.NewRequest(&playerv1.Empty{}))
		done(err, "Stopped")
	case seekCmd.FullCommand():
		_, err := client.Seek(ctx, connect.NewRequest(&playerv1.SeekRequest{PositionMs: seekTo.Milliseconds()}))
		done(err, "Seeked to "+seekTo.String())
	case volumeCmd.FullCommand():
		resp, err := client.SetVolume(ctx, connect.NewRequest(&playerv1.SetVolumeRequest{Volume: *volumeTo}))
		check(err)
		fmt.Printf("Volume: %.0f%%\n", resp.Msg.Volume*100)
	case songCmd.FullCommand():
		showSong(ctx, client, *songID)
	case clearCacheCmd.FullCommand():
		resp, err := client.ClearCache(ctx, connect.NewRequest(&playerv1.Empty{}))
		check(err)
		fmt.Printf("Removed %d cached songs\n", resp.Msg.Removed)
	case playlistSaveCmd.FullCommand():
		resp, err := client.SavePlaylist(ctx, connect.NewRequest(&playerv1.SavePlaylistRequest{Name: *playlistSaveName, Path: *playlistSavePath}))
		check(err)
		fmt.Printf("Saved %q as %s (%d songs)\n", resp.Msg.Name, resp.Msg.ID, resp.Msg.SongCount)
	case playlistLoadCmd.FullCommand():
		resp, err := client.LoadPlaylist(ctx, connect.NewRequest(&playerv1.LoadPlaylistRequest{ID: *playlistLoadID, Parent: *playlistLoadParent}))
		check(err)
		printEnqueue(resp.Msg)
	case playlistListCmd.FullCommand():
		listPlaylists(ctx, client)
	case playlistDeleteCmd.FullCommand():
		_, err := client.DeletePlaylist(ctx, connect.NewRequest(&playerv1.DeletePlaylistRequest{ID: *playlistDeleteID}))
		done(err, "Deleted")
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func check(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func done(err error, msg string) {
	check(err)
	fmt.Println(msg)
}

func status(ctx context.Context, client playerv1connect.PlayerServiceClient) {
	resp, err := client.GetStatus(ctx, connect.NewRequest(&playerv1.Empty{}))
	check(err)

	s := resp.Msg
	fmt.Println("\n=== PLAYER STATUS ===")
	fmt.Printf("State: %s\n", formatState(s.State))
	if s.SongID != "" {
		fmt.Printf("Song: %s\n", s.SongID)
		fmt.Printf("Position: %s / %s\n", ms(s.PositionMs), ms(s.DurationMs))
		fmt.Printf("Seekable: %v\n", s.Seekable)
	}
	fmt.Printf("Volume: %.0f%%\n", s.Volume*100)

	fmt.Println("\nQueue:")
	fmt.Printf("  Songs: %d\n", s.QueueLength)
	fmt.Printf("  Cursor: %s\n", orNone(s.Cursor))
	fmt.Printf("  Current: %s\n", orNone(s.Current))
	fmt.Printf("  Next: %s\n", orNone(s.Next))
	if s.Drifted {
		fmt.Println("  The playing song is no longer at the cursor")
	}

	fmt.Println("\nCache:")
	fmt.Printf("  Entries: %d\n", s.CacheEntries)
	fmt.Printf("  Size: %.1f MiB\n", float64(s.CacheBytes)/(1<<20))
	fmt.Println()
}

func showQueue(ctx context.Context, client playerv1connect.PlayerServiceClient) {
	resp, err := client.GetQueue(ctx, connect.NewRequest(&playerv1.Empty{}))
	check(err)

	q := resp.Msg
	if q.Root == nil || len(q.Root.Children) == 0 {
		fmt.Println("Queue is empty")
		return
	}
	printTree(q.Root, "", q.Cursor, 0)
}

func printTree(n *playerv1.Node, path, cursor string, depth int) {
	for i := range n.Children {
		child := &n.Children[i]
		p := fmt.Sprintf("%d", i)
		if path != "" {
			p = path + "/" + p
		}
		marker := "  "
		if p == cursor {
			marker = "▶ "
		}
		fmt.Printf("%s%s%-8s %s\n", marker, strings.Repeat("  ", depth), p, describe(child))
		if child.Kind == "group" {
			printTree(child, p, cursor, depth+1)
		}
	}
}

func describe(n *playerv1.Node) string {
	if n == nil {
		return "nothing"
	}
	if n.Kind == "leaf" {
		if n.DurationMs > 0 {
			return fmt.Sprintf("%s (%s)", n.SongID, ms(n.DurationMs))
		}
		return n.SongID
	}
	label := n.Label
	if label == "" {
		label = "(group)"
	}
	return fmt.Sprintf("%s [%d items]", label, len(n.Children))
}

func add(ctx context.Context, client playerv1connect.PlayerServiceClient) {
	var node *playerv1.Node
	if len(*addIDs) == 1 && *addLabel == "" {
		node = &playerv1.Node{Kind: "leaf", SongID: (*addIDs)[0]}
	} else {
		node = &playerv1.Node{Kind: "group", Label: *addLabel}
		for _, id := range *addIDs {
			node.Children = append(node.Children, playerv1.Node{Kind: "leaf", SongID: id})
		}
	}

	req := &playerv1.EnqueueRequest{Parent: *addParent, Node: node}
	if addIndexSet {
		req.Index = addIndex
	}
	resp, err := client.Enqueue(ctx, connect.NewRequest(req))
	check(err)
	printEnqueue(resp.Msg)
}

func printEnqueue(r *playerv1.EnqueueResponse) {
	if r.Added > 0 {
		fmt.Printf("Added %d songs at %s\n", r.Added, r.Path)
	}
	for _, rej := range r.Rejected {
		fmt.Printf("Rejected %s: %s (%s)\n", rej.SongID, rej.Message, rej.Code)
	}
	if r.Added == 0 && len(r.Rejected) == 0 {
		fmt.Println("Nothing added")
	}
}

func showSong(ctx context.Context, client playerv1connect.PlayerServiceClient, id string) {
	resp, err := client.GetSong(ctx, connect.NewRequest(&playerv1.GetSongRequest{SongID: id}))
	check(err)

	s := resp.Msg
	fmt.Printf("Song ID: %s\n", s.ID)
	fmt.Printf("Title: %s\n", s.Title)
	fmt.Printf("Artists: %v\n", s.Artists)
	fmt.Printf("Channel: %s\n", s.Channel)
	fmt.Printf("Album: %s\n", s.Album)
	fmt.Printf("Duration: %s\n", ms(s.DurationMs))
	fmt.Printf("URL: %s\n", s.URL)
	fmt.Printf("Tags: %v\n", s.Tags)
}

func listPlaylists(ctx context.Context, client playerv1connect.PlayerServiceClient) {
	resp, err := client.ListPlaylists(ctx, connect.NewRequest(&playerv1.Empty{}))
	check(err)

	if len(resp.Msg.Playlists) == 0 {
		fmt.Println("No saved playlists")
		return
	}
	for _, p := range resp.Msg.Playlists {
		fmt.Printf("%s  %-24s %3d songs  %8s  saved %s\n",
			p.ID, p.Name, p.SongCount, ms(p.DurationMs), p.SavedAt.Local().Format(time.DateTime))
	}
}

func watch(ctx context.Context, client playerv1connect.PlayerServiceClient) {
	stream, err := client.Subscribe(ctx, connect.NewRequest(&playerv1.SubscribeRequest{}))
	check(err)

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	// Receive notifications
	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *playerv1.Notification) {
	fmt.Printf("[%d] %s %-15s", n.SequenceNo, n.At.Local().Format(time.TimeOnly), n.Type)
	switch n.Type {
	case "initial_state", "playback_state":
		fmt.Printf(" %s %s", formatState(n.State), n.SongID)
	case "progress":
		fmt.Printf(" %s %s / %s", n.SongID, ms(n.PositionMs), ms(n.DurationMs))
	case "song_started":
		fmt.Printf(" %s", n.SongID)
	case "could_not_play", "device_error":
		fmt.Printf(" %s: %s", n.SongID, n.Message)
	}
	fmt.Println()
}

func formatState(state string) string {
	switch state {
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "loading":
		return "⏳ Loading"
	case "finished":
		return "⏹  Finished"
	case "idle":
		return "⏹  Idle"
	default:
		return "❓ Unknown"
	}
}

func ms(v int64) string {
	return (time.Duration(v) * time.Millisecond).Round(time.Second).String()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
