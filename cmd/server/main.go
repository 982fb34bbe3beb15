// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/queuebox/internal/api/connect"
	"github.com/osa030/queuebox/internal/api/playerv1/playerv1connect"
	"github.com/osa030/queuebox/internal/app/cache"
	"github.com/osa030/queuebox/internal/app/coordinator"
	"github.com/osa030/queuebox/internal/app/fetch"
	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/infra/backend"
	"github.com/osa030/queuebox/internal/infra/config"
	"github.com/osa030/queuebox/internal/infra/logger"
	"github.com/osa030/queuebox/internal/infra/store"
)

var (
	app        = kingpin.New("queuebox-server", "queuebox playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	output     = app.Flag("output", "Override playback output (speaker, clock)").Enum("speaker", "clock")

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *output != "" {
		cfg.Playback.Output = *output
	}

	// Run server (defer ensures cleanup runs)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	songs, err := store.OpenSongStore(cfg.Store.SongsDB)
	if err != nil {
		return errors.Wrap(err, "failed to open song store")
	}
	defer songs.Close()
	playlists, err := store.NewPlaylistStore(cfg.Store.PlaylistDir)
	if err != nil {
		return errors.Wrap(err, "failed to open playlist store")
	}
	states, err := store.NewStateStore(cfg.Store.StateFile)
	if err != nil {
		return errors.Wrap(err, "failed to open state store")
	}
	tree, volume := restoreState(states, cfg.Playback.Volume)

	// Remote backend
	remote, err := backend.New(backend.Config{
		BaseURL:           cfg.Backend.URL,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
		Timeout:           cfg.BackendTimeout(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create backend client")
	}
	if err := remote.Ping(ctx); err != nil {
		// The backend may start later; requests fail until it is up
		zlog.Warn().Err(err).Msgf("Backend at %s is not reachable yet", cfg.Backend.URL)
	}

	// Audio pipeline
	audio := cache.New(cfg.CacheCapacity())
	fetcher, err := fetch.New(remote, audio, songs, fetch.Config{
		ChunkSize:         cfg.Fetch.ChunkKB * 1024,
		PrebufferBytes:    int64(cfg.Fetch.PrebufferKB) * 1024,
		MetadataCacheSize: cfg.Fetch.MetadataCacheSize,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create fetcher")
	}
	defer fetcher.Close()
	audio.SetLoader(fetcher)

	out, err := newOutput(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	engine := playback.NewEngine(audio, out, playback.Config{
		ProgressInterval: cfg.ProgressInterval(),
		Volume:           volume,
	})
	defer engine.Close()

	// Coordinator
	notifier := notification.NewManager()
	defer notifier.Close()

	coord, err := coordinator.New(coordinator.Config{
		AutoPlay:      cfg.AutoPlay(),
		ConsumePlayed: cfg.Queue.ConsumePlayed,
		Lookahead:     cfg.Lookahead(),
		Filters:       filterSpecs(cfg),
	}, coordinator.Deps{
		Tree:      tree,
		Player:    engine,
		Catalog:   fetcher,
		Cache:     audio,
		Playlists: playlists,
		Notifier:  notifier,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create coordinator")
	}
	coordErrCh := make(chan error, 1)
	go func() {
		coordErrCh <- coord.Run(ctx)
	}()

	// Create HTTP mux and register services
	mux := http.NewServeMux()
	playerPath, playerHandler := playerv1connect.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(coord, notifier, cfg),
		connect.WithInterceptors(apiconnect.NewAuthInterceptor(cfg.API.Token)),
	)
	mux.Handle(playerPath, playerHandler)
	if cfg.API.Token == "" {
		zlog.Warn().Msg("API token is not set, the player API is open to anyone who can reach it")
	}

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal, coordinator end, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-coordErrCh:
		zlog.Info().Msg("Coordinator stopped, shutting down...")
		runErr = err
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Stop the coordinator first so subscription streams end
	cancel()
	<-coord.Done()
	saveState(states, coord.Tree(), engine.Status().Volume)
	engine.Stop()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// newOutput opens the configured audio output. Without a sound card in the
// build, playback falls back to a clock that paces songs silently.
func newOutput(cfg *config.Config) (playback.Output, error) {
	rate := beep.SampleRate(cfg.Playback.SampleRate)
	buffer := cfg.OutputBuffer()

	if cfg.Playback.Output == "speaker" {
		if playback.SpeakerAvailable {
			out, err := playback.NewSpeakerOutput(rate, buffer)
			if err != nil {
				return nil, errors.Wrap(err, "failed to open audio device")
			}
			zlog.Info().Msgf("Audio output: speaker (%d Hz, %s buffer)", rate, buffer)
			return out, nil
		}
		zlog.Warn().Msg("Speaker output is not available in this build, using clock output")
	}
	zlog.Info().Msgf("Audio output: clock (%d Hz)", rate)
	return playback.NewClockOutput(rate, buffer), nil
}

// filterSpecs converts the filter section of the config.
func filterSpecs(cfg *config.Config) map[string]filter.Spec {
	specs := make(map[string]filter.Spec, len(cfg.Filters))
	for name, f := range cfg.Filters {
		specs[name] = filter.Spec{Enabled: f.Enabled, Settings: f.Settings}
	}
	return specs
}

// printFilters prints available filters.
func printFilters() {
	registry := filter.GetRegistered()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registry[name](filter.Deps{})
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}

// restoreState loads the queue and volume saved by the last run. A missing or
// unreadable state starts an empty queue at the configured volume.
func restoreState(states *store.StateStore, volume float64) (*queue.Tree, float64) {
	state, found, err := states.Load()
	if err != nil {
		zlog.Warn().Err(err).Msg("Ignoring saved state")
		return nil, volume
	}
	if !found {
		return nil, volume
	}
	volume = state.Volume
	if state.Queue.Root.Kind == "" {
		return nil, volume
	}
	tree, err := queue.Import(state.Queue)
	if err != nil {
		zlog.Warn().Err(err).Msg("Ignoring saved queue")
		return nil, volume
	}
	zlog.Info().Msgf("Restored %d songs from %s", tree.Len(), state.SavedAt.Format(time.RFC3339))
	return tree, volume
}

func saveState(states *store.StateStore, tree *queue.Tree, volume float64) {
	state := store.State{SavedAt: time.Now(), Volume: volume, Queue: tree.Export()}
	if err := states.Save(state); err != nil {
		zlog.Error().Err(err).Msg("Failed to save state")
		return
	}
	zlog.Info().Msgf("Saved %d songs and volume %.2f", tree.Len(), volume)
}
