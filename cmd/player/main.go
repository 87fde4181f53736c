// Package main provides the player entry point: the process that owns
// the authoritative queue state and serves the sync endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/venuekit/venuebox/internal/app/jukebox"
	"github.com/venuekit/venuebox/internal/app/player"
	"github.com/venuekit/venuebox/internal/app/policy"
	"github.com/venuekit/venuebox/internal/app/watchdog"
	"github.com/venuekit/venuebox/internal/infra/config"
	"github.com/venuekit/venuebox/internal/infra/logger"
	"github.com/venuekit/venuebox/internal/infra/simsurface"
	"github.com/venuekit/venuebox/internal/infra/spotify"
	"github.com/venuekit/venuebox/internal/infra/store"
	"github.com/venuekit/venuebox/internal/infra/wschannel"
)

var (
	app        = kingpin.New("venuebox-player", "venuebox queue and playback orchestrator")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	freshStart = app.Flag("fresh", "Ignore the persisted snapshot and start empty").Bool()
)

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the main player logic. A separate function so defers run
// on error returns too.
func run(cfg *config.Config) error {
	ctx := context.Background()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open snapshot store")
	}
	defer st.Close()

	writer := store.NewWriter(st, cfg.StoreDebounce())
	defer writer.Close()

	hub := wschannel.NewHub(wschannel.HubConfig{
		SessionID:     cfg.Session.ID,
		PerPeerPerSec: cfg.Server.RateLimit.PerPeerPerSec,
		Burst:         cfg.Server.RateLimit.Burst,
	})
	defer hub.Close()

	surface := simsurface.New()
	pl := player.New(player.Config{
		SessionID:        cfg.Session.ID,
		NextDebounce:     cfg.NextDebounce(),
		FailureThreshold: cfg.Playback.FailureThreshold,
		DefaultVolume:    cfg.Playback.DefaultVolume,
	}, surface, hub, writer)
	surface.Bind(pl)

	if !*freshStart {
		rehydrate(ctx, st, cfg.Session.ID, pl)
	}

	chain := buildPolicies(cfg, pl)

	var source jukebox.PlaylistSource
	if cfg.Spotify.Enabled() {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		source = client
		zlog.Info().Msg("Spotify playlist source enabled")
	} else {
		zlog.Info().Msg("Spotify credentials not set, load_playlist will be rejected")
	}

	dog := watchdog.New(watchdog.Config{
		Interval:     time.Duration(cfg.Watchdog.IntervalMs) * time.Millisecond,
		StallSamples: cfg.Watchdog.StallSamples,
		StartGrace:   time.Duration(cfg.Watchdog.StartGraceMs) * time.Millisecond,
		EndGrace:     time.Duration(cfg.Watchdog.EndGraceMs) * time.Millisecond,
	}, pl, pl)

	mgr := jukebox.NewManager(jukebox.Config{
		SessionID: cfg.Session.ID,
		Player:    pl,
		Watchdog:  dog,
		Policies:  chain,
		Source:    source,
		Consumer:  hub,
	})
	mgr.Start()
	defer mgr.Stop()

	surfaceCtx, cancelSurface := context.WithCancel(ctx)
	defer cancelSurface()
	go surface.Run(surfaceCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/sync/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting sync endpoint: addr=%s session_id=%s", cfg.Server.Addr, cfg.Session.ID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// The deferred writer.Close flushes the last unwritten snapshot.
	zlog.Info().Msg("Player stopped")
	return nil
}

// rehydrate restores the persisted queue state, if any. A corrupt
// snapshot is logged and ignored; the player starts empty.
func rehydrate(ctx context.Context, st *store.Store, sessionID string, pl *player.Player) {
	savedSession, q, err := st.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		zlog.Info().Msg("No persisted snapshot, starting empty")
		return
	case err != nil:
		zlog.Warn().Msgf("Ignoring unreadable snapshot: %v", err)
		return
	case savedSession != sessionID:
		zlog.Info().Msgf("Persisted snapshot belongs to session %s, starting empty", savedSession)
		return
	}

	pl.Rehydrate(q.Active, q.Priority, q.QueueIndex, q.Current, q.WasPlaying)
	if q.Volume > 0 {
		if err := pl.SetVolume(q.Volume); err != nil {
			zlog.Warn().Msgf("Failed to restore volume: %v", err)
		}
	}
}

// buildPolicies assembles the configured queue policy chain.
func buildPolicies(cfg *config.Config, pl *player.Player) *policy.Chain {
	chain := policy.NewChain()
	if cfg.IsPolicyEnabled("duplicate_track") {
		chain.Append(policy.NewDuplicateTrack(pl))
		zlog.Info().Msg("Policy enabled: duplicate_track")
	}
	if cfg.IsPolicyEnabled("queue_cap") {
		max := 100
		if v, ok := cfg.PolicySetting("queue_cap", "max").(int); ok && v > 0 {
			max = v
		}
		chain.Append(policy.NewQueueCap(pl, max))
		zlog.Info().Msgf("Policy enabled: queue_cap (max=%d)", max)
	}
	return chain
}
