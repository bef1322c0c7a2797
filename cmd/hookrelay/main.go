// Copyright 2024-2026 Aiku AI

// Command hookrelay receives webhooks from GitHub, the Prologin website and
// generic alert sources and posts them to Matrix rooms or Mattermost
// channels.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "maunium.net/go/mauflag"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/chat"
	"github.com/aiku/hookrelay/pkg/chat/matrix"
	"github.com/aiku/hookrelay/pkg/chat/mattermost"
	"github.com/aiku/hookrelay/pkg/config"
	"github.com/aiku/hookrelay/pkg/handlers"
	"github.com/aiku/hookrelay/pkg/membership"
	"github.com/aiku/hookrelay/pkg/pipeline"
	"github.com/aiku/hookrelay/pkg/webhooks"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath  = flag.MakeFull("c", "config", "Path to the config file.", "config.yaml").String()
	showVersion = flag.MakeFull("v", "version", "Print the version and exit.", "false").Bool()
	wantHelp, _ = flag.MakeHelpFlag()
)

// backend is a connected chat network.
type backend interface {
	chat.Client
	chat.Inviter
}

func main() {
	flag.SetHelpTitles(
		"hookrelay - relay webhooks to chat rooms.",
		"hookrelay [-hv] [-c <path>]",
	)
	if err := flag.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.PrintHelp()
		os.Exit(1)
	} else if *wantHelp {
		flag.PrintHelp()
		os.Exit(0)
	} else if *showVersion {
		fmt.Printf("hookrelay %s (commit %s, built %s)\n", Tag, Commit, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := newLogger(cfg.Logging)
	log.Info().Str("version", Tag).Str("commit", Commit).Str("network", cfg.Network).Msg("Starting hookrelay")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Relay stopped")
	}
	log.Info().Msg("Relay stopped")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// run starts every component and blocks until ctx is cancelled or the
// server fails, then drains the queue.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	router := cfg.Router()
	var wg sync.WaitGroup

	var client backend
	var manager *membership.Manager
	membershipCfg := membership.Config{
		BaseDelay: cfg.Membership.BaseDelay,
		MaxWait:   cfg.Membership.MaxWait,
	}

	switch cfg.Network {
	case config.NetworkMatrix:
		bot, err := matrix.New(matrix.Config{
			Homeserver: cfg.Matrix.Homeserver,
			Username:   cfg.Matrix.Username,
			Password:   cfg.Matrix.Password,
			StateDir:   cfg.Matrix.StateDir,
			DeviceName: cfg.Matrix.DeviceName,
		}, log)
		if err != nil {
			return err
		}
		defer bot.Close()
		if err := bot.Login(ctx); err != nil {
			return err
		}
		manager = membership.NewManager(bot, router, membershipCfg, log)
		bot.OnInvite(func(ctx context.Context, roomID id.RoomID) {
			manager.HandleInvite(ctx, roomID)
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bot.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Matrix sync failed")
			}
		}()
		client = bot

	case config.NetworkMattermost:
		mm := mattermost.New(mattermost.Config{
			ServerURL: cfg.Mattermost.ServerURL,
			Token:     cfg.Mattermost.Token,
		}, log)
		if err := mm.Connect(ctx); err != nil {
			return err
		}
		manager = membership.NewManager(mm, router, membershipCfg, log)
		for _, room := range cfg.Rooms() {
			manager.HandleInvite(ctx, room)
		}
		client = mm
	}

	queue := pipeline.NewQueue()
	consumer := pipeline.NewConsumer(queue, handlers.NewSet(log), router, client, log)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		// Not ctx: the consumer must outlive the signal to drain the queue.
		consumer.Run(context.Background())
	}()

	server := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: webhooks.NewServer(webhooks.Secrets{
			GitHub:  cfg.GitHubSecret,
			Site:    cfg.ProloSiteSecret,
			Generic: cfg.Endpoints(),
		}, queue, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	log.Info().Msg("Shutting down")
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("Failed to shut down webhook server cleanly")
	}
	queue.Close()
	<-consumerDone
	// The sync loop delivers invitations, so it must stop before the manager.
	wg.Wait()
	manager.Close()
	if err != nil {
		return fmt.Errorf("webhook server failed: %w", err)
	}
	return nil
}
