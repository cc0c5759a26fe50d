package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/tiltmaze/internal/config"
	"github.com/vovakirdan/tiltmaze/internal/highscore"
	"github.com/vovakirdan/tiltmaze/internal/multiplayer"
	"github.com/vovakirdan/tiltmaze/internal/netsync"
	"github.com/vovakirdan/tiltmaze/internal/storage"
)

var (
	flagScoreAddr string
	flagHTTPAddr  string
	flagDBDriver  string
	flagDBPath    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the highscore and level-sync backends",
	Long: `Start the backend services:

  highscore  - plain-text TCP on server.score_addr
               GET_HIGHSCORE <user> / SET_HIGHSCORE <user>, <deaths>
  level sync - WebSocket on server.http_addr (/ws, /health); players in
               the same group advance only when everyone has finished

Highscores and released level barriers are stored in SQLite by default,
or PostgreSQL with --db-driver postgres (DSN from server.database_url or
TILTMAZE_DATABASE_URL).

Examples:
  tiltmaze serve
  tiltmaze serve --score-addr :12000 --http-addr :8080
  tiltmaze serve --db ./scores.db
  tiltmaze serve --db-driver postgres`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagScoreAddr, "score-addr", "", "Highscore TCP address (default from config)")
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http-addr", "", "Level-sync HTTP address (default from config)")
	addStoreFlags(serveCmd)
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDBDriver, "db-driver", "", "Storage driver: sqlite or postgres (default from config)")
	cmd.Flags().StringVar(&flagDBPath, "db", "", "SQLite database path (default from config)")
}

func applyStoreFlags(cfg *config.ServerConfig) {
	if flagDBDriver != "" {
		cfg.DBDriver = flagDBDriver
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
}

// openStore opens the configured storage backend.
func openStore(ctx context.Context, cfg config.ServerConfig) (storage.Store, error) {
	dsn := cfg.DatabaseURL
	if cfg.DBDriver != storage.DriverPostgres {
		path, err := config.ExpandHome(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		dsn = path
	}
	return storage.Open(ctx, cfg.DBDriver, dsn)
}

// newCoordinator starts a barrier coordinator that records every release in store.
func newCoordinator(cfg config.Config, store storage.Store, logger *log.Logger) (*multiplayer.Coordinator, *multiplayer.SessionRegistry) {
	sessions := multiplayer.NewSessionRegistry()
	coord := multiplayer.NewCoordinator(multiplayer.CoordinatorConfig{
		WaitTimeout:   cfg.Backend.WaitTimeout,
		CleanupPeriod: cfg.Server.CleanupPeriod,
	}, sessions, logger)
	coord.SetResultSaver(storage.ResultSaver{Store: store})
	coord.Start()
	return coord, sessions
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flagScoreAddr != "" {
		cfg.Server.ScoreAddr = flagScoreAddr
	}
	if flagHTTPAddr != "" {
		cfg.Server.HTTPAddr = flagHTTPAddr
	}
	applyStoreFlags(&cfg.Server)

	logger := newLogger(cfg.Log, os.Stderr, "tiltmaze-serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func serve(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	store, err := openStore(ctx, cfg.Server)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("storage ready", "driver", cfg.Server.DBDriver)

	coord, sessions := newCoordinator(cfg, store, logger.WithPrefix("barrier"))
	defer coord.Stop()

	scores := highscore.NewServer(cfg.Server.ScoreAddr, store, logger.WithPrefix("highscore"))
	syncSrv := netsync.NewServer(coord, sessions, logger.WithPrefix("sync"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scores.ListenAndServe(ctx)
	})
	g.Go(func() error {
		return syncSrv.ListenAndServe(ctx, cfg.Server.HTTPAddr)
	})

	logger.Info("serving", "score_addr", cfg.Server.ScoreAddr, "http_addr", cfg.Server.HTTPAddr)
	return g.Wait()
}
