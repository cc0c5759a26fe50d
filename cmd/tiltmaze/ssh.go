package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/tiltmaze/internal/highscore"
	"github.com/vovakirdan/tiltmaze/internal/netsync"
	"github.com/vovakirdan/tiltmaze/internal/platform/tui"
)

var (
	flagSSHAddr      string
	flagHostKey      string
	flagDefaultGroup string
	flagSSHSync      string
)

var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Host tiltmaze over SSH",
	Long: `Start an SSH server that runs one game per connection.

Every connection plays solo unless it names a group as the ssh command
(or --group sets a default). Players in the same group wait for each other
at every goal. With --sync-addr the level-sync WebSocket is served too, so
terminal clients (tiltmaze play --multiplayer) can share groups with SSH
players.

Highscores are written to the same storage as 'tiltmaze serve'.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.tiltmaze/host_key

Examples:
  tiltmaze ssh                         # Listen on :23234
  tiltmaze ssh --ssh :2222 --group lobby
  tiltmaze ssh --sync-addr :8080

Users can connect with:
  ssh -t localhost -p 23234            # solo
  ssh -t localhost -p 23234 friday     # join group "friday"`,
	Run: runSSH,
}

func init() {
	sshCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (default from config)")
	sshCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	sshCmd.Flags().StringVar(&flagDefaultGroup, "group", "", "Group joined when the ssh command names none")
	sshCmd.Flags().StringVar(&flagSSHSync, "sync-addr", "", "Also serve the level-sync WebSocket on this address")
	addStoreFlags(sshCmd)
}

func runSSH(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flagSSHAddr != "" {
		cfg.Server.SSHAddr = flagSSHAddr
	}
	if flagHostKey != "" {
		cfg.Server.HostKey = flagHostKey
	}
	applyStoreFlags(&cfg.Server)

	logger := newLogger(cfg.Log, os.Stderr, "tiltmaze-ssh")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Server)
	if err != nil {
		logger.Error("cannot open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	loader, err := newLevelLoader(cfg.Levels, logger.WithPrefix("levels"))
	if err != nil {
		logger.Error("cannot open levels", "error", err)
		os.Exit(1)
	}

	coord, sessions := newCoordinator(cfg, store, logger.WithPrefix("barrier"))
	defer coord.Stop()

	hostKey, err := expandOptional(cfg.Server.HostKey)
	if err != nil {
		logger.Error("invalid host key path", "error", err)
		os.Exit(1)
	}

	sshCfg := tui.DefaultSSHServerConfig()
	sshCfg.Address = cfg.Server.SSHAddr
	sshCfg.HostKeyPath = hostKey
	sshCfg.IdleTimeout = cfg.Server.IdleTimeout
	sshCfg.TickRate = cfg.Game.TickRate
	sshCfg.StartLevel = cfg.Game.StartLevel
	sshCfg.FinalLevel = cfg.Game.FinalLevel
	sshCfg.TitleDelay = cfg.Game.TitleDelay
	sshCfg.PowerUps = powerUpConfig(cfg)
	sshCfg.DefaultGroup = flagDefaultGroup

	server, err := tui.NewSSHServer(sshCfg, tui.SSHDeps{
		Levels:      loader,
		Scores:      highscore.NewServer("", store, logger.WithPrefix("highscore")),
		Coordinator: coord,
		Sessions:    sessions,
	}, logger)
	if err != nil {
		logger.Error("cannot create SSH server", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Starting tiltmaze SSH server on %s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	if flagSSHSync != "" {
		syncSrv := netsync.NewServer(coord, sessions, logger.WithPrefix("sync"))
		g.Go(func() error {
			return syncSrv.ListenAndServe(ctx, flagSSHSync)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
