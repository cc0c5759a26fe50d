package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/google/uuid"

	"github.com/vovakirdan/tiltmaze/internal/completion"
	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/multiplayer"
	"github.com/vovakirdan/tiltmaze/internal/powerup"
	"github.com/vovakirdan/tiltmaze/internal/sim"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.tiltmaze/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	TickRate   int
	StartLevel int
	FinalLevel int
	TitleDelay time.Duration
	PowerUps   powerup.Config

	// DefaultGroup is joined when the ssh command names no group.
	// Empty means solo play.
	DefaultGroup string
	JoinTimeout  time.Duration
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		TickRate:    core.DefaultConfig().TickRate,
		StartLevel:  1,
		FinalLevel:  3,
		TitleDelay:  completion.DefaultTitleDelay,
		PowerUps:    powerup.DefaultConfig(),
		JoinTimeout: 5 * time.Second,
	}
}

// SSHDeps are the shared services every SSH session plays against.
// Scores and Coordinator may be nil.
type SSHDeps struct {
	Levels      completion.LevelLoader
	Scores      completion.ScoreReporter
	Coordinator *multiplayer.Coordinator
	Sessions    *multiplayer.SessionRegistry
}

// SSHServer wraps a Wish SSH server that runs one game per connection.
type SSHServer struct {
	config SSHServerConfig
	deps   SSHDeps
	server *ssh.Server
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig, deps SSHDeps, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if deps.Coordinator != nil && deps.Sessions == nil {
		return nil, errors.New("tui: coordinator requires a session registry")
	}

	srv := &SSHServer{
		config: cfg,
		deps:   deps,
		logger: logger,
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".tiltmaze", "host_key")
	}

	// Ensure host key directory exists
	if mkdirErr := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// groupFor returns the group named by the ssh command, e.g.
// `ssh -t host -p 23234 friday`, or the configured default.
func (s *SSHServer) groupFor(sshSession ssh.Session) multiplayer.GroupID {
	if args := sshSession.Command(); len(args) > 0 && args[0] != "" {
		return multiplayer.GroupID(args[0])
	}
	return multiplayer.GroupID(s.config.DefaultGroup)
}

// joinGroup binds the connection to the barrier of group. The peer leaves
// the group when the SSH session ends.
func (s *SSHServer) joinGroup(sshSession ssh.Session, group multiplayer.GroupID, logger *log.Logger) *multiplayer.LocalPeer {
	if group == "" || s.deps.Coordinator == nil {
		return nil
	}

	id := multiplayer.SessionID(uuid.NewString())
	session := multiplayer.NewChannelSession(id, 32)

	ctx, cancel := context.WithTimeout(sshSession.Context(), s.config.JoinTimeout)
	defer cancel()
	peer, err := multiplayer.JoinLocal(ctx, s.deps.Coordinator, s.deps.Sessions, session, group)
	if err != nil {
		logger.Warn("cannot join group, playing solo", "group", group, "error", err)
		return nil
	}

	go func() {
		<-sshSession.Context().Done()
		peer.Leave()
	}()
	logger.Info("joined group", "group", group, "session", id)
	return peer
}

// teaHandler creates a game for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	if _, _, ok := sshSession.Pty(); !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	user := sshSession.User()
	logger := s.logger.With("user", user)

	var peers completion.PeerSync
	if peer := s.joinGroup(sshSession, s.groupFor(sshSession), logger); peer != nil {
		peers = peer
	}

	progress := completion.New(completion.Config{
		Username:   user,
		FinalLevel: s.config.FinalLevel,
		TitleDelay: s.config.TitleDelay,
	}, completion.Options{
		Loader: s.deps.Levels,
		Scores: s.deps.Scores,
		Peers:  peers,
		Logger: logger,
	})

	session := sim.NewSession(sim.Config{
		Players:  1,
		Names:    []string{user},
		PowerUps: s.config.PowerUps,
		Seed:     time.Now().UnixNano(),
	}, progress, nil, logger)
	session.Start(s.config.StartLevel)

	model := NewGameModel(session, GameOptions{
		TickRate: s.config.TickRate,
		Players:  1,
	})
	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until ctx is cancelled.
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ssh server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
