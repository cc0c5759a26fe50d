package highscore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tiltmaze/internal/storage"
)

// ScoreStore is the subset of storage.Store the server needs.
type ScoreStore interface {
	EnsureHighscore(ctx context.Context, player string, def int) (int, error)
	SetHighscore(ctx context.Context, player string, deaths int) (bool, error)
}

var _ ScoreStore = (storage.Store)(nil)

// Server answers GET_HIGHSCORE and SET_HIGHSCORE requests.
type Server struct {
	addr    string
	store   ScoreStore
	logger  *log.Logger
	timeout time.Duration

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewServer creates a server for addr. A nil logger discards output.
func NewServer(addr string, store ScoreStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{addr: addr, store: store, logger: logger, timeout: 10 * time.Second}
}

// Listen binds the server socket. Serve must be called afterwards.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("highscore: listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address once listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// ListenAndServe binds and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("highscore: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger.Info("score server listening", "addr", ln.Addr().String())
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("highscore: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	line, err := bufio.NewReader(io.LimitReader(conn, maxLineSize)).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		s.logger.Warn("cannot read score request", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	reply := s.Handle(ctx, line)
	if _, err := io.WriteString(conn, reply+"\n"); err != nil {
		s.logger.Warn("cannot write score reply", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

// Handle executes one request line and returns the reply.
func (s *Server) Handle(ctx context.Context, line string) string {
	req, ok := parseRequest(line)
	if !ok {
		return ReplyInvalidInput
	}

	switch req.cmd {
	case CmdGet:
		if req.payload == "" {
			return ReplyInvalidInput
		}
		score, err := s.store.EnsureHighscore(ctx, req.payload, storage.DefaultHighscore)
		if err != nil {
			s.logger.Error("highscore lookup failed", "player", req.payload, "error", err)
			return strconv.Itoa(storage.DefaultHighscore)
		}
		return strconv.Itoa(score)

	case CmdSet:
		user, deaths, reply := parseSet(req.payload)
		if reply != "" {
			return reply
		}
		changed, err := s.store.SetHighscore(ctx, user, deaths)
		if err != nil {
			s.logger.Error("highscore update failed", "player", user, "error", err)
			return ReplyStorageFailed
		}
		s.logger.Info("highscore reported", "player", user, "deaths", deaths, "new_best", changed)
		return ReplyUpdated

	default:
		return ReplyUnknown
	}
}

// ReportHighscore applies a score report without a network round trip, for
// games hosted in the same process as the server.
func (s *Server) ReportHighscore(ctx context.Context, user string, deaths int) (string, error) {
	return s.Handle(ctx, SetLine(user, deaths)), nil
}
