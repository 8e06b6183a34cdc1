package gateway

import (
	"bufio"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	beamerr "github.com/beamlauncher/beam/internal/errors"
)

// connDeadline bounds how long a single client connection may take to
// deliver its command line and consume the reply.
const connDeadline = 5 * time.Second

// Server listens on the instance socket and forwards visibility
// commands to the handler.
type Server struct {
	socketPath string
	handler    Handler
	listener   net.Listener

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a server for the given socket path. Nothing is
// bound until ListenAndServe.
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
	}
}

// ListenAndServe binds the socket and serves until the server is
// closed. A stale socket file left by a crashed instance is removed
// before binding; the caller must hold the instance lock so the file
// cannot belong to a live process.
//
// A bind failure is returned as a gateway error so the caller can keep
// running without remote control rather than abort.
func (s *Server) ListenAndServe() error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return beamerr.GatewayBindError("unable to bind instance socket", err).
			WithDetail("socket", s.socketPath)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	slog.Info("Gateway listening", slog.String("socket", s.socketPath))

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			slog.Error("Gateway accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// handleConnection reads one command line, dispatches it and writes
// the reply line.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(connDeadline)); err != nil {
		slog.Warn("Failed to set connection deadline", slog.String("error", err.Error()))
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		// Probe connections (dial and hang up) are how a second
		// instance checks for a receiver; nothing to answer.
		return
	}

	command := strings.TrimSpace(line)
	slog.Debug("Gateway command received", slog.String("command", command))

	var reply string
	switch command {
	case CommandShow:
		s.handler.SetVisible(true)
		reply = ReplyVisible
	case CommandHide:
		s.handler.SetVisible(false)
		reply = ReplyInvisible
	case CommandToggle:
		s.handler.ToggleVisibility()
		reply = ReplyToggled
	default:
		reply = ReplyUnsupported
	}

	if _, err := conn.Write([]byte(reply + "\n")); err != nil {
		slog.Warn("Gateway reply write failed", slog.String("error", err.Error()))
	}
}

// Close stops accepting connections and unblocks ListenAndServe.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		return listener.Close()
	}
	return nil
}
