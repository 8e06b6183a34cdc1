package gateway

import (
	"bufio"
	"net"
	"strings"
	"time"

	beamerr "github.com/beamlauncher/beam/internal/errors"
)

// Client talks to the socket of an already-running instance.
type Client struct {
	socketPath   string
	dialTimeout  time.Duration
	replyTimeout time.Duration
}

// NewClient creates a client for the given socket path.
func NewClient(socketPath string, dialTimeout, replyTimeout time.Duration) *Client {
	if dialTimeout <= 0 {
		dialTimeout = 500 * time.Millisecond
	}
	if replyTimeout <= 0 {
		replyTimeout = connDeadline
	}
	return &Client{
		socketPath:   socketPath,
		dialTimeout:  dialTimeout,
		replyTimeout: replyTimeout,
	}
}

// IsRunning reports whether an instance is accepting connections on
// the socket.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Send delivers one command and returns the reply line. The reply wait
// is bounded; a receiver that accepts but never answers yields a
// gateway timeout, not a hang.
func (c *Client) Send(command string) (string, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return "", beamerr.New(beamerr.ErrCodeGatewayNoServer, "no receiver on instance socket", err).
			WithDetail("socket", c.socketPath)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.replyTimeout)); err != nil {
		return "", beamerr.GatewayTimeout("unable to set reply deadline", err)
	}

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", beamerr.GatewayTimeout("command write failed", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", beamerr.GatewayTimeout("no reply from instance", err)
	}
	return strings.TrimSpace(line), nil
}
