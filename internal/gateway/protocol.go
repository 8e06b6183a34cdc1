// Package gateway provides the single-instance command channel: a Unix
// socket next to the database where a second invocation of the binary
// can send visibility commands to the running instance.
//
// The wire format is one plain-text command line per connection,
// answered with one plain-text reply line. No framing beyond the
// newline, no versioning; the socket lives in a per-user cache
// directory and both ends are always the same binary.
package gateway

// Commands accepted on the socket.
const (
	CommandShow   = "show"
	CommandHide   = "hide"
	CommandToggle = "toggle"
)

// Replies sent back, one line per connection.
const (
	ReplyVisible     = "Application set visible."
	ReplyInvisible   = "Application set invisible."
	ReplyToggled     = "Visibility toggled."
	ReplyUnsupported = "Command not supported."
)

// Handler receives visibility commands dispatched by the server.
// Implementations must be safe for calls from the connection
// goroutines.
type Handler interface {
	SetVisible(visible bool)
	ToggleVisibility()
}
