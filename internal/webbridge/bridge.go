// Package webbridge proxies browser websocket clients onto the Telnet
// listener. The bridge is presentation-only: it owns no game state and
// speaks to the game server exactly like any other Telnet client.
//
// Frames are JSON envelopes. Server to client: {"type":"mud_output",
// "data":"..."} carrying raw Telnet output (ANSI included) and
// {"type":"error","data":"..."}. Client to server: {"type":"mud_input",
// "data":"look"}.
package webbridge

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Envelope is the JSON frame exchanged with websocket clients.
type Envelope struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Frame types.
const (
	TypeOutput = "mud_output"
	TypeInput  = "mud_input"
	TypeError  = "error"
)

// Options tune the bridge. Zero values fall back to defaults.
type Options struct {
	// TelnetAddr is the upstream Telnet listener ("host:port").
	TelnetAddr string
	// FlushInterval is how long output is coalesced before a frame is sent.
	FlushInterval time.Duration
	// FlushMaxLines forces an early flush once this many lines are pending.
	FlushMaxLines int
	// DialTimeout bounds the upstream Telnet dial.
	DialTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.FlushInterval <= 0 {
		o.FlushInterval = 50 * time.Millisecond
	}
	if o.FlushMaxLines <= 0 {
		o.FlushMaxLines = 15
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	return o
}

// Bridge upgrades websocket connections and proxies each one onto its own
// upstream Telnet connection.
type Bridge struct {
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a bridge proxying to opts.TelnetAddr.
//
// Precondition: opts.TelnetAddr must be non-empty; logger must be non-nil.
func New(opts Options, logger *zap.Logger) (*Bridge, error) {
	if opts.TelnetAddr == "" {
		return nil, fmt.Errorf("webbridge: telnet address is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("webbridge: logger is required")
	}
	return &Bridge{
		opts:   opts.withDefaults(),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The bridge carries no credentials of its own; the game's
			// login runs inside the proxied stream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Handler returns the http handler serving websocket sessions at /ws, plus
// optional static assets from staticDir at /.
func (b *Bridge) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.serveSession)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

// serveSession runs one websocket session end to end: upgrade, dial the
// Telnet server, then pump both directions until either side closes.
func (b *Bridge) serveSession(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return
	}
	defer ws.Close()

	out := &wsWriter{ws: ws}

	tcp, err := net.DialTimeout("tcp", b.opts.TelnetAddr, b.opts.DialTimeout)
	if err != nil {
		b.logger.Error("dialing game server",
			zap.String("telnet_addr", b.opts.TelnetAddr),
			zap.Error(err))
		_ = out.write(Envelope{Type: TypeError, Data: "The game server is unreachable. Try again later."})
		return
	}
	defer tcp.Close()

	b.logger.Info("web session connected",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("telnet_addr", b.opts.TelnetAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		b.pumpOutput(ctx, tcp, out)
	}()

	b.pumpInput(ctx, ws, out, tcp)
	cancel()
	// Closing the TCP side unblocks the output pump's read.
	_ = tcp.Close()
	wg.Wait()

	b.logger.Info("web session closed", zap.String("remote_addr", r.RemoteAddr))
}

// pumpOutput forwards Telnet output to the websocket, coalescing into one
// frame per flush interval. Prompts arrive without a trailing newline, so
// partial data is flushed on the timer as well.
func (b *Bridge) pumpOutput(ctx context.Context, tcp net.Conn, out *wsWriter) {
	chunks := make(chan []byte, 8)
	go func() {
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, err := tcp.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(b.opts.FlushInterval)
	defer ticker.Stop()

	var pending bytes.Buffer
	lines := 0
	flush := func() bool {
		if pending.Len() == 0 {
			return true
		}
		err := out.write(Envelope{Type: TypeOutput, Data: pending.String()})
		pending.Reset()
		lines = 0
		return err == nil
	}

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				flush()
				_ = out.write(Envelope{Type: TypeError, Data: "Disconnected from the game server."})
				return
			}
			pending.Write(chunk)
			lines += bytes.Count(chunk, []byte("\n"))
			if lines >= b.opts.FlushMaxLines {
				if !flush() {
					return
				}
			}
		case <-ticker.C:
			if !flush() {
				return
			}
		case <-ctx.Done():
			flush()
			return
		}
	}
}

// pumpInput forwards client frames to the Telnet connection. Returns when
// the websocket closes or the upstream write fails.
func (b *Bridge) pumpInput(ctx context.Context, ws *websocket.Conn, out *wsWriter, tcp net.Conn) {
	for {
		var env Envelope
		if err := ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if env.Type != TypeInput {
			_ = out.write(Envelope{Type: TypeError, Data: fmt.Sprintf("unsupported frame type %q", env.Type)})
			continue
		}
		if _, err := tcp.Write([]byte(env.Data + "\r\n")); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// wsWriter serializes frames onto one websocket connection. Gorilla permits
// a single concurrent writer, and both pumps emit frames.
type wsWriter struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (w *wsWriter) write(env Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.ws.WriteJSON(env)
}
