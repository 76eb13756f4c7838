package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	v1 "scholarbridge/shared/contracts/realtime/v1"

	"github.com/coder/websocket"

	"scholarbridge/cmd/internal/metrics"
	"scholarbridge/cmd/security/eventsign"
)

const (
	wsDefaultSendQueueSize = 256
	wsMinSendQueueSize     = 32

	wsDefaultWriteTimeout = 5 * time.Second
	wsCloseGrace          = 1 * time.Second

	wsMaxPingFailures = 3

	// Security defaults:
	// - Origin is required by default.
	// - Only localhost is allowed by default (secure-by-default for dev).
	wsDefaultOriginRequired = true
	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"

	wsWelcomeMessage = "Welcome to ScholarBridge. Authenticate to receive events."

	pointsPerComment = 1
)

// WSGateway is the WebSocket entrypoint for ScholarBridge realtime.
//
// It enforces origin policy, per-address connection budgets, per-connection
// frame budgets, heartbeats, and idle reaping. Connections start
// unauthenticated; only an authenticate frame with a numeric userId moves them
// to the authenticated state, and only authenticated connections receive
// broadcasts.
type WSGateway struct {
	log     *slog.Logger
	dir     *Directory
	ledger  *AddrLedger
	signer  *eventsign.Signer
	awarder PointAwarder
	met     *metrics.Collector

	devInsecure    bool
	originRequired bool
	allowedOrigins []string

	// Derived for websocket.Accept origin checks.
	// Accept() authorizes same-host origins by default, but for cross-origin it requires OriginPatterns.
	originPatterns []string

	writeTimeout  time.Duration
	sendQueueSize int

	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration

	frameEvents int
	frameWin    time.Duration

	sweepEvery time.Duration
	idleCutoff time.Duration
	clock      func() time.Time
}

// NewWSGateway constructs a gateway with secure defaults.
// The signer must be non-nil; awarder and met may be nil for dev.
func NewWSGateway(log *slog.Logger, signer *eventsign.Signer, awarder PointAwarder, met *metrics.Collector) *WSGateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if awarder == nil {
		awarder = NoopPointAwarder{}
	}

	g := &WSGateway{
		log:     log,
		dir:     NewDirectory(),
		signer:  signer,
		awarder: awarder,
		met:     met,
		clock:   time.Now,
	}

	// NOTE: InsecureSkipVerify is a dev-only knob (TLS verification). It is not an origin policy.
	g.devInsecure = envBoolWS("SCB_WS_DEV_INSECURE", false)

	g.originRequired = envBoolWS("SCB_WS_ORIGIN_REQUIRED", wsDefaultOriginRequired)
	g.allowedOrigins = envCSVWS("SCB_WS_ALLOWED_ORIGINS", wsDefaultAllowedOrigins)

	// IMPORTANT:
	// websocket.Accept enforces its own origin policy:
	// - same-host is ok
	// - cross-origin requires OriginPatterns (host patterns)
	// We derive these patterns from allowed origins so the two layers agree.
	g.originPatterns = deriveOriginPatternsFromAllowedOrigins(g.allowedOrigins)

	g.writeTimeout = envDurationWS("SCB_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout)

	g.sendQueueSize = envIntWS("SCB_WS_SEND_QUEUE", wsDefaultSendQueueSize)
	if g.sendQueueSize < wsMinSendQueueSize {
		g.sendQueueSize = wsMinSendQueueSize
	}

	g.heartbeatEvery = envDurationWS("SCB_WS_HEARTBEAT_INTERVAL", heartbeatInterval)
	g.heartbeatTimeout = envDurationWS("SCB_WS_HEARTBEAT_TIMEOUT", heartbeatTimeout)

	g.frameEvents = envIntWS("SCB_WS_FRAME_LIMIT", frameLimit)
	g.frameWin = envDurationWS("SCB_WS_FRAME_WINDOW", frameWindow)

	connLimit := envIntWS("SCB_WS_CONN_LIMIT", connAttemptLimit)
	connWin := envDurationWS("SCB_WS_CONN_WINDOW", connAttemptWindow)
	g.ledger = NewAddrLedger(connLimit, connWin)

	g.sweepEvery = envDurationWS("SCB_WS_IDLE_SWEEP_INTERVAL", idleSweepInterval)
	g.idleCutoff = envDurationWS("SCB_WS_IDLE_TIMEOUT", idleTimeout)

	return g
}

// Len reports the number of live connections (for readiness and tests).
func (g *WSGateway) Len() int { return g.dir.Len() }

// ServeHTTP adapter so it can be mounted as http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades an HTTP request to a WebSocket session and runs the realtime loop.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		g.met.WSRefused("origin")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	addr := remoteHost(r.RemoteAddr)
	if !g.ledger.Allow(addr, g.clock()) {
		g.log.Info("ws.reject.conn_budget", "remote", addr)
		g.met.WSRefused("conn_budget")
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Authorize allowed origin hosts (e.g. localhost) for cross-origin requests.
		OriginPatterns: g.originPatterns,

		// Dev-only escape hatch.
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(maxFrameBytes)

	connID, err := NewConnectionID(g.clock())
	if err != nil {
		connID = NewRandomHex(10)
	}
	client := NewClient(connID, g.sendQueueSize)

	g.dir.Add(client)
	g.met.WSAccepted()
	g.log.Info("ws.accept", "connection_id", connID, "remote", addr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once

	// shutdown is idempotent. It does NOT close client.Send.
	// Broadcast safety: client.Send remains open and directory removal happens before client.Close.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.dir.Remove(connID)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	// The idle sweeper closes clients through the directory; this hop carries
	// that close to the transport so the peer gets a close frame and the read
	// loop unblocks instead of leaking with the socket.
	go func() {
		select {
		case <-ctx.Done():
		case <-client.Done():
			shutdown(websocket.StatusGoingAway, "idle timeout")
		}
	}()

	budget := NewFrameBudget(g.frameEvents, g.frameWin)

	if frame, err := json.Marshal(v1.NewWelcome(wsWelcomeMessage)); err == nil {
		if !g.enqueue(ctx, client, frame) {
			shutdown(websocket.StatusAbnormalClosure, "welcome failed")
			return
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case frame := <-client.Send:
				if err := writeFrame(ctx, conn, frame, g.writeTimeout); err != nil {
					g.log.Info("ws.write.fail", "connection_id", connID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					g.log.Info("ws.ping.fail", "connection_id", connID, "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

readLoop:
	for {
		raw, err := readFrame(ctx, conn)
		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
			default:
				g.log.Info("ws.read.fail", "connection_id", connID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			break readLoop
		}

		client.Touch()

		now := g.clock()
		if !budget.Allow(now) {
			g.met.FrameRejected("frame_budget")
			g.trySendError(ctx, client, "rate limit exceeded")
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			break readLoop
		}

		frame, err := v1.DecodeInbound(raw)
		if err != nil {
			// Malformed input answers with an error frame and no state change.
			g.met.FrameRejected("malformed")
			g.trySendError(ctx, client, clientErrMessage(err))
			continue readLoop
		}

		switch frame.Type {
		case v1.TypeAuthenticate:
			subjectID, err := frame.SubjectID()
			if err != nil {
				// The connection stays unauthenticated; the client may retry.
				g.met.FrameRejected("bad_authenticate")
				g.trySendError(ctx, client, clientErrMessage(err))
				continue readLoop
			}

			client.SetAuthenticated(subjectID)
			g.log.Info("ws.authenticated", "connection_id", connID, "subject_id", subjectID)

			ack, _ := json.Marshal(v1.NewAuthenticated())
			if !g.enqueue(ctx, client, ack) {
				shutdown(websocket.StatusAbnormalClosure, "backpressure: authenticated ack")
				break readLoop
			}

		default:
			if !client.Authenticated() {
				g.met.FrameRejected("unauthenticated")
				g.trySendError(ctx, client, "authentication required")
				continue readLoop
			}
			// Authenticated connections may send application frames; the
			// security core accepts them without further routing.
			g.log.Debug("ws.frame.ignored", "connection_id", connID, "type", frame.Type)
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
}

// ---- event publishing ----

// PublishComment signs a comment event and broadcasts it to every
// authenticated connection, then credits the author.
func (g *WSGateway) PublishComment(ctx context.Context, contentID, payloadID, subjectID int64, comment json.RawMessage) error {
	ts := g.clock().UnixMilli()
	sig := g.signer.Sign(v1.TypeNewComment, payloadID, subjectID, ts)

	frame, err := json.Marshal(v1.CommentEventFrame{
		Type:      v1.TypeNewComment,
		ContentID: contentID,
		Comment:   comment,
		Timestamp: ts,
		Signature: sig,
	})
	if err != nil {
		return fmt.Errorf("marshal comment event: %w", err)
	}

	n := g.dir.Broadcast(frame)
	g.met.Broadcast()
	g.log.Info("ws.broadcast.comment", "content_id", contentID, "payload_id", payloadID, "delivered", n)

	if err := g.awarder.AwardPoints(ctx, subjectID, pointsPerComment); err != nil {
		// Broadcast already happened; the award failure is logged, not returned.
		g.log.Error("ws.award.fail", "subject_id", subjectID, "err", err)
	}
	return nil
}

// ---- idle reaping ----

// Run drives the periodic idle sweep until ctx is canceled.
func (g *WSGateway) Run(ctx context.Context) {
	t := time.NewTicker(g.sweepEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			g.sweepIdle(g.clock())
		}
	}
}

// sweepIdle closes connections with no inbound frame for idleCutoff,
// regardless of authentication state, and prunes the address ledger.
func (g *WSGateway) sweepIdle(now time.Time) {
	cut := now.Add(-g.idleCutoff)
	for _, c := range g.dir.Snapshot() {
		if c.LastActivity().Before(cut) {
			g.log.Info("ws.sweep.idle", "connection_id", c.ConnectionID)
			g.dir.Remove(c.ConnectionID)
			c.Close()
		}
	}
	g.ledger.Sweep(now)
}

// ---- send helpers ----

func (g *WSGateway) trySendError(ctx context.Context, client *Client, msg string) {
	frame, _ := json.Marshal(v1.NewError(msg))
	_ = g.enqueue(ctx, client, frame)
}

func (g *WSGateway) enqueue(ctx context.Context, client *Client, frame []byte) bool {
	select {
	case <-ctx.Done():
		return false
	case <-client.Done():
		return false
	case client.Send <- frame:
		return true
	default:
		return false
	}
}

// clientErrMessage maps decode errors to client-safe messages.
func clientErrMessage(err error) string {
	switch {
	case errors.Is(err, v1.ErrMissingUserID):
		return v1.ErrMissingUserID.Error()
	case errors.Is(err, v1.ErrInvalidUserID):
		return v1.ErrInvalidUserID.Error()
	case errors.Is(err, v1.ErrMissingType):
		return v1.ErrMissingType.Error()
	default:
		return "invalid message format"
	}
}

// ---- frame IO ----

func readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return nil, fmt.Errorf("unsupported message type: %v", mt)
	}
	return data, nil
}

func writeFrame(parent context.Context, conn *websocket.Conn, frame []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}

// ---- origin policy ----

func (g *WSGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.originRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.allowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)

	for _, a := range g.allowedOrigins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" {
			// Strongly discouraged, but honored if explicitly configured.
			return nil
		}

		// Full origin match (scheme + host + optional port).
		if origin == a {
			return nil
		}

		// Host match fallback (ignores port/scheme).
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// URL form.
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		h := strings.TrimSpace(u.Host)
		if h == "" {
			return ""
		}
		if host, _, err := net.SplitHostPort(h); err == nil {
			return strings.ToLower(host)
		}
		return strings.ToLower(h)
	}

	// host[:port] form.
	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

func deriveOriginPatternsFromAllowedOrigins(allowed []string) []string {
	// websocket.Accept matches OriginPatterns against the origin host using filepath.Match patterns.
	// We keep this strict: only hosts extracted from allowlist are accepted.
	seen := make(map[string]struct{}, len(allowed))

	for _, a := range allowed {
		h := originHostOnly(a)
		if h == "" || h == "*" {
			continue
		}
		seen[h] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}

	// Stable in-file sort (avoid importing sort just for this).
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}

	return out
}

// remoteHost strips the port from a RemoteAddr so the connection budget is
// keyed by address, not by ephemeral port.
func remoteHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// ---- env helpers ----

func envBoolWS(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envIntWS(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDurationWS(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envCSVWS(key string, def string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
