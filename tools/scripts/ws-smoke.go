// Package main provides a CI-friendly WebSocket smoke test for the
// ScholarBridge realtime gateway.
//
// It validates:
//   - handshake + welcome frame
//   - unauthenticated frames answered with an auth-required error
//   - authenticate with a missing/bad userId answered with a stable error
//   - authenticate -> authenticated ack
//   - the connection survives client errors (error frames do not close it)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	v1 "scholarbridge/shared/contracts/realtime/v1"
)

const maxReadBytes = 1 << 20 // 1MiB

type smokeClient struct {
	name string
	conn *websocket.Conn

	inbox chan json.RawMessage
	errCh chan error
}

type genericFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		userID  = flag.Int64("user", 1, "Numeric user id to authenticate as")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	c := mustConnect(root, "A", *wsURL, *origin, *timeout)
	defer closeWS(c.conn)

	if *verbose {
		fmt.Printf("connected: origin=%q\n", *origin)
	}

	// Any non-authenticate frame before auth must be refused, not dropped.
	mustWriteJSON(root, c.conn, map[string]any{"type": "subscribe"}, *timeout)
	mustAssertError(root, c, "authentication required", *timeout)

	// authenticate without a userId is a client error, not a disconnect.
	mustWriteJSON(root, c.conn, map[string]any{"type": v1.TypeAuthenticate}, *timeout)
	mustAssertError(root, c, "userId is required", *timeout)

	mustWriteJSON(root, c.conn, map[string]any{"type": v1.TypeAuthenticate, "userId": "abc"}, *timeout)
	mustAssertError(root, c, "userId must be numeric", *timeout)

	// The real thing.
	mustWriteJSON(root, c.conn, map[string]any{"type": v1.TypeAuthenticate, "userId": *userID}, *timeout)
	mustAssertAuthenticated(root, c, *timeout)

	fmt.Printf("OK: user_id=%d url=%s\n", *userID, *wsURL)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, wsURL, origin string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		conn:  conn,
		inbox: make(chan json.RawMessage, 64),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()

	welcome := c.mustReadFrame(parent, stepTimeout)
	if welcome.Type != v1.TypeWelcome {
		fatalf("expected welcome, got %q (%s)", welcome.Type, name)
	}
	if strings.TrimSpace(welcome.Message) == "" {
		fatalf("welcome missing message (%s)", name)
	}

	return c
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			select {
			case c.inbox <- data:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func (c *smokeClient) mustReadFrame(parent context.Context, stepTimeout time.Duration) genericFrame {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		fatalf("timeout waiting for frame (%s): %v", c.name, ctx.Err())
	case err := <-c.errCh:
		fatalf("connection error (%s): %v", c.name, err)
	case raw, ok := <-c.inbox:
		if !ok {
			fatalf("connection closed (%s)", c.name)
		}
		var f genericFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			fatalf("bad json from server (%s): %v", c.name, err)
		}
		return f
	}
	panic("unreachable")
}

func mustAssertError(parent context.Context, c *smokeClient, wantMsg string, stepTimeout time.Duration) {
	f := c.mustReadFrame(parent, stepTimeout)
	if f.Type != v1.TypeError {
		fatalf("expected error frame, got %q (%s)", f.Type, c.name)
	}
	if f.Error != wantMsg {
		fatalf("error message mismatch (%s): got=%q want=%q", c.name, f.Error, wantMsg)
	}
}

func mustAssertAuthenticated(parent context.Context, c *smokeClient, stepTimeout time.Duration) {
	f := c.mustReadFrame(parent, stepTimeout)
	if f.Type != v1.TypeAuthenticated {
		fatalf("expected authenticated ack, got %q (%s)", f.Type, c.name)
	}
	if !f.Success {
		fatalf("authenticated ack success=false (%s)", c.name)
	}
}

func mustWriteJSON(parent context.Context, conn *websocket.Conn, v any, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(v)
	if err != nil {
		fatalf("marshal frame: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
