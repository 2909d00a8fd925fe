// Package embed provides a client for the image embedding sidecar. The
// sidecar hosts the pretrained encoder; this client speaks a small JSON
// protocol over a WebSocket and turns frames into fixed-dimension vectors.
package embed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/resilience"
)

// DialTimeout bounds the initial sidecar handshake.
const DialTimeout = 10 * time.Second

// Message types exchanged with the sidecar.
type helloMessage struct {
	Type string `json:"type"`
}

type readyMessage struct {
	Type  string `json:"type"`
	Model string `json:"model"`
	Dim   int    `json:"dim"`
}

type embedRequest struct {
	Type     string `json:"type"`
	ImagePNG []byte `json:"image_png"`
}

type embedResponse struct {
	Type   string    `json:"type"`
	Vector []float32 `json:"vector"`
	Error  string    `json:"error,omitempty"`
}

// Embedder turns an encoded image into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, imagePNG []byte) ([]float32, error)
	Close() error
}

// Client is a WebSocket client for the embedding sidecar. Requests are
// serialized; one in-flight embed at a time matches the orchestrator's
// one-tick-at-a-time cadence.
type Client struct {
	addr    string
	model   string
	dim     int
	breaker *resilience.Breaker
	retry   resilience.RetryConfig

	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial connects to the sidecar and performs the ready handshake. A failure
// here means the model is missing or incompatible and must abort session
// start, so no retries beyond the dial timeout.
func Dial(ctx context.Context, addr string) (*Client, error) {
	c := &Client{
		addr:    addr,
		breaker: resilience.NewBreaker(resilience.DefaultConfig()),
		retry:   resilience.DefaultRetryConfig(),
	}

	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	c.mu.Lock()
	err := c.connectLocked(dialCtx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	slog.Info("embedding sidecar ready", "addr", addr, "model", c.model, "dim", c.dim)
	return c, nil
}

// connectLocked dials and handshakes; callers hold c.mu.
func (c *Client) connectLocked(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, "ws://"+c.addr+"/embed", nil)
	if err != nil {
		return errors.Wrapf(err, errors.CodeEmbedUnavailable, "dial embedding sidecar %s", c.addr)
	}
	// Frames can be large; the default read limit is 32KiB.
	conn.SetReadLimit(16 << 20)

	if err := wsjson.Write(ctx, conn, helloMessage{Type: "hello"}); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake write failed")
		return errors.Wrap(err, errors.CodeEmbedUnavailable, "sidecar handshake write failed")
	}
	var ready readyMessage
	if err := wsjson.Read(ctx, conn, &ready); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake read failed")
		return errors.Wrap(err, errors.CodeEmbedUnavailable, "sidecar handshake read failed")
	}
	if ready.Type != "ready" || ready.Dim <= 0 {
		_ = conn.Close(websocket.StatusProtocolError, "bad handshake")
		return errors.Newf(errors.CodeEmbedUnavailable,
			"unexpected sidecar handshake: type=%q dim=%d", ready.Type, ready.Dim)
	}

	c.conn = conn
	c.model = ready.Model
	c.dim = ready.Dim
	return nil
}

// Dim returns the embedding dimension reported by the sidecar.
func (c *Client) Dim() int { return c.dim }

// Model returns the model name reported by the sidecar.
func (c *Client) Model() string { return c.model }

// Embed sends PNG bytes to the sidecar and returns the embedding vector.
// Transient transport failures are retried with a reconnect between
// attempts; the circuit breaker fails fast once the sidecar is clearly gone.
func (c *Client) Embed(ctx context.Context, imagePNG []byte) ([]float32, error) {
	var vector []float32
	err := resilience.Retry(ctx, c.retry, func() error {
		var attemptErr error
		vector, attemptErr = resilience.ExecuteWithResult(c.breaker, func() ([]float32, error) {
			return c.embedOnce(ctx, imagePNG)
		})
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

func (c *Client) embedOnce(ctx context.Context, imagePNG []byte) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	if err := wsjson.Write(ctx, c.conn, embedRequest{Type: "embed", ImagePNG: imagePNG}); err != nil {
		c.dropConnLocked()
		return nil, errors.Wrap(err, errors.CodeEmbedUnavailable, "embed request write failed")
	}
	var resp embedResponse
	if err := wsjson.Read(ctx, c.conn, &resp); err != nil {
		c.dropConnLocked()
		return nil, errors.Wrap(err, errors.CodeEmbedUnavailable, "embed response read failed")
	}
	if resp.Error != "" {
		return nil, errors.Newf(errors.CodeCompareFailed, "sidecar rejected frame: %s", resp.Error)
	}
	if len(resp.Vector) == 0 {
		return nil, errors.New(errors.CodeCompareFailed, "sidecar returned empty embedding")
	}
	return resp.Vector, nil
}

// dropConnLocked discards a broken connection so the next attempt redials.
func (c *Client) dropConnLocked() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusInternalError, "connection reset")
		c.conn = nil
	}
}

// Close shuts down the sidecar connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "session finished")
	c.conn = nil
	return err
}
