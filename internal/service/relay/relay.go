// Package relay forwards student messages on a WebSocket connection to the
// study backend, one request at a time, and frames the replies as events.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/studyai/backend/internal/model/session"
	"github.com/zhouzirui/studyai/backend/internal/service/ai"
	sessionsvc "github.com/zhouzirui/studyai/backend/internal/service/session"
)

var (
	ErrMalformedFrame = errors.New("invalid message: expected {\"message\": string}")
	ErrQueueFull      = errors.New("too many pending messages, message dropped")
)

// Conn is the subset of *websocket.Conn the relay uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
}

// Generator produces the final reply text for one request.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

// Options configures a Relay.
type Options struct {
	// GenerationTimeout bounds a single backend call; zero means no limit.
	GenerationTimeout time.Duration
	InboundBuffer     int
	Logger            zerolog.Logger
}

// Relay runs the per-connection request/response loop.
type Relay struct {
	sessions *sessionsvc.Manager
	backend  Generator
	timeout  time.Duration
	buffer   int
	logger   zerolog.Logger
}

// New creates a relay bound to the session registry and backend.
func New(sessions *sessionsvc.Manager, backend Generator, opts Options) *Relay {
	buffer := opts.InboundBuffer
	if buffer <= 0 {
		buffer = 16
	}
	return &Relay{
		sessions: sessions,
		backend:  backend,
		timeout:  opts.GenerationTimeout,
		buffer:   buffer,
		logger:   opts.Logger,
	}
}

// lockedConn serializes writes from the serve loop and the reader.
type lockedConn struct {
	Conn
	mu sync.Mutex
}

func (c *lockedConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

type inboundFrame struct {
	kind int
	data []byte
}

type inboundPayload struct {
	Message *string `json:"message"`
}

// Serve confirms sess to the client and relays messages until the client
// disconnects or ctx is cancelled. The session is closed on return.
func (r *Relay) Serve(ctx context.Context, conn Conn, sess session.Session, agentID string) error {
	// Pending generations are cancelled before the session close hooks run.
	defer r.sessions.Close(context.Background(), sess.ID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := r.logger.With().
		Str("session_id", sess.ID).
		Str("user_id", sess.UserID).
		Str("agent", agentID).
		Logger()

	conn = &lockedConn{Conn: conn}
	if err := conn.WriteJSON(Connected(sess.ID)); err != nil {
		return fmt.Errorf("send connected: %w", err)
	}
	log.Info().Msg("session connected")

	frames := make(chan inboundFrame, r.buffer)
	readErr := make(chan error, 1)
	go readLoop(ctx, cancel, conn, frames, readErr, log)

	for {
		select {
		case <-ctx.Done():
			logDisconnect(log, readErr)
			return nil
		case frame := <-frames:
			if err := r.handleFrame(ctx, conn, sess, agentID, frame, log); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
	}
}

// readLoop keeps reading while a generation is pending so that a disconnect
// cancels ctx promptly. It is the only reader of conn and never blocks on a
// full queue: overflow frames are answered with an error event.
func readLoop(ctx context.Context, cancel context.CancelFunc, conn Conn, frames chan<- inboundFrame, readErr chan<- error, log zerolog.Logger) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			cancel()
			return
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case frames <- inboundFrame{kind: kind, data: data}:
		default:
			log.Warn().Int("queued", cap(frames)).Msg("inbound queue full, dropping frame")
			if err := conn.WriteJSON(Error(ErrQueueFull.Error())); err != nil {
				cancel()
				return
			}
		}
	}
}

func logDisconnect(log zerolog.Logger, readErr <-chan error) {
	select {
	case err := <-readErr:
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			log.Warn().Err(err).Msg("session disconnected unexpectedly")
			return
		}
		log.Info().Msg("session disconnected")
	default:
		log.Info().Msg("session stopped")
	}
}

func (r *Relay) handleFrame(ctx context.Context, conn Conn, sess session.Session, agentID string, frame inboundFrame, log zerolog.Logger) error {
	if ctx.Err() != nil {
		return nil
	}

	text, err := decodeInbound(frame)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(frame.data)).Msg("malformed frame")
		return conn.WriteJSON(Error(err.Error()))
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if err := conn.WriteJSON(Status(generatingStatus)); err != nil {
		return err
	}

	start := time.Now()
	reply, err := r.generate(ctx, ai.Request{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		AgentID:   agentID,
		Text:      text,
	})
	if ctx.Err() != nil {
		log.Debug().Msg("discarding backend result after disconnect")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("generation failed")
		return conn.WriteJSON(Error(fmt.Sprintf("An error occurred: %v", err)))
	}

	event := Reply(reply)
	log.Info().Str("type", event.Type).Int("length", len(reply)).Dur("elapsed", time.Since(start)).Msg("reply sent")
	return conn.WriteJSON(event)
}

type generateResult struct {
	text string
	err  error
}

// generate calls the backend and returns as soon as ctx ends, even when the
// backend ignores cancellation. A panicking backend is reported as an error.
func (r *Relay) generate(ctx context.Context, req ai.Request) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan generateResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- generateResult{err: fmt.Errorf("backend panic: %v", p)}
			}
		}()
		text, err := r.backend.Generate(ctx, req)
		done <- generateResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("generation timed out after %s", r.timeout)
		}
		return "", ctx.Err()
	}
}

func decodeInbound(frame inboundFrame) (string, error) {
	if frame.kind != websocket.TextMessage {
		return "", fmt.Errorf("%w: binary frames are not supported", ErrMalformedFrame)
	}

	var payload inboundPayload
	if err := json.Unmarshal(frame.data, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if payload.Message == nil {
		return "", fmt.Errorf("%w: missing message field", ErrMalformedFrame)
	}
	return *payload.Message, nil
}
