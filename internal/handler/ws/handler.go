package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/studyai/backend/internal/model/agent"
	"github.com/zhouzirui/studyai/backend/internal/service/relay"
	sessionsvc "github.com/zhouzirui/studyai/backend/internal/service/session"
	"github.com/zhouzirui/studyai/backend/pkg/utils"
)

const (
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	writeWait     = 10 * time.Second
	maxFrameBytes = 64 << 10
)

// Handler WebSocket 学习请求入口
type Handler struct {
	sessions     *sessionsvc.Manager
	relay        *relay.Relay
	agents       agent.Store
	defaultAgent string
	upgrader     websocket.Upgrader
	logger       zerolog.Logger
}

// New 创建WebSocket处理器。relay 为 nil 时所有连接返回 503。
func New(sessions *sessionsvc.Manager, rl *relay.Relay, agents agent.Store, defaultAgent string, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		sessions:     sessions,
		relay:        rl,
		agents:       agents,
		defaultAgent: defaultAgent,
		upgrader:     makeUpgrader(allowedOrigins),
		logger:       logger,
	}
}

// makeUpgrader creates a WebSocket upgrader with origin checking.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{user_id}", h.handleWebSocket)
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	if userID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if h.relay == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "study backend unavailable")
		return
	}

	agentID := strings.TrimSpace(r.URL.Query().Get("agent"))
	if agentID == "" {
		agentID = h.defaultAgent
	}
	if _, ok := h.agents.FindByID(agentID); !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown agent: "+agentID)
		return
	}

	sess, err := h.sessions.Open(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("open session failed")
		utils.RespondError(w, http.StatusServiceUnavailable, "could not open session")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.sessions.Close(r.Context(), sess.ID)
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go pingLoop(ctx, conn)

	if err := h.relay.Serve(ctx, conn, sess, agentID); err != nil {
		h.logger.Debug().Err(err).Str("session_id", sess.ID).Msg("relay ended with transport error")
	}
}

// pingLoop 定期发送ping消息。WriteControl 可与 WriteJSON 并发调用。
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
