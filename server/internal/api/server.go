package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"prebunk/server/internal/config"
	"prebunk/server/internal/content"
	"prebunk/server/internal/gateway"
	"prebunk/server/internal/i18n"
	"prebunk/server/internal/model"
	"prebunk/server/internal/onboarding"
	"prebunk/server/internal/orchestrator"
	"prebunk/server/internal/session"
)

// Server HTTP/WebSocket 接入层。
// 所有状态变更都转交编排器，这里只做参数校验与视图序列化。
type Server struct {
	config       *config.Config
	orchestrator *orchestrator.Orchestrator
	library      *content.Library
	bundle       *i18n.Bundle
	hub          *gateway.Hub
	origins      []string
	upgrader     websocket.Upgrader
}

func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator, library *content.Library, bundle *i18n.Bundle) *Server {
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		// 开发期默认放行本地 Next dev server；线上必须配置白名单。
		origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	s := &Server{
		config:       cfg,
		orchestrator: orch,
		library:      library,
		bundle:       bundle,
		hub:          gateway.NewHub(nil),
		origins:      origins,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.origins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	// 定时揭示产生的异步更新经这里推给所有已连接的客户端。
	orch.SetPublisher(s.publishConversation)
	return s
}

func (s *Server) Routes() http.Handler {
	// Gin 统一承载中间件与路由，便于扩展日志/鉴权/限流等能力。
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())

	engine.GET("/healthz", s.handleHealthz)

	engine.GET("/api/new-game", s.handleNewGameContent)
	engine.GET("/api/question/:id", s.handleQuestion)
	engine.GET("/api/messages/:locale", s.handleMessages)

	engine.POST("/api/onboarding/sessions", s.handleCreateConversation)
	engine.GET("/api/onboarding/sessions/:id", s.handleGetConversation)
	engine.POST("/api/onboarding/sessions/:id/events", s.handleConversationEvent)
	engine.GET("/api/onboarding/sessions/:id/timeline", s.handleConversationTimeline)
	engine.GET("/api/onboarding/sessions/:id/stream", s.handleConversationStream)

	engine.POST("/api/game/sessions", s.handleCreateGame)
	engine.GET("/api/game/sessions/:id", s.handleGetGame)
	engine.POST("/api/game/sessions/:id/answers", s.handleSubmitAnswer)
	engine.POST("/api/game/sessions/:id/next", s.handleAdvanceQuestion)
	engine.POST("/api/game/sessions/:id/reset", s.handleResetGame)
	engine.DELETE("/api/game/sessions/:id", s.handleDeleteGame)
	engine.GET("/api/game/sessions/:id/stream", s.handleGameStream)

	return engine
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     s.origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// handleHealthz 返回服务健康状态。
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleNewGameContent 返回一局新游戏的内容：题目顺序表与全量题目。
func (s *Server) handleNewGameContent(c *gin.Context) {
	questions := s.library.Questions()
	order := make([]int, len(questions))
	for i := range order {
		order[i] = i
	}
	c.JSON(http.StatusOK, model.NewGameResponse{
		Order:     order,
		Questions: questions,
		Max:       len(questions),
	})
}

// handleQuestion 按下标（或 id）返回单条题目。
func (s *Server) handleQuestion(c *gin.Context) {
	raw := c.Param("id")
	if idx, err := strconv.Atoi(raw); err == nil {
		if q, ok := s.library.QuestionAt(idx); ok {
			c.JSON(http.StatusOK, q)
			return
		}
	}
	if q, ok := s.library.Question(raw); ok {
		c.JSON(http.StatusOK, q)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
}

// handleMessages 返回某个 locale 的翻译表，客户端一次性拉取。
func (s *Server) handleMessages(c *gin.Context) {
	c.JSON(http.StatusOK, s.bundle.Table(c.Param("locale")))
}

type createConversationRequest struct {
	SessionID string `json:"session_id"`
}

// handleCreateConversation 创建（或按 session_id 恢复）引导会话。
func (s *Server) handleCreateConversation(c *gin.Context) {
	var req createConversationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	view, err := s.orchestrator.CreateConversation(c.Request.Context(), req.SessionID)
	if err != nil {
		log.Printf("[API] create conversation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create conversation failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleGetConversation 返回会话的派生状态。
func (s *Server) handleGetConversation(c *gin.Context) {
	view, err := s.orchestrator.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderSessionError(c, err, "load conversation failed")
		return
	}
	c.JSON(http.StatusOK, view)
}

type conversationEventRequest struct {
	Type       string `json:"type"`
	OptionText string `json:"option_text"`
}

// handleConversationEvent 接收用户的选项事件。
// 非法/过期事件由状态机静默吸收，响应里是未变化的视图。
func (s *Server) handleConversationEvent(c *gin.Context) {
	var req conversationEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type required"})
		return
	}

	view, err := s.orchestrator.DispatchOption(c.Request.Context(), c.Param("id"), onboarding.OptionEvent{
		Type:       onboarding.EventType(req.Type),
		OptionText: req.OptionText,
	})
	if err != nil {
		s.renderSessionError(c, err, "handle event failed")
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleConversationTimeline 返回会话的事件日志（回放/验收用）。
func (s *Server) handleConversationTimeline(c *gin.Context) {
	events, err := s.orchestrator.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load timeline failed"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// handleConversationStream 升级 WebSocket 并注册到推送中心。
// typing 揭示与自动完成都会沿这条连接推给客户端。
func (s *Server) handleConversationStream(c *gin.Context) {
	sessionID := c.Param("id")

	if _, err := s.orchestrator.GetConversation(c.Request.Context(), sessionID); err != nil {
		s.renderSessionError(c, err, "load conversation failed")
		return
	}
	s.serveStream(c, sessionID, func(gw *gateway.Gateway) {
		// 先推一帧当前状态，客户端不需要再发起一次 GET。
		if view, err := s.orchestrator.GetConversation(context.Background(), sessionID); err == nil {
			_ = gw.Send(conversationMessage("snapshot", view))
		}
	})
}

// handleGameStream 游戏会话的推送通道：作答结算沿这条连接广播，
// 多标签页（或旁观端）保持同一份分数。
func (s *Server) handleGameStream(c *gin.Context) {
	sessionID := c.Param("id")

	if _, err := s.orchestrator.GetGame(c.Request.Context(), sessionID); err != nil {
		s.renderSessionError(c, err, "load game failed")
		return
	}
	s.serveStream(c, sessionID, nil)
}

func (s *Server) serveStream(c *gin.Context, sessionID string, onOpen func(*gateway.Gateway)) {
	clientConn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[API] upgrade websocket for %s: %v", sessionID, err)
		return
	}

	gw := gateway.NewGateway(sessionID, clientConn, gateway.Config{
		ReadTimeout:  s.config.Gateway.ReadTimeout,
		WriteTimeout: s.config.Gateway.WriteTimeout,
		PingInterval: s.config.Gateway.PingInterval,
	}, s.handleGatewayEvent, nil)

	s.hub.Register(gw)
	defer func() {
		s.hub.Unregister(gw)
		gw.Close()
	}()

	gw.Start()
	if onOpen != nil {
		onOpen(gw)
	}

	<-gw.Done()
}

// handleGatewayEvent 网关入站事件：选项点击走编排器。
func (s *Server) handleGatewayEvent(ctx context.Context, sessionID string, msg *gateway.ClientMessage) error {
	switch msg.Type {
	case gateway.EventTypeOptionSelect:
		_, err := s.orchestrator.DispatchOption(ctx, sessionID, onboarding.OptionEvent{
			Type:       onboarding.EventType(msg.Option),
			OptionText: msg.OptionText,
		})
		return err
	default:
		log.Printf("[API] unhandled gateway event type: %s", msg.Type)
		return nil
	}
}

// publishConversation 编排器的更新回调 → 网关推送。
func (s *Server) publishConversation(sessionID string, u onboarding.Update) {
	s.hub.Publish(sessionID, gateway.ServerMessage{
		Type:        gateway.EventTypeConversation,
		Kind:        string(u.Kind),
		State:       string(u.State),
		Messages:    u.Context.Messages,
		Typing:      u.Context.Typing,
		Options:     onboarding.OptionsFor(u.State),
		IsCompleted: u.State == onboarding.StateCompleted,
	})
}

func conversationMessage(kind string, view orchestrator.ConversationView) gateway.ServerMessage {
	return gateway.ServerMessage{
		Type:        gateway.EventTypeConversation,
		Kind:        kind,
		State:       view.State,
		Messages:    view.Messages,
		Typing:      view.Typing,
		Options:     view.CurrentOptions,
		IsCompleted: view.IsCompleted,
	}
}

// handleCreateGame 创建一局新游戏。
func (s *Server) handleCreateGame(c *gin.Context) {
	view, err := s.orchestrator.CreateGame(c.Request.Context())
	if err != nil {
		log.Printf("[API] create game failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create game failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleGetGame 返回一局游戏的派生状态。
func (s *Server) handleGetGame(c *gin.Context) {
	view, err := s.orchestrator.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderSessionError(c, err, "load game failed")
		return
	}
	c.JSON(http.StatusOK, view)
}

type submitAnswerRequest struct {
	QuestionID string       `json:"question_id"`
	Answer     model.Answer `json:"answer"`
}

type submitAnswerResponse struct {
	orchestrator.AnswerResult
	// Why 按 ?locale= 解析后的解释文案，方便不做客户端翻译的调用方。
	Why string `json:"why,omitempty"`
}

// handleSubmitAnswer 记录一次作答并返回结算结果。
func (s *Server) handleSubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.QuestionID == "" || !req.Answer.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question_id and answer (like|dislike) required"})
		return
	}

	result, err := s.orchestrator.SubmitAnswer(c.Request.Context(), c.Param("id"), req.QuestionID, req.Answer)
	if err != nil {
		s.renderSessionError(c, err, "submit answer failed")
		return
	}

	if result.Accepted {
		s.hub.Publish(c.Param("id"), gateway.ServerMessage{
			Type: gateway.EventTypeAnswerResult,
			Answer: &gateway.AnswerResult{
				QuestionID:  req.QuestionID,
				Accepted:    result.Accepted,
				Correct:     result.Correct,
				Answer:      result.Answer,
				Credibility: result.Credibility,
				Points:      result.Points,
			},
		})
	}

	resp := submitAnswerResponse{AnswerResult: result}
	if result.WhyKey != "" {
		locale := c.DefaultQuery("locale", s.config.I18N.DefaultLocale)
		resp.Why = s.bundle.T(locale, result.WhyKey)
	}
	c.JSON(http.StatusOK, resp)
}

// handleAdvanceQuestion 当前题已答时前进到下一题。
func (s *Server) handleAdvanceQuestion(c *gin.Context) {
	view, err := s.orchestrator.AdvanceQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderSessionError(c, err, "advance question failed")
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleResetGame 重开一局：答案清空、回到第一题、分数回默认。
func (s *Server) handleResetGame(c *gin.Context) {
	view, err := s.orchestrator.ResetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderSessionError(c, err, "reset game failed")
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleDeleteGame 丢弃一局游戏及其持久化快照。
func (s *Server) handleDeleteGame(c *gin.Context) {
	if err := s.orchestrator.DeleteGame(c.Request.Context(), c.Param("id")); err != nil {
		s.renderSessionError(c, err, "delete game failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) renderSessionError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	log.Printf("[API] %s: %v", fallback, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
