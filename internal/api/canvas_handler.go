package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/api/middleware"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/canvas"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/fonts"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

// CanvasHandler 提供画布快照与交互式编辑会话。
type CanvasHandler struct {
	repo      *database.CVRepository
	registry  style.Registry
	validator middleware.TokenValidator
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// NewCanvasHandler 构造画布处理器。
func NewCanvasHandler(
	repo *database.CVRepository,
	registry style.Registry,
	validator middleware.TokenValidator,
	logger *slog.Logger,
	allowedOrigins []string,
) *CanvasHandler {
	return &CanvasHandler{
		repo:      repo,
		registry:  registry,
		validator: validator,
		logger:    logger,
		upgrader:  newUpgrader(allowedOrigins),
	}
}

// newSurface 按模板与记录绑定一块 A4 画布。
// font.Face 不能跨 goroutine 共享，每块画布持有自己的字体缓存。
func (h *CanvasHandler) newSurface(ctx context.Context, doc *database.CVDocument) (*canvas.Surface, error) {
	rec, err := resume.Decode(doc.Content)
	if err != nil {
		return nil, err
	}
	t := style.Resolve(ctx, h.registry, doc.TemplateID)
	s := canvas.NewSurface(int(page.A4.Width), int(page.A4.Height), fonts.NewCache())
	s.Bind(t, rec)
	return s, nil
}

// Snapshot GET /v1/cv/:id/canvas.png
func (h *CanvasHandler) Snapshot(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.repo.GetForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NotFound(c, "cv not found")
			return
		}
		Internal(c, "failed to query cv")
		return
	}

	surface, err := h.newSurface(c.Request.Context(), doc)
	if err != nil {
		PipelineError(c, err, "")
		return
	}
	if err := surface.Redraw(); err != nil {
		middleware.LoggerFromContext(c).Error("canvas redraw failed", slog.String("cv_id", doc.ID), slog.Any("error", err))
		Internal(c, "failed to draw canvas")
		return
	}

	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		Internal(c, "failed to encode canvas")
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// canvasEvent 是客户端发往画布会话的消息。
type canvasEvent struct {
	Type    string         `json:"type"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
	Touches []canvas.Point `json:"touches"`
	Path    string         `json:"path"`
	Value   string         `json:"value"`
}

// canvasReply 是会话回给客户端的消息。
type canvasReply struct {
	Type     string                  `json:"type"`
	Fields   []canvas.DraggableField `json:"fields,omitempty"`
	Path     string                  `json:"path,omitempty"`
	Text     string                  `json:"text,omitempty"`
	Applied  *bool                   `json:"applied,omitempty"`
	Dragging bool                    `json:"dragging"`
	Error    string                  `json:"error,omitempty"`
}

// Session GET /v1/cv/:id/canvas/ws
// 首条消息必须是 {"type":"auth","token":"..."}，之后每条事件都在同一个 goroutine 中处理。
func (h *CanvasHandler) Session(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade canvas websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	cvID := c.Param("id")
	log := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("cv_id", cvID),
	)
	ctx := c.Request.Context()

	_, message, err := conn.ReadMessage()
	if err != nil {
		log.Info("canvas websocket closed before auth", slog.Any("error", err))
		return
	}
	userID, err := authenticate(conn, h.validator, message)
	if err != nil {
		log.Warn("canvas websocket authentication failed", slog.Any("error", err))
		return
	}

	doc, err := h.repo.GetForUser(ctx, cvID, userID)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "cv not found")
		log.Warn("canvas session rejected", slog.Any("error", err))
		return
	}

	surface, err := h.newSurface(ctx, doc)
	if err != nil {
		writeClose(conn, websocket.CloseUnsupportedData, "invalid cv content")
		log.Warn("canvas session rejected", slog.Any("error", err))
		return
	}

	session := &canvasSession{
		handler: h,
		doc:     doc,
		surface: surface,
		log:     log.With(slog.Uint64("user_id", uint64(userID))),
	}
	session.serve(ctx, conn)
}

type canvasSession struct {
	handler *CanvasHandler
	doc     *database.CVDocument
	surface *canvas.Surface
	log     *slog.Logger
	// selected 由 OnSelect 在 PointerDown 期间写入
	selected *canvasReply
}

func (s *canvasSession) serve(ctx context.Context, conn *websocket.Conn) {
	s.surface.OnSelect = func(path resume.FieldPath, text string) {
		s.selected = &canvasReply{Type: "select", Path: path.String(), Text: text}
	}
	if err := conn.WriteJSON(s.fieldsReply()); err != nil {
		return
	}
	s.log.Info("canvas session started")

	for {
		if ctx.Err() != nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.log.Info("canvas session closed", slog.Any("error", err))
			return
		}

		var ev canvasEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			if err := conn.WriteJSON(canvasReply{Type: "error", Error: "invalid event payload"}); err != nil {
				return
			}
			continue
		}

		for _, reply := range s.handle(ctx, ev) {
			if err := conn.WriteJSON(reply); err != nil {
				s.log.Info("canvas session write failed", slog.Any("error", err))
				return
			}
		}
	}
}

// handle 把一条事件交给画布，并返回需要回写的消息。
func (s *canvasSession) handle(ctx context.Context, ev canvasEvent) []canvasReply {
	switch ev.Type {
	case "pointerdown":
		s.selected = nil
		s.surface.PointerDown(ev.X, ev.Y)
		return s.afterPress()
	case "pointermove":
		if s.surface.PointerMove(ev.X, ev.Y) {
			return []canvasReply{s.fieldsReply()}
		}
		return nil
	case "pointerup":
		s.surface.PointerUp()
		return []canvasReply{s.fieldsReply()}
	case "pointerleave":
		s.surface.PointerLeave()
		return []canvasReply{s.fieldsReply()}
	case "touchstart":
		s.selected = nil
		s.surface.TouchStart(ev.Touches)
		return s.afterPress()
	case "touchmove":
		if s.surface.TouchMove(ev.Touches) {
			return []canvasReply{s.fieldsReply()}
		}
		return nil
	case "touchend":
		s.surface.TouchEnd()
		return []canvasReply{s.fieldsReply()}
	case "edit":
		return []canvasReply{s.edit(ctx, ev.Path, ev.Value)}
	}
	return []canvasReply{{Type: "error", Error: fmt.Sprintf("unknown event type %q", ev.Type)}}
}

func (s *canvasSession) afterPress() []canvasReply {
	replies := make([]canvasReply, 0, 2)
	if s.selected != nil {
		replies = append(replies, *s.selected)
	}
	return append(replies, s.fieldsReply())
}

// edit 将文本修改写回存储，然后重新绑定画布。
func (s *canvasSession) edit(ctx context.Context, path, value string) canvasReply {
	editCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	applied, err := applyFieldEdit(editCtx, s.handler.repo, s.doc, path, value, s.log)
	if err != nil {
		s.log.Error("canvas edit failed", slog.String("path", path), slog.Any("error", err))
		return canvasReply{Type: "error", Path: path, Error: "failed to apply field edit"}
	}

	reply := canvasReply{Type: "edit", Path: path, Applied: &applied}
	if !applied {
		return reply
	}

	rec, err := resume.Decode(s.doc.Content)
	if err != nil {
		reply.Error = "failed to reload record"
		return reply
	}
	s.surface.Bind(style.Resolve(ctx, s.handler.registry, s.doc.TemplateID), rec)
	reply.Fields = s.surface.Fields()
	return reply
}

func (s *canvasSession) fieldsReply() canvasReply {
	_, dragging := s.surface.Dragging()
	return canvasReply{Type: "fields", Fields: s.surface.Fields(), Dragging: dragging}
}
