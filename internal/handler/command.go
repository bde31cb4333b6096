package handler

import (
	"context"
	"net/http"

	"bangumi-calendar-service/internal/command"
	"bangumi-calendar-service/internal/middleware"
	"bangumi-calendar-service/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Dispatcher routes chat messages to commands
type Dispatcher interface {
	Dispatch(ctx context.Context, message string) (command.Result, bool)
	Commands() []model.CommandInfo
}

// CommandHandler is the webhook chat adapters post messages to
type CommandHandler struct {
	dispatcher Dispatcher
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(dispatcher Dispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher}
}

// HandleCommand runs the command matching a chat message
// POST /api/v1/command {"message": "今日番剧"}
func (h *CommandHandler) HandleCommand(c *gin.Context) {
	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "请求体无效：需要 message 字段",
		})
		return
	}

	ctx := c.Request.Context()
	if req.SessionID != "" {
		logger := zerolog.Ctx(ctx).With().Str("session_id", req.SessionID).Logger()
		ctx = logger.WithContext(ctx)
	}

	result, ok := h.dispatcher.Dispatch(ctx, req.Message)
	if !ok {
		c.JSON(http.StatusNotFound, model.APIResponse{
			Code:  404,
			Error: "未匹配到任何指令",
		})
		return
	}

	failed := result.Err != nil
	c.Set(middleware.ContextCommand, result.Command)
	c.Set(middleware.ContextCommandFailed, failed)
	observeCommand(result.Command, failed, result.Elapsed)

	zerolog.Ctx(ctx).Info().
		Str("command", result.Command).
		Str("reply_type", string(result.Reply.Type)).
		Bool("failed", failed).
		Dur("elapsed", result.Elapsed).
		Msg("📨 Command handled")

	// 失败信息已写入回复内容，仍按 200 返回给适配器
	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: result.Reply,
	})
}

// ListCommands lists registered commands
// GET /api/v1/commands
func (h *CommandHandler) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: h.dispatcher.Commands(),
	})
}
