package controller

import (
	"bufio"
	"context"
	"strings"

	"companion-be/internal/dto"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/pkg/serverutils"
	"companion-be/internal/service"
	"companion-be/pkg/council/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	RenameSession(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	GetSuggestions(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("sessions", c.CreateSession)
	h.Get("sessions", c.ListSessions)
	h.Get("sessions/:id", c.GetSession)
	h.Patch("sessions/:id", c.RenameSession)
	h.Post("sessions/:id/close", c.CloseSession)
	h.Delete("sessions/:id", c.DeleteSession)
	h.Post("sessions/:id/messages", c.SendMessage)
	h.Get("sessions/:id/suggestions", c.GetSuggestions)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateChatSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create chat session", res))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.ListSessions(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list chat sessions", res))
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := sessionParams(ctx)
	if err != nil {
		return err
	}

	var req dto.GetChatSessionRequest
	if err := ctx.QueryParser(&req); err != nil {
		return apperror.Validation("invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.GetSession(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chat session", res))
}

func (c *chatController) RenameSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := sessionParams(ctx)
	if err != nil {
		return err
	}

	var req dto.RenameChatSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.RenameSession(ctx.UserContext(), userId, sessionId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rename chat session", res))
}

func (c *chatController) CloseSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := sessionParams(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.CloseSession(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success close chat session", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := sessionParams(ctx)
	if err != nil {
		return err
	}

	if err := c.chatService.DeleteSession(ctx.UserContext(), userId, sessionId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete chat session", nil))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userId, sessionId, err := sessionParams(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if !wantsStream(ctx, &req) {
		res, err := c.chatService.SendMessage(ctx.UserContext(), userId, sessionId, &req, nil)
		if err != nil {
			return err
		}
		return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
	}

	// Errors known before the first byte still get a regular JSON response.
	if err := c.chatService.CheckSendable(ctx.UserContext(), userId, sessionId); err != nil {
		return err
	}

	stream.SetHeaders(ctx)
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The turn outlives the request context: a client disconnect does not cancel it.
		err := stream.Serve(w, func(sink stream.Sink) error {
			_, err := c.chatService.SendMessage(context.Background(), userId, sessionId, &req, sink)
			return err
		})
		if err != nil {
			c.logger.Warn("ChatController", "Streamed turn ended with error", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	})
	return nil
}

func (c *chatController) GetSuggestions(ctx *fiber.Ctx) error {
	userId, sessionId, err := sessionParams(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetSuggestions(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get suggestions", res))
}

func sessionParams(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperror.Validation("invalid session id")
	}
	return userId, sessionId, nil
}

func wantsStream(ctx *fiber.Ctx, req *dto.SendChatMessageRequest) bool {
	if req.Stream || ctx.QueryBool("stream") {
		return true
	}
	return strings.Contains(ctx.Get(fiber.HeaderAccept), "text/event-stream")
}
