package controller

import (
	"strconv"
	"time"

	"echoloom-api/core/constants"
	"echoloom-api/core/controller"
	"echoloom-api/core/errors"
	"echoloom-api/core/utils"
	"echoloom-api/modules/chat/dto"
	"echoloom-api/modules/chat/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ChatController handles chat HTTP requests
type ChatController struct {
	controller.BaseController
	ChatService service.ChatServiceInterface
}

func NewChatController(svc service.ChatServiceInterface) *ChatController {
	return &ChatController{
		BaseController: controller.NewBaseController(),
		ChatService:    svc,
	}
}

func (c *ChatController) getUserIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	tokenData := ctx.Get(constants.ContextTokenData)
	if tokenData == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}

	claims, ok := tokenData.(*utils.TokenClaims)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid token data", nil)
	}

	return claims.UserID, nil
}

// SendMessage handles POST /meetings/:id/chat
// @Summary Send a chat message
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param request body dto.SendMessageRequest true "Message"
// @Success 201 {object} dto.ChatMessageResponse
// @Failure 403 {object} errors.AppError
// @Router /private/meetings/{id}/chat [post]
func (c *ChatController) SendMessage(ctx echo.Context) error {
	userID, err := c.getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	meetingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid meeting ID")
	}

	var req dto.SendMessageRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.ChatService.SendMessage(ctx.Request().Context(), userID, meetingID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.CreatedResponse(ctx, result, "Message sent")
}

// GetMessages handles GET /meetings/:id/chat
// @Summary Get chat history
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param id path string true "Meeting ID"
// @Param limit query int false "Page size"
// @Param before query string false "RFC3339 cursor, messages older than this"
// @Success 200 {array} dto.ChatMessageResponse
// @Failure 403 {object} errors.AppError
// @Router /private/meetings/{id}/chat [get]
func (c *ChatController) GetMessages(ctx echo.Context) error {
	userID, err := c.getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	meetingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid meeting ID")
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	var before *time.Time
	if raw := ctx.QueryParam("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.BadRequest(errors.ErrInvalidInput, "before must be RFC3339")
		}
		before = &parsed
	}

	result, appErr := c.ChatService.GetMessages(ctx.Request().Context(), userID, meetingID, limit, before)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// CreateAttachmentURL handles POST /meetings/:id/chat/attachments
// @Summary Request an attachment upload URL
// @Description Returns a presigned PUT URL for direct upload
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param request body dto.AttachmentUploadRequest true "File metadata"
// @Success 200 {object} dto.AttachmentUploadResponse
// @Failure 502 {object} errors.AppError
// @Router /private/meetings/{id}/chat/attachments [post]
func (c *ChatController) CreateAttachmentURL(ctx echo.Context) error {
	userID, err := c.getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	meetingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid meeting ID")
	}

	var req dto.AttachmentUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.ChatService.CreateAttachmentURL(ctx.Request().Context(), userID, meetingID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}
