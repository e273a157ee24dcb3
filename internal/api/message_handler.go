package api

import (
	"net/http"

	"go-pinboard/internal/service"
	"go-pinboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 处理私信相关的HTTP请求
type MessageHandler struct {
	messageService *service.MessageService
	maxUploadBytes int64
}

// maxUploadBytes 限制带附件请求的整个请求体, 0 表示不限制
func NewMessageHandler(messageService *service.MessageService, maxUploadBytes int64) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		maxUploadBytes: maxUploadBytes,
	}
}

// 获取对话列表
func (h *MessageHandler) ListDialogs(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	dialogs, err := h.messageService.ListDialogs(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dialogs)
}

// 打开与某个用户的对话, 同时把对方的消息标记为已读
func (h *MessageHandler) OpenConversation(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	partnerID, ok := getUintParam(c, "userId")
	if !ok {
		return
	}

	messages, err := h.messageService.OpenConversation(c.Request.Context(), userID, partnerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// 发送文本消息
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.L.Debug("Failed to bind SendMessage request", zap.Error(err))
		respondBadRequest(c, invalidBody)
		return
	}

	msg, err := h.messageService.SendMessage(c.Request.Context(), senderID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// 发送带附件的消息 (multipart/form-data: recipientId, content, file)
func (h *MessageHandler) SendMessageWithAttachment(c *gin.Context) {
	senderID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	limitBody(c, h.maxUploadBytes)

	var req service.AttachmentMessageRequest
	if !bindForm(c, &req, "send message with attachment") {
		return
	}

	// 文件是可选的
	file, closeFile, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer closeFile()
	req.File = file

	msg, err := h.messageService.SendMessageWithAttachment(c.Request.Context(), senderID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
