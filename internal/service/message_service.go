package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go-pinboard/internal/events"
	"go-pinboard/internal/model"
	"go-pinboard/internal/repository"
	"go-pinboard/internal/storage"
	"go-pinboard/pkg/config"
	"go-pinboard/pkg/logger"

	"go.uber.org/zap"
)

const mb = 1024 * 1024

// MessageLimits 消息内容和附件的限制
type MessageLimits struct {
	MaxContentLength int
	MaxVideoSize     int64
	MaxImageSize     int64 // 0 表示不限制
}

func DefaultMessageLimits() MessageLimits {
	return MessageLimits{
		MaxContentLength: 2000,
		MaxVideoSize:     20 * mb,
	}
}

func MessageLimitsFromConfig(cfg config.MessagesConfig) MessageLimits {
	limits := DefaultMessageLimits()
	if cfg.MaxContentLength > 0 {
		limits.MaxContentLength = cfg.MaxContentLength
	}
	if cfg.MaxVideoSize > 0 {
		limits.MaxVideoSize = cfg.MaxVideoSize
	}
	if cfg.MaxImageSize > 0 {
		limits.MaxImageSize = cfg.MaxImageSize
	}
	return limits
}

type MessageDTO struct {
	ID             uint      `json:"id"`
	SenderID       uint      `json:"senderId"`
	RecipientID    uint      `json:"recipientId"`
	Content        *string   `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	IsRead         bool      `json:"isRead"`
	AttachmentURL  *string   `json:"attachmentUrl"`
	AttachmentType *string   `json:"attachmentType"`
}

// ConversationPreview 对话列表中的一项, 每次请求时计算, 不落库
type ConversationPreview struct {
	UserID        uint       `json:"userId"`
	Username      string     `json:"username"`
	AvatarURL     *string    `json:"avatarUrl"`
	LastMessage   *string    `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	UnreadCount   int64      `json:"unreadCount"`
}

type SendMessageRequest struct {
	RecipientID uint   `json:"recipientId"`
	Content     string `json:"content"`
}

// Attachment 上传的单个文件
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type AttachmentMessageRequest struct {
	RecipientID uint        `form:"recipientId"`
	Content     string      `form:"content"`
	File        *Attachment `form:"-"`
}

type MessageService struct {
	messageRepo *repository.MessageRepository
	userRepo    *repository.UserRepository
	store       storage.BlobStore
	publisher   events.Publisher
	limits      MessageLimits
}

func NewMessageService(
	messageRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	store storage.BlobStore,
	publisher events.Publisher,
	limits MessageLimits,
) *MessageService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		store:       store,
		publisher:   publisher,
		limits:      limits,
	}
}

func toMessageDTO(m *model.Message) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		IsRead:         m.IsRead,
		AttachmentURL:  m.AttachmentURL,
		AttachmentType: m.AttachmentType,
	}
}

func internalError(op string, userID uint, err error) error {
	logger.L.Error("Storage failure", zap.String("operation", op), zap.Uint("userID", userID), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// formatSize 以 MB 显示字节数, 不足整数时保留小数
func formatSize(n int64) string {
	return strconv.FormatFloat(float64(n)/mb, 'f', -1, 64) + "MB"
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ListDialogs 返回 userID 的对话列表, 最近有消息的在前。
// 对方账号已经不存在的对话直接跳过。
func (s *MessageService) ListDialogs(ctx context.Context, userID uint) ([]ConversationPreview, error) {
	latest, err := s.messageRepo.FindLatestPerPartner(ctx, userID)
	if err != nil {
		return nil, internalError("list dialogs", userID, err)
	}
	dialogs := make([]ConversationPreview, 0, len(latest))
	if len(latest) == 0 {
		return dialogs, nil
	}

	unread, err := s.messageRepo.CountUnreadByPartner(ctx, userID)
	if err != nil {
		return nil, internalError("list dialogs", userID, err)
	}

	partnerIDs := make([]uint, 0, len(latest))
	for i := range latest {
		partnerIDs = append(partnerIDs, latest[i].Partner(userID))
	}
	partners, err := s.userRepo.FindByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, internalError("list dialogs", userID, err)
	}

	for i := range latest {
		msg := &latest[i]
		partnerID := msg.Partner(userID)
		partner, ok := partners[partnerID]
		if !ok {
			logger.L.Debug("ListDialogs: partner no longer exists, skipping", zap.Uint("partnerID", partnerID))
			continue
		}

		preview := ConversationPreview{
			UserID:        partner.ID,
			Username:      partner.Username,
			LastMessage:   msg.Content,
			LastMessageAt: &msg.CreatedAt,
			UnreadCount:   unread[partnerID],
		}
		if partner.Avatar != "" {
			avatar := partner.Avatar
			preview.AvatarURL = &avatar
		}
		dialogs = append(dialogs, preview)
	}

	slices.SortStableFunc(dialogs, compareDialogs)
	return dialogs, nil
}

// 按最后消息时间倒序, 没有时间的排最后, 时间相同按对方ID倒序
func compareDialogs(a, b ConversationPreview) int {
	switch {
	case a.LastMessageAt == nil && b.LastMessageAt == nil:
	case a.LastMessageAt == nil:
		return 1
	case b.LastMessageAt == nil:
		return -1
	default:
		if c := b.LastMessageAt.Compare(*a.LastMessageAt); c != 0 {
			return c
		}
	}
	switch {
	case a.UserID > b.UserID:
		return -1
	case a.UserID < b.UserID:
		return 1
	}
	return 0
}

func (s *MessageService) ensureUserExists(ctx context.Context, op string, actorID, id uint) error {
	exists, err := s.userRepo.Exists(ctx, id)
	if err != nil {
		return internalError(op, actorID, err)
	}
	if !exists {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return nil
}

// OpenConversation 返回与 partnerID 的完整聊天记录 (时间升序),
// 同时把对方发来的未读消息标记为已读。
// 返回的 IsRead 是标记之前的值, 之后的查询才会看到已读。
func (s *MessageService) OpenConversation(ctx context.Context, userID, partnerID uint) ([]MessageDTO, error) {
	if partnerID == userID {
		return nil, fmt.Errorf("%w: cannot create conversation with yourself", ErrInvalidRequest)
	}
	if err := s.ensureUserExists(ctx, "open conversation", userID, partnerID); err != nil {
		return nil, err
	}

	messages, marked, err := s.messageRepo.OpenConversation(ctx, userID, partnerID)
	if err != nil {
		return nil, internalError("open conversation", userID, err)
	}
	if marked > 0 {
		logger.L.Debug("Messages marked as read",
			zap.Uint("readerID", userID),
			zap.Uint("partnerID", partnerID),
			zap.Int64("count", marked))
	}

	result := make([]MessageDTO, 0, len(messages))
	for i := range messages {
		result = append(result, toMessageDTO(&messages[i]))
	}
	return result, nil
}

func (s *MessageService) checkContentLength(content string) error {
	if utf8.RuneCountInString(content) > s.limits.MaxContentLength {
		return fmt.Errorf("%w: message content cannot exceed %d characters", ErrValidation, s.limits.MaxContentLength)
	}
	return nil
}

// SendMessage 发送纯文本消息
func (s *MessageService) SendMessage(ctx context.Context, senderID uint, req SendMessageRequest) (*MessageDTO, error) {
	if req.RecipientID == senderID {
		return nil, fmt.Errorf("%w: cannot send message to yourself", ErrInvalidRequest)
	}
	if err := s.ensureUserExists(ctx, "send message", senderID, req.RecipientID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrValidation)
	}
	if err := s.checkContentLength(content); err != nil {
		return nil, err
	}

	msg := &model.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Content:     &content,
		CreatedAt:   now(),
		IsRead:      false,
	}
	return s.persist(ctx, "send message", msg)
}

// SendMessageWithAttachment 发送带可选文本和单个附件 (图片或视频) 的消息
func (s *MessageService) SendMessageWithAttachment(ctx context.Context, senderID uint, req AttachmentMessageRequest) (*MessageDTO, error) {
	if req.RecipientID == senderID {
		return nil, fmt.Errorf("%w: cannot send message to yourself", ErrInvalidRequest)
	}
	if err := s.ensureUserExists(ctx, "send message with attachment", senderID, req.RecipientID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	hasFile := req.File != nil && req.File.Size > 0
	if !hasFile && content == "" {
		return nil, fmt.Errorf("%w: message must contain text or file", ErrValidation)
	}
	if err := s.checkContentLength(content); err != nil {
		return nil, err
	}

	msg := &model.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		IsRead:      false,
	}
	if content != "" {
		msg.Content = &content
	}

	if hasFile {
		kind, err := s.classifyAttachment(req.File)
		if err != nil {
			return nil, err
		}

		contentType := strings.ToLower(req.File.ContentType)
		url, err := s.store.Store(ctx,
			io.LimitReader(req.File.Reader, req.File.Size),
			req.File.Size,
			contentType,
			storage.Extension(req.File.Filename, contentType),
		)
		if err != nil {
			return nil, internalError("store attachment", senderID, err)
		}
		msg.AttachmentURL = &url
		msg.AttachmentType = &kind
	}

	msg.CreatedAt = now()
	return s.persist(ctx, "send message with attachment", msg)
}

// 返回附件的粗分类 image / video, 同时检查大小
func (s *MessageService) classifyAttachment(file *Attachment) (string, error) {
	contentType := strings.ToLower(strings.TrimSpace(file.ContentType))

	switch {
	case strings.HasPrefix(contentType, "image/"):
		if s.limits.MaxImageSize > 0 && file.Size > s.limits.MaxImageSize {
			return "", fmt.Errorf("%w: image size cannot exceed %s", ErrValidation, formatSize(s.limits.MaxImageSize))
		}
		return model.AttachmentImage, nil
	case strings.HasPrefix(contentType, "video/"):
		if file.Size > s.limits.MaxVideoSize {
			return "", fmt.Errorf("%w: video size cannot exceed %s", ErrValidation, formatSize(s.limits.MaxVideoSize))
		}
		return model.AttachmentVideo, nil
	default:
		return "", fmt.Errorf("%w: only image or video files are allowed", ErrValidation)
	}
}

func (s *MessageService) persist(ctx context.Context, op string, msg *model.Message) (*MessageDTO, error) {
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, internalError(op, msg.SenderID, err)
	}
	logger.L.Debug("Message saved to DB", zap.Uint("messageID", msg.ID), zap.Uint("senderID", msg.SenderID))

	// 消息已经保存, 事件发布失败只记录日志
	if err := s.publisher.PublishMessageCreated(ctx, events.NewMessageCreated(msg)); err != nil {
		logger.L.Warn("Failed to publish message event", zap.Uint("messageID", msg.ID), zap.Error(err))
	}

	dto := toMessageDTO(msg)
	return &dto, nil
}
