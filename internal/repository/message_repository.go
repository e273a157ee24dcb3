package repository

import (
	"context"

	"go-pinboard/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// 会话中每个对方发来的未读数
type partnerUnread struct {
	PartnerID   uint
	UnreadCount int64
}

// 两个用户之间的所有消息 (双向)
func conversationScope(userID, partnerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))",
			userID, partnerID, partnerID, userID,
		)
	}
}

// 保存新消息
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

// 获取两个用户之间的完整聊天记录, 按时间升序
func (r *MessageRepository) FindConversation(ctx context.Context, userID, partnerID uint) ([]model.Message, error) {
	return findConversation(r.db.WithContext(ctx), userID, partnerID)
}

func findConversation(db *gorm.DB, userID, partnerID uint) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	err := db.Scopes(conversationScope(userID, partnerID)).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// 把 partnerID 发给 readerID 的未读消息全部标记为已读, 返回修改的行数
func (r *MessageRepository) MarkConversationRead(ctx context.Context, readerID, partnerID uint) (int64, error) {
	return markConversationRead(r.db.WithContext(ctx), readerID, partnerID)
}

func markConversationRead(db *gorm.DB, readerID, partnerID uint) (int64, error) {
	res := db.Model(&model.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", partnerID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// OpenConversation 在同一个事务里读取聊天记录并把对方发来的消息标记为已读。
// 返回的消息保留标记之前的 IsRead, 调用方可以看到哪些消息刚刚被读。
func (r *MessageRepository) OpenConversation(ctx context.Context, userID, partnerID uint) ([]model.Message, int64, error) {
	var (
		messages []model.Message
		marked   int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if messages, err = findConversation(tx, userID, partnerID); err != nil {
			return err
		}
		marked, err = markConversationRead(tx, userID, partnerID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return messages, marked, nil
}

// FindLatestPerPartner 返回 userID 参与的每个会话中最新的一条消息。
// 时间相同的按 id 取最大的, 每个会话恰好一条。
func (r *MessageRepository) FindLatestPerPartner(ctx context.Context, userID uint) ([]model.Message, error) {
	newer := r.db.Table("messages AS n").
		Select("1").
		Where("((n.sender_id = m.sender_id AND n.recipient_id = m.recipient_id) OR (n.sender_id = m.recipient_id AND n.recipient_id = m.sender_id))").
		Where("(n.created_at > m.created_at OR (n.created_at = m.created_at AND n.id > m.id))")

	messages := make([]model.Message, 0)
	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.*").
		Where("(m.sender_id = ? OR m.recipient_id = ?)", userID, userID).
		Where("NOT EXISTS (?)", newer).
		Find(&messages).Error
	return messages, err
}

// CountUnreadByPartner 按发送方分组统计发给 userID 的未读消息
func (r *MessageRepository) CountUnreadByPartner(ctx context.Context, userID uint) (map[uint]int64, error) {
	var rows []partnerUnread
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("sender_id AS partner_id, COUNT(*) AS unread_count").
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.PartnerID] = row.UnreadCount
	}
	return counts, nil
}

// 删除用户发送或接收的所有消息, 在删除账号的事务中调用
func deleteMessagesOfUser(tx *gorm.DB, userID uint) error {
	return tx.Where("sender_id = ? OR recipient_id = ?", userID, userID).Delete(&model.Message{}).Error
}
