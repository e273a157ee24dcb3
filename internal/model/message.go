package model

import "time"

const (
	AttachmentImage = "image"
	AttachmentVideo = "video"
)

// Message 两个用户之间的一条私信。
// 创建后只有接收方打开对话时会修改 IsRead, 其它字段不再变化。
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SenderID       uint      `gorm:"not null;index:idx_messages_dialog,priority:1" json:"sender_id"`
	RecipientID    uint      `gorm:"not null;index:idx_messages_dialog,priority:2;index:idx_messages_unread,priority:1" json:"recipient_id"`
	Content        *string   `gorm:"type:varchar(2000)" json:"content"`
	AttachmentURL  *string   `gorm:"type:varchar(500)" json:"attachment_url"`
	AttachmentType *string   `gorm:"type:varchar(20)" json:"attachment_type"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_dialog,priority:3" json:"created_at"`
	IsRead         bool      `gorm:"not null;default:false;index:idx_messages_unread,priority:2" json:"is_read"`

	Sender    User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Recipient User `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
}

// Partner 返回相对 userID 的另一方
func (m *Message) Partner(userID uint) uint {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}
