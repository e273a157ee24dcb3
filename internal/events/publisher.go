// Package events 把消息相关事件发布到外部消息系统, 供通知等服务消费。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go-pinboard/internal/model"
	"go-pinboard/pkg/config"
	"go-pinboard/pkg/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const TypeMessageCreated = "message_created"

// MessageCreated 新消息事件的负载
type MessageCreated struct {
	MessageID      uint      `json:"message_id"`
	SenderID       uint      `json:"sender_id"`
	RecipientID    uint      `json:"recipient_id"`
	HasContent     bool      `json:"has_content"`
	AttachmentType string    `json:"attachment_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewMessageCreated(m *model.Message) MessageCreated {
	ev := MessageCreated{
		MessageID:   m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		HasContent:  m.Content != nil && *m.Content != "",
		CreatedAt:   m.CreatedAt,
	}
	if m.AttachmentType != nil {
		ev.AttachmentType = *m.AttachmentType
	}
	return ev
}

type Publisher interface {
	PublishMessageCreated(ctx context.Context, ev MessageCreated) error
	Close() error
}

// NopPublisher 不发布任何事件
type NopPublisher struct{}

func (NopPublisher) PublishMessageCreated(context.Context, MessageCreated) error { return nil }
func (NopPublisher) Close() error                                                { return nil }

// KafkaPublisher 使用同步生产者, 以接收者ID为 key 保证同一用户的事件有序
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3
	kConfig.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.TopicPrefix), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topicPrefix: topicPrefix}
}

// 构建Kafka主题名称
func (p *KafkaPublisher) topic(eventType string) string {
	return fmt.Sprintf("%s_%s", p.topicPrefix, eventType)
}

func (p *KafkaPublisher) PublishMessageCreated(ctx context.Context, ev MessageCreated) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic(TypeMessageCreated),
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(ev.RecipientID), 10)),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send event to Kafka: %w", err)
	}

	logger.L.Debug("Event sent to Kafka",
		zap.String("topic", msg.Topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Uint("messageID", ev.MessageID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NewPublisher 根据配置创建发布者
func NewPublisher(cfg config.MessagingConfig) (Publisher, error) {
	logger.L.Info("Creating event publisher", zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case "none", "":
		return NopPublisher{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported messaging provider: %s", cfg.Provider)
	}
}
