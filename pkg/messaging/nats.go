// pkg/messaging/nats.go
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	// StreamName 筛选服务事件流
	StreamName = "SCREENER"

	SubjectScreenCompleted    = "screener.completed"
	SubjectCacheCleared       = "cache.cleared"
	SubjectDirectoryRefreshed = "directory.refreshed"
)

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// NopPublisher 未配置 NATS 时使用的空实现
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// Close 无操作
func (NopPublisher) Close() error { return nil }

// MessageHandler 通用消息处理函数类型
type MessageHandler func(data []byte) error

// NATSClient NATS JetStream客户端
type NATSClient struct {
	conn      *nats.Conn
	jetStream jetstream.JetStream
	natsURL   string
	ctx       context.Context
	cancel    context.CancelFunc
	consumers map[string]jetstream.ConsumeContext
	mu        sync.Mutex
	log       zerolog.Logger
}

// NewNATSClient 创建新的NATS客户端并确保事件流存在
func NewNATSClient(natsURL string, log zerolog.Logger) (*NATSClient, error) {
	log = log.With().Str("component", "nats").Logger()

	nc, err := nats.Connect(natsURL,
		nats.Name("stock-screener"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS连接断开")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS重新连接成功")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接NATS失败: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建JetStream失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &NATSClient{
		conn:      nc,
		jetStream: js,
		natsURL:   natsURL,
		ctx:       ctx,
		cancel:    cancel,
		consumers: make(map[string]jetstream.ConsumeContext),
		log:       log,
	}

	if err := client.setupStream(); err != nil {
		log.Warn().Err(err).Msg("设置Stream失败")
	}

	return client, nil
}

// StreamConfig 事件流配置
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{"screener.*", "cache.*", "directory.*"},
		Description: "筛选服务事件流",
		Retention:   jetstream.LimitsPolicy,
		MaxMsgs:     10000,
		MaxBytes:    64 * 1024 * 1024,
		MaxAge:      7 * 24 * time.Hour,
	}
}

// setupStream 创建或更新事件流
func (c *NATSClient) setupStream() error {
	cfg := StreamConfig()
	if _, err := c.jetStream.CreateOrUpdateStream(c.ctx, cfg); err != nil {
		return fmt.Errorf("创建/更新Stream %s 失败: %w", cfg.Name, err)
	}
	c.log.Info().Str("stream", cfg.Name).Msg("Stream 设置成功")
	return nil
}

// Encode 将事件编码为消息体
func Encode(data interface{}) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("序列化数据失败: %w", err)
		}
		return payload, nil
	}
}

// Publish 发布消息到指定主题
func (c *NATSClient) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := Encode(data)
	if err != nil {
		return err
	}

	if _, err := c.jetStream.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("发布消息到 %s 失败: %w", subject, err)
	}

	c.log.Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("发布消息")
	return nil
}

// Subscribe 以持久消费者订阅主题，处理成功的消息会被确认
func (c *NATSClient) Subscribe(consumerName, filterSubject string, handler MessageHandler) error {
	consumer, err := c.jetStream.CreateOrUpdateConsumer(c.ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		Description:   fmt.Sprintf("%s 消费者", consumerName),
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("创建消费者 %s 失败: %w", consumerName, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error().Interface("panic", r).Str("consumer", consumerName).Msg("消费者处理消息异常")
				_ = msg.Nak()
			}
		}()

		if err := handler(msg.Data()); err != nil {
			c.log.Warn().Err(err).Str("consumer", consumerName).Msg("处理消息失败")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("启动消费者 %s 失败: %w", consumerName, err)
	}

	c.mu.Lock()
	if old, ok := c.consumers[consumerName]; ok {
		old.Stop()
	}
	c.consumers[consumerName] = cc
	c.mu.Unlock()

	c.log.Info().Str("subject", filterSubject).Str("consumer", consumerName).Msg("已订阅")
	return nil
}

// IsConnected 检查连接状态
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close 停止所有消费者并关闭连接
func (c *NATSClient) Close() error {
	c.cancel()

	c.mu.Lock()
	for name, cc := range c.consumers {
		cc.Stop()
		delete(c.consumers, name)
	}
	c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		c.conn.Close()
		return fmt.Errorf("关闭NATS连接失败: %w", err)
	}
	c.log.Info().Msg("NATS连接已关闭")
	return nil
}
