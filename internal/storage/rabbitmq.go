package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/constants"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/types"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SessionEvent 会话生命周期事件的消息体
type SessionEvent struct {
	SessionID      string    `json:"session_id"`
	Status         string    `json:"status"` // "completed" 或 "failed"
	CurrentStep    string    `json:"current_step"`
	ATSScore       *int      `json:"ats_score,omitempty"`
	FinalATSScore  *int      `json:"final_ats_score,omitempty"`
	ATSImprovement *int      `json:"ats_improvement,omitempty"`
	Error          string    `json:"error,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RabbitMQ 提供消息队列功能。通道按需创建并复用，
// 发布操作由互斥锁保护。
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	exchangeMap map[string]bool // 记录已声明的exchange
	declareMu   sync.Mutex
	cfg         *config.RabbitMQConfig
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器 (%s): %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		cfg:         cfg,
	}
	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, chErr := conn.Channel()
			if chErr != nil {
				logger.Warn().Err(chErr).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	// 测试连接和通道
	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	logger.Info().Str("url", cfg.URL).Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Warn().Err(err).Msg("创建新RabbitMQ通道失败")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}

	r.declareMu.Lock()
	defer r.declareMu.Unlock()
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	err := ch.ExchangeDeclare(
		exchangeName, // exchange名称
		exchangeType, // exchange类型
		durable,      // 持久化
		false,        // 自动删除
		false,        // 内部专用
		false,        // 非阻塞
		nil,          // 参数
	)
	if err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}

	r.exchangeMap[exchangeName] = true
	return nil
}

// PublishJSON 发布JSON格式消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	err = ch.PublishWithContext(ctx,
		exchangeName,
		routingKey,
		r.cfg.PublishMandatory,
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: deliveryMode,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("发布消息失败 (exchange=%s, key=%s): %w", exchangeName, routingKey, err)
	}
	return nil
}

// SessionEventPublisher 把会话生命周期事件发布到RabbitMQ topic交换机。
// 实现 workflow.EventPublisher。
type SessionEventPublisher struct {
	mq       *RabbitMQ
	exchange string
}

// NewSessionEventPublisher 创建事件发布器并声明交换机
func NewSessionEventPublisher(mq *RabbitMQ, exchange string) (*SessionEventPublisher, error) {
	if mq == nil {
		return nil, fmt.Errorf("RabbitMQ客户端不能为空")
	}
	if exchange == "" {
		exchange = constants.SessionEventsExchange
	}
	if err := mq.EnsureExchange(exchange, "topic", true); err != nil {
		return nil, fmt.Errorf("声明会话事件交换机失败: %w", err)
	}
	return &SessionEventPublisher{mq: mq, exchange: exchange}, nil
}

// PublishSessionCompleted 发布会话完成事件
func (p *SessionEventPublisher) PublishSessionCompleted(ctx context.Context, state *types.WorkflowState) error {
	event := eventFromState(state, "completed")
	return p.mq.PublishJSON(ctx, p.exchange, constants.SessionCompletedRoutingKey, event, true)
}

// PublishSessionFailed 发布会话失败事件
func (p *SessionEventPublisher) PublishSessionFailed(ctx context.Context, state *types.WorkflowState) error {
	event := eventFromState(state, "failed")
	return p.mq.PublishJSON(ctx, p.exchange, constants.SessionFailedRoutingKey, event, true)
}

// eventFromState 从终态快照提取事件字段
func eventFromState(state *types.WorkflowState, status string) *SessionEvent {
	return &SessionEvent{
		SessionID:      state.SessionID,
		Status:         status,
		CurrentStep:    string(state.CurrentStep),
		ATSScore:       state.ATSComplianceScore,
		FinalATSScore:  state.FinalATSScore,
		ATSImprovement: state.ATSImprovement,
		Error:          state.Error,
		OccurredAt:     time.Now(),
	}
}
