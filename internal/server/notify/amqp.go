package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of *amqp.Channel used to send messages.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes Message values as persistent JSON messages to a
// single queue on the default exchange.
type AMQPNotifier struct {
	pub   Publisher
	queue string
	conn  *amqp.Connection
	ch    *amqp.Channel
	now   func() time.Time
}

// NewAMQPNotifier publishes through pub. Use DialAMQP for a real broker.
func NewAMQPNotifier(pub Publisher, queue string) *AMQPNotifier {
	return &AMQPNotifier{pub: pub, queue: queue, now: time.Now}
}

// DialAMQP connects to url and declares a durable queue.
func DialAMQP(url, queue string) (*AMQPNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("amqp queue is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	n := NewAMQPNotifier(ch, queue)
	n.conn = conn
	n.ch = ch
	return n, nil
}

func (n *AMQPNotifier) SendVerificationCode(ctx context.Context, identity *models.Identity, code string) error {
	return n.publish(ctx, newMessage(KindVerificationCode, identity, code))
}

func (n *AMQPNotifier) SendPasswordReset(ctx context.Context, identity *models.Identity, token string) error {
	return n.publish(ctx, newMessage(KindPasswordReset, identity, token))
}

func (n *AMQPNotifier) SendPasswordChanged(ctx context.Context, identity *models.Identity) error {
	return n.publish(ctx, newMessage(KindPasswordChanged, identity, ""))
}

func (n *AMQPNotifier) publish(ctx context.Context, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return n.pub.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    n.now(),
		Type:         string(m.Kind),
		Body:         body,
	})
}

// Close releases the broker connection opened by DialAMQP.
func (n *AMQPNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
