package accounting

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"farmops/internal/usecase"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 売上の変更を会計トピックへ流す
type KafkaNotifier struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaNotifier(brokers []string, topic string, timeout time.Duration) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaNotifier(w, timeout)
}

func newKafkaNotifier(w messageWriter, timeout time.Duration) *KafkaNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaNotifier{writer: w, timeout: timeout}
}

func (n *KafkaNotifier) NotifySale(ctx context.Context, s usecase.SaleNotification) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	// 同じ売上は同じパーティションへ
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(s.SaleID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(s.Action)},
		},
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
