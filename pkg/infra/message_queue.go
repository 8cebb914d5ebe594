package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/luckypool/lottery-engine/pkg/common/logger"
)

var (
	ErrPermanent = errors.New("permanent messaging error")
	MaxMsgSize   = 10 * 1024 // 10KB
)

type MessageQueue interface {
	Enqueue(topic string, message []byte, options *EnqueueOptions) error
	// handler shouldn't be a blocking call as it would trigger redelivery of
	// the message if a certain period of time passes without ack.
	Dequeue(topic string, handler func(message []byte) error) error
	Close()
}

type EnqueueOptions struct {
	IdempotentKey string
}

type msgQueue struct {
	consumerName    string
	js              jetstream.JetStream
	consumer        jetstream.Consumer
	consumerContext jetstream.ConsumeContext
}

type NATSMessageQueueManager struct {
	queueName string
	js        jetstream.JetStream
}

func NewNATSMessageQueueManager(queueName string, subjectWildcards []string, nc *nats.Conn) (*NATSMessageQueueManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx := context.Background()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        queueName,
		Description: "Stream for " + queueName,
		Subjects:    subjectWildcards,
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      2 * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("create jetstream stream %s: %w", queueName, err)
	}

	return &NATSMessageQueueManager{
		queueName: queueName,
		js:        js,
	}, nil
}

func (m *NATSMessageQueueManager) NewMessageQueue(consumerName string) (MessageQueue, error) {
	cfg := jetstream.ConsumerConfig{
		Name:           consumerName,
		Durable:        consumerName,
		MaxAckPending:  4,
		FilterSubjects: []string{fmt.Sprintf("%s.%s.*", m.queueName, consumerName)},
		MaxDeliver:     3,
	}

	consumer, err := m.js.CreateOrUpdateConsumer(context.Background(), m.queueName, cfg)
	if err != nil {
		return nil, fmt.Errorf("create jetstream consumer %s: %w", consumerName, err)
	}

	return &msgQueue{
		consumerName: consumerName,
		js:           m.js,
		consumer:     consumer,
	}, nil
}

func (mq *msgQueue) Enqueue(topic string, message []byte, options *EnqueueOptions) error {
	header := nats.Header{}
	if options != nil && options.IdempotentKey != "" {
		header.Add("Nats-Msg-Id", options.IdempotentKey)
	}

	_, err := mq.js.PublishMsg(context.Background(), &nats.Msg{
		Subject: topic,
		Data:    message,
		Header:  header,
	})
	if err != nil {
		return fmt.Errorf("enqueue message: %w", err)
	}
	return nil
}

func (mq *msgQueue) Dequeue(topic string, handler func(message []byte) error) error {
	c, err := mq.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Data()); err != nil {
			if errors.Is(err, ErrPermanent) {
				msg.Term()
				return
			}
			logger.Error("Error handling message", "subject", msg.Subject(), "err", err)
			msg.Nak()
			return
		}
		if err := msg.Ack(); err != nil {
			logger.Error("Error acknowledging message", "err", err)
		}
	})
	mq.consumerContext = c
	return err
}

func (mq *msgQueue) Close() {
	if mq.consumerContext != nil {
		mq.consumerContext.Stop()
	}
}
