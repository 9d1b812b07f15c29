package rabbitmq

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/config"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ScheduleChangeListener слушает события изменения расписаний и отпусков
// врачей и инвалидирует кэш шаблонов доступности. Записи на прием шаблон
// не меняют, поэтому их события здесь не нужны.
type ScheduleChangeListener struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	cachePort out.CachePort
	cfg       *config.Config
	logger    out.LoggerPort
}

type ScheduleChangeMessage struct {
	DoctorID string `json:"doctorId"`
}

func NewScheduleChangeListener(cachePort out.CachePort, cfg *config.Config, logger out.LoggerPort) (*ScheduleChangeListener, error) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("rabbitmq.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, listener will not be started",
		})
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("rabbitmq.connect.failed", out.LogFields{
			"error": err.Error(),
			"url":   cfg.RabbitMQ.URL,
		})
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("rabbitmq.channel.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	return &ScheduleChangeListener{
		conn:      conn,
		channel:   channel,
		cachePort: cachePort,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

func (l *ScheduleChangeListener) Start(ctx context.Context) error {
	queue, err := l.channel.QueueDeclare(
		l.cfg.RabbitMQ.ScheduleQueue,
		true,  // durable
		true,  // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	err = l.channel.QueueBind(
		queue.Name,
		l.cfg.RabbitMQ.ScheduleBind,
		l.cfg.RabbitMQ.ScheduleExchange,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	msgs, err := l.channel.Consume(
		queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}

	go l.consumeLoop(ctx, msgs)

	l.logger.Info("schedule.queue.started", out.LogFields{
		"queue": l.cfg.RabbitMQ.ScheduleQueue,
	})

	return nil
}

func (l *ScheduleChangeListener) consumeLoop(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				// Канал закрыт брокером, дальнейшее чтение вернет только
				// нулевые доставки
				l.logger.Warn("schedule.queue.channel_closed", out.LogFields{
					"queue": l.cfg.RabbitMQ.ScheduleQueue,
				})
				return
			}
			if err := l.processMessage(ctx, msg); err != nil {
				msg.Nack(false, true) // requeue message
				continue
			}
			msg.Ack(false)
		}
	}
}

func (l *ScheduleChangeListener) processMessage(ctx context.Context, msg amqp.Delivery) error {
	var message ScheduleChangeMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		l.logger.Error("schedule.message.parse_failed", out.LogFields{
			"error":      err.Error(),
			"routingKey": msg.RoutingKey,
		})
		// Непарсибельное сообщение не ретраим
		return nil
	}

	doctorID, err := uuid.Parse(message.DoctorID)
	if err != nil {
		// Без doctorId не знаем, чей шаблон протух - сбрасываем все
		l.logger.Warn("schedule.message.no_doctor_id", out.LogFields{
			"routingKey": msg.RoutingKey,
		})
		l.cachePort.InvalidateAll(ctx)
		return nil
	}

	l.logger.Debug("schedule.message.invalidate", out.LogFields{
		"doctorId":   doctorID,
		"routingKey": msg.RoutingKey,
	})
	l.cachePort.InvalidateTemplate(ctx, doctorID)

	return nil
}

func (l *ScheduleChangeListener) Stop() error {
	if l == nil || l.channel == nil {
		return nil
	}

	if err := l.channel.Close(); err != nil {
		return err
	}

	return l.conn.Close()
}
