package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medibook/booking-slots-service/internal/config"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisherAdapter публикует события бронирования в topic exchange.
// Потребители (уведомления, напоминания, экспорт в календарь) подписываются
// на routing key вида appointment.created / appointment.cancelled.
type EventPublisherAdapter struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   out.LoggerPort
}

func NewEventPublisherAdapter(cfg *config.Config, logger out.LoggerPort) (*EventPublisherAdapter, error) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("rabbitmq.publisher.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, booking events will not be published",
		})
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("rabbitmq.publisher.connect_failed", out.LogFields{
			"error": err.Error(),
			"url":   cfg.RabbitMQ.URL,
		})
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("rabbitmq.publisher.channel_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	err = channel.ExchangeDeclare(
		cfg.RabbitMQ.EventsExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &EventPublisherAdapter{
		conn:     conn,
		channel:  channel,
		exchange: cfg.RabbitMQ.EventsExchange,
		logger:   logger.WithModule("EventPublisherAdapter"),
	}, nil
}

func (p *EventPublisherAdapter) PublishAppointmentCreated(ctx context.Context, appointment *domain.Appointment) error {
	return p.publish(ctx, "appointment.created", appointment)
}

func (p *EventPublisherAdapter) PublishAppointmentStatusChanged(ctx context.Context, appointment *domain.Appointment) error {
	routingKey := fmt.Sprintf("appointment.%s", appointment.Status)
	return p.publish(ctx, routingKey, appointment)
}

func (p *EventPublisherAdapter) publish(ctx context.Context, routingKey string, appointment *domain.Appointment) error {
	body, err := json.Marshal(appointment)
	if err != nil {
		return fmt.Errorf("marshal appointment event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.Debug("events.published", out.LogFields{
		"routingKey":    routingKey,
		"appointmentId": appointment.ID,
	})

	return nil
}

func (p *EventPublisherAdapter) Close() error {
	if p == nil || p.channel == nil {
		return nil
	}

	if err := p.channel.Close(); err != nil {
		return err
	}

	return p.conn.Close()
}
