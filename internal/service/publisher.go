package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/comer/experience-booking/internal/queue"
)

// AMQPPublisher publishes booking events to RabbitMQ.  Each publish
// dials a short-lived connection; a circuit breaker wraps the dial so
// that a dead broker fails fast instead of adding dial latency to
// every booking while it is down.  Messages are persistent and the
// queue is declared durable on every publish, which is idempotent.
type AMQPPublisher struct {
	url     string
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewAMQPPublisher builds a publisher for the given broker URL.  The
// breaker opens after five consecutive failures and probes again after
// thirty seconds.
func NewAMQPPublisher(url string, log *logrus.Logger) *AMQPPublisher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "amqp-publisher",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("publisher breaker state changed")
		},
	})
	return &AMQPPublisher{url: url, breaker: cb, log: log}
}

// PublishBookingEvent sends the event to the booking.events queue.
// Errors are returned to the caller, which logs and ignores them: a
// broker outage must never fail a committed booking.
func (p *AMQPPublisher) PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publish(ctx, ev)
	})
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.BookingEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.BookingEventsQueue, true, false, false, false, nil); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(pubCtx, "", queue.BookingEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}
