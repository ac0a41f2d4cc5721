// Package analytics writes booking events into ClickHouse for offline
// analysis.  The sink is optional: when no ClickHouse address is
// configured the consumer falls back to an append-only log file.
package analytics

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/comer/experience-booking/internal/queue"
)

// EventWriter inserts booking events into the booking_events table:
//
//   booking_events(action String, booking_id UInt64, experience_id String,
//                  experience_title String, slot_id String, user_id String,
//                  user_email String, slot_date Date, start_time String,
//                  end_time String, occurred_at DateTime)
//
// ordered by (experience_id, occurred_at).
type EventWriter struct {
	conn driver.Conn
}

// NewEventWriter connects to ClickHouse and verifies the connection
// with a short ping.
func NewEventWriter(addr, database, username, password string) (*EventWriter, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}
	return &EventWriter{conn: conn}, nil
}

// Close releases the underlying connection pool.
func (w *EventWriter) Close() error { return w.conn.Close() }

// WriteBookingEvent appends one event row.  The consumer calls this
// per delivery; batching across deliveries is left to ClickHouse's
// async insert machinery.
func (w *EventWriter) WriteBookingEvent(ctx context.Context, ev queue.BookingEvent) error {
	batch, err := w.conn.PrepareBatch(ctx,
		`INSERT INTO booking_events (action, booking_id, experience_id, experience_title, slot_id, user_id, user_email, slot_date, start_time, end_time, occurred_at)`)
	if err != nil {
		return err
	}
	slotDate, err := time.Parse("2006-01-02", ev.Date)
	if err != nil {
		slotDate = time.Time{}
	}
	occurredAt, err := time.Parse(time.RFC3339, ev.OccurredAt)
	if err != nil {
		occurredAt = time.Now().UTC()
	}
	if err := batch.Append(
		ev.Action, ev.BookingID, ev.ExperienceID, ev.ExperienceTitle,
		ev.SlotID, ev.UserID, ev.UserEmail, slotDate,
		ev.StartTime, ev.EndTime, occurredAt,
	); err != nil {
		return err
	}
	return batch.Send()
}
