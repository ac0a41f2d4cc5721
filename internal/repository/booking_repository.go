package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/comer/experience-booking/internal/model"
)

// mysqlDuplicateEntry is the server error number MySQL reports when an
// insert violates a unique key.
const mysqlDuplicateEntry = 1062

// BookingRepo is the booking ledger: it records and removes individual
// reservations against a slot and keeps the ledger and the slot's
// remaining capacity consistent.  Every mutation runs in a transaction
// that pairs exactly one ledger change with exactly one capacity
// adjustment, so count(bookings) + remaining_capacity ==
// original_capacity holds at every observable point, not just
// eventually.
type BookingRepo struct {
	db    *sql.DB
	avail *AvailabilityRepo
}

// NewBookingRepo returns a ledger bound to the given database.  The
// availability repo supplies the atomic capacity adjustment; both must
// share the same database handle.
func NewBookingRepo(db *sql.DB, avail *AvailabilityRepo) *BookingRepo {
	return &BookingRepo{db: db, avail: avail}
}

// Book reserves one unit of capacity on a slot for a user.  Inside a
// single transaction it verifies the slot exists, appends the ledger
// entry (the UNIQUE(slot_id, user_id) key rejects duplicates) and
// decrements remaining capacity with the conditional update.  The
// slot's date, times and the experience title are copied into the
// booking so later schedule or title edits do not rewrite a confirmed
// reservation.
//
// Failure modes: ErrSlotNotFound, ErrDuplicateBooking, ErrSlotFull.
func (r *BookingRepo) Book(ctx context.Context, experienceID, slotID, userID, userEmail string) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b := &model.Booking{
		SlotID:       slotID,
		ExperienceID: experienceID,
		UserID:       userID,
		UserEmail:    userEmail,
		CreatedAt:    time.Now().UTC(),
	}
	var date time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT s.date, s.start_time, s.end_time, a.experience_title
		 FROM slots s
		 JOIN availability_sets a ON a.experience_id = s.experience_id
		 WHERE s.id = ? AND s.experience_id = ?`, slotID, experienceID).
		Scan(&date, &b.StartTime, &b.EndTime, &b.ExperienceTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	b.Date = date.Format("2006-01-02")
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (slot_id, experience_id, experience_title, user_id, user_email, date, start_time, end_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.SlotID, b.ExperienceID, b.ExperienceTitle, b.UserID, b.UserEmail,
		b.Date, b.StartTime, b.EndTime, b.CreatedAt.Format("2006-01-02 15:04:05"))
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return nil, ErrDuplicateBooking
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = uint64(id)
	if err := r.avail.AdjustCapacityTx(ctx, tx, experienceID, slotID, -1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// CancelByUser removes the booking the user holds on a slot and
// returns one unit of capacity to it.  Locating by (slot, user) and
// locating by booking id are equivalent in effect: both end in exactly
// one ledger removal and one capacity increment.  It returns
// ErrBookingNotFound when the user holds no booking on the slot.
func (r *BookingRepo) CancelByUser(ctx context.Context, experienceID, slotID, userID string) (*model.Booking, error) {
	return r.cancel(ctx,
		`SELECT id, slot_id, experience_id, experience_title, user_id, user_email, date, start_time, end_time, created_at
		 FROM bookings WHERE slot_id = ? AND user_id = ? AND experience_id = ?`,
		slotID, userID, experienceID)
}

// CancelByID removes a booking located by its identifier, returning
// one unit of capacity to the slot it was made against.  It returns
// ErrBookingNotFound when no such booking exists.
func (r *BookingRepo) CancelByID(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return r.cancel(ctx,
		`SELECT id, slot_id, experience_id, experience_title, user_id, user_email, date, start_time, end_time, created_at
		 FROM bookings WHERE id = ?`,
		bookingID)
}

// cancel runs both cancellation entry points: it loads the matching
// booking, deletes it, and increments the slot's remaining capacity,
// all in one transaction.  The delete is guarded by rows-affected so
// two racing cancellations can never produce two increments; the loser
// observes ErrBookingNotFound.
func (r *BookingRepo) cancel(ctx context.Context, selectQ string, args ...interface{}) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b := &model.Booking{}
	var date time.Time
	err = tx.QueryRowContext(ctx, selectQ, args...).Scan(
		&b.ID, &b.SlotID, &b.ExperienceID, &b.ExperienceTitle,
		&b.UserID, &b.UserEmail, &date, &b.StartTime, &b.EndTime, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	b.Date = date.Format("2006-01-02")
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, b.ID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// A concurrent cancellation got there first.
		return nil, ErrBookingNotFound
	}
	if err := r.avail.AdjustCapacityTx(ctx, tx, b.ExperienceID, b.SlotID, 1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// ListByUser returns all bookings made by a user, newest first.  When
// the user has none, an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slot_id, experience_id, experience_title, user_id, user_email, date, start_time, end_time, created_at
		 FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		var date time.Time
		if err := rows.Scan(&b.ID, &b.SlotID, &b.ExperienceID, &b.ExperienceTitle,
			&b.UserID, &b.UserEmail, &date, &b.StartTime, &b.EndTime, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Date = date.Format("2006-01-02")
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
