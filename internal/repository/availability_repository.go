package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/comer/experience-booking/internal/model"
)

// AvailabilityRepo owns the persistence of availability sets and their
// slots.  It works against three tables:
//
//   availability_sets(experience_id PK, experience_title, created_at)
//   slots(id CHAR(36) PK, experience_id FK ON DELETE CASCADE, date DATE,
//         start_time, end_time, price DECIMAL(10,2), currency CHAR(3),
//         original_capacity, remaining_capacity, created_at)
//   bookings(..., slot_id FK ON DELETE CASCADE, UNIQUE(slot_id, user_id))
//
// Deleting a set cascades to its slots and, through them, to their
// bookings.  All timestamp columns are stored in UTC.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a repo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// DB exposes the underlying handle so the booking repository can open
// transactions that span both tables.
func (r *AvailabilityRepo) DB() *sql.DB { return r.db }

// Replace atomically discards any existing availability set for the
// experience and installs the new one.  Outstanding bookings on the old
// slots are discarded with them; a reschedule deliberately resets the
// whole set.  Either every slot of the new set becomes visible or, on
// error, none does.
func (r *AvailabilityRepo) Replace(ctx context.Context, set *model.AvailabilitySet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// Cascades to slots and bookings of the previous schedule.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM availability_sets WHERE experience_id = ?`, set.ExperienceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO availability_sets (experience_id, experience_title) VALUES (?, ?)`,
		set.ExperienceID, set.ExperienceTitle); err != nil {
		return err
	}
	if err := insertSlotsTx(ctx, tx, set.Slots); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertSlotsTx bulk-inserts slot rows in a single statement.  Passing
// an empty slice has no effect and returns nil.
func insertSlotsTx(ctx context.Context, tx *sql.Tx, slots []model.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO slots (id, experience_id, date, start_time, end_time, price, currency, original_capacity, remaining_capacity) VALUES `
	args := make([]interface{}, 0, len(slots)*9)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, s.ID, s.ExperienceID, s.Date, s.StartTime, s.EndTime,
			s.Price, s.Currency, s.OriginalCapacity, s.RemainingCapacity)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// FindByExperience loads the availability set for an experience along
// with all of its slots ordered by date.  It returns
// ErrAvailabilityNotFound when no schedule has been defined.
func (r *AvailabilityRepo) FindByExperience(ctx context.Context, experienceID string) (*model.AvailabilitySet, error) {
	set := &model.AvailabilitySet{ExperienceID: experienceID}
	err := r.db.QueryRowContext(ctx,
		`SELECT experience_title, created_at FROM availability_sets WHERE experience_id = ?`,
		experienceID).Scan(&set.ExperienceTitle, &set.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, start_time, end_time, price, currency, original_capacity, remaining_capacity
		 FROM slots WHERE experience_id = ? ORDER BY date`, experienceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		s := model.Slot{ExperienceID: experienceID}
		var date time.Time
		if err := rows.Scan(&s.ID, &date, &s.StartTime, &s.EndTime, &s.Price,
			&s.Currency, &s.OriginalCapacity, &s.RemainingCapacity); err != nil {
			return nil, err
		}
		s.Date = date.Format("2006-01-02")
		set.Slots = append(set.Slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// FindSlot returns a single slot of an experience.  It returns
// ErrSlotNotFound when the slot does not exist under that experience.
func (r *AvailabilityRepo) FindSlot(ctx context.Context, experienceID, slotID string) (*model.Slot, error) {
	s := &model.Slot{ID: slotID, ExperienceID: experienceID}
	var date time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT date, start_time, end_time, price, currency, original_capacity, remaining_capacity
		 FROM slots WHERE id = ? AND experience_id = ?`, slotID, experienceID).
		Scan(&date, &s.StartTime, &s.EndTime, &s.Price, &s.Currency,
			&s.OriginalCapacity, &s.RemainingCapacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	s.Date = date.Format("2006-01-02")
	return s, nil
}

// Delete removes an experience's availability set and, by cascade, all
// of its slots and bookings.  Used when the experience itself is
// deleted.  It returns ErrAvailabilityNotFound when nothing existed.
func (r *AvailabilityRepo) Delete(ctx context.Context, experienceID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM availability_sets WHERE experience_id = ?`, experienceID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

// AdjustCapacityTx changes a slot's remaining capacity by delta within
// an existing transaction.  This is the only mutator of remaining
// capacity.  The update is a single conditional statement so that two
// concurrent bookers can never both win the last unit: whoever runs
// second matches zero rows.  The caller must commit or roll back.
//
// A zero-row update is disambiguated with a follow-up read: a missing
// slot yields ErrSlotNotFound, a failed decrement yields ErrSlotFull
// and a failed increment yields ErrCapacityExceeded, which indicates a
// ledger/capacity inconsistency rather than contention.
func (r *AvailabilityRepo) AdjustCapacityTx(ctx context.Context, tx *sql.Tx, experienceID, slotID string, delta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE slots
		 SET remaining_capacity = remaining_capacity + ?
		 WHERE id = ? AND experience_id = ?
		   AND CAST(remaining_capacity AS SIGNED) + ? >= 0
		   AND CAST(remaining_capacity AS SIGNED) + ? <= original_capacity`,
		delta, slotID, experienceID, delta, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM slots WHERE id = ? AND experience_id = ?`, slotID, experienceID).
		Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSlotNotFound
		}
		return err
	}
	if delta < 0 {
		return ErrSlotFull
	}
	return ErrCapacityExceeded
}
