package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core/event"
)

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

// eventRow mirrors the event table; days_of_week is a Postgres int array.
type eventRow struct {
	ID          string        `db:"id"`
	Title       string        `db:"title"`
	Type        string        `db:"type"`
	Date        time.Time     `db:"date"`
	Time        string        `db:"time"`
	Subject     string        `db:"subject"`
	Description string        `db:"description"`
	Recurring   bool          `db:"recurring"`
	DaysOfWeek  pq.Int64Array `db:"days_of_week"`
	UserID      string        `db:"user_id"`
	Completed   bool          `db:"completed"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func toEventRow(evt event.Event) eventRow {
	days := make(pq.Int64Array, 0, len(evt.DaysOfWeek))
	for _, d := range evt.DaysOfWeek {
		days = append(days, int64(d))
	}
	return eventRow{
		ID:          evt.ID,
		Title:       evt.Title,
		Type:        evt.Type,
		Date:        evt.Date,
		Time:        evt.Time,
		Subject:     evt.Subject,
		Description: evt.Description,
		Recurring:   evt.Recurring,
		DaysOfWeek:  days,
		UserID:      evt.UserID,
		Completed:   evt.Completed,
		CreatedAt:   evt.CreatedAt,
		UpdatedAt:   evt.UpdatedAt,
	}
}

func (row eventRow) toEvent() event.Event {
	var days []int
	for _, d := range row.DaysOfWeek {
		days = append(days, int(d))
	}
	return event.Event{
		ID:          row.ID,
		Title:       row.Title,
		Type:        row.Type,
		Date:        row.Date,
		Time:        row.Time,
		Subject:     row.Subject,
		Description: row.Description,
		Recurring:   row.Recurring,
		DaysOfWeek:  days,
		UserID:      row.UserID,
		Completed:   row.Completed,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

const insertEvent = `
INSERT INTO event (id, title, type, date, time, subject, description, recurring, days_of_week, user_id, completed, created_at, updated_at)
VALUES (:id, :title, :type, :date, :time, :subject, :description, :recurring, :days_of_week, :user_id, :completed, :created_at, :updated_at)`

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertEvent, toEventRow(evt)); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id string) (event.Event, error) {
	var row eventRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM event WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "selecting event by id")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) FilterEvents(ctx context.Context, filter event.QueryFilter) ([]event.Event, error) {
	q := new(strings.Builder)
	q.WriteString(`SELECT * FROM event`)

	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.OwnerID != "" {
		clauses = append(clauses, "user_id = "+arg(filter.OwnerID))
	}
	if !filter.StartDate.IsZero() {
		clauses = append(clauses, "date >= "+arg(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		clauses = append(clauses, "date <= "+arg(filter.EndDate))
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = "+arg(filter.Type))
	}
	if len(clauses) > 0 {
		q.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	q.WriteString(" ORDER BY date ASC, time ASC")

	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "filtering events")
	}

	evts := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		evts = append(evts, row.toEvent())
	}
	return evts, nil
}

const updateEvent = `
UPDATE event
SET title = :title, type = :type, date = :date, time = :time, subject = :subject,
    description = :description, recurring = :recurring, days_of_week = :days_of_week,
    completed = :completed, updated_at = :updated_at
WHERE id = :id`

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	res, err := repo.db.NamedExecContext(ctx, updateEvent, toEventRow(evt))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrNotFound
	}
	return nil
}
