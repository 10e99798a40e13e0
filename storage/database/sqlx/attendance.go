package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

const insertRecord = `
INSERT INTO attendance (id, user_id, subject_id, date, period, is_present, notes, created_at, updated_at)
VALUES (:id, :user_id, :subject_id, :date, :period, :is_present, :notes, :created_at, :updated_at)`

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertRecord, rec); err != nil {
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	var rec attendance.Record
	err := repo.db.GetContext(ctx, &rec, `SELECT * FROM attendance WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "selecting attendance record by id")
	}
	return rec, nil
}

func (repo *attendanceRepository) FindRecord(ctx context.Context, userID, subjectID string, date time.Time, period int) (attendance.Record, error) {
	var rec attendance.Record
	err := repo.db.GetContext(ctx, &rec,
		`SELECT * FROM attendance WHERE user_id = $1 AND subject_id = $2 AND date = $3 AND period = $4`,
		userID, subjectID, date, period)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "selecting attendance record by key")
	}
	return rec, nil
}

func (repo *attendanceRepository) FilterRecords(ctx context.Context, userID string, filter attendance.QueryFilter) ([]attendance.Record, error) {
	q := new(strings.Builder)
	q.WriteString(`SELECT * FROM attendance`)

	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	clauses := []string{"user_id = " + arg(userID)}
	if filter.SubjectID != "" {
		clauses = append(clauses, "subject_id = "+arg(filter.SubjectID))
	}
	if !filter.StartDate.IsZero() {
		clauses = append(clauses, "date >= "+arg(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		clauses = append(clauses, "date <= "+arg(filter.EndDate))
	}
	if filter.IsPresent != nil {
		clauses = append(clauses, "is_present = "+arg(*filter.IsPresent))
	}
	q.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	q.WriteString(" ORDER BY date DESC, period ASC")

	var recs []attendance.Record
	if err := repo.db.SelectContext(ctx, &recs, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendance records")
	}
	return recs, nil
}

func (repo *attendanceRepository) DistinctSubjectIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT subject_id FROM attendance WHERE user_id = $1 ORDER BY subject_id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting recorded subject ids")
	}
	return ids, nil
}

const updateRecord = `
UPDATE attendance
SET is_present = :is_present, notes = :notes, updated_at = :updated_at
WHERE id = :id`

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	res, err := repo.db.NamedExecContext(ctx, updateRecord, rec)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return nil
}
