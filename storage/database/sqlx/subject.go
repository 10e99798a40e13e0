package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core/subject"
)

type subjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) subject.Repository {
	return &subjectRepository{db: db}
}

// subjectRow mirrors the subject table; the schedule is stored as JSONB.
type subjectRow struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Teacher           string    `db:"teacher"`
	Color             string    `db:"color"`
	Schedule          []byte    `db:"schedule"`
	SemesterStartDate time.Time `db:"semester_start_date"`
	SemesterEndDate   time.Time `db:"semester_end_date"`
	TotalClasses      int       `db:"total_classes"`
	UserID            string    `db:"user_id"`
	Active            bool      `db:"active"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func toSubjectRow(sub subject.Subject) (subjectRow, error) {
	schedule, err := json.Marshal(sub.Schedule)
	if err != nil {
		return subjectRow{}, errors.Wrap(err, "marshaling schedule")
	}
	return subjectRow{
		ID:                sub.ID,
		Name:              sub.Name,
		Teacher:           sub.Teacher,
		Color:             sub.Color,
		Schedule:          schedule,
		SemesterStartDate: sub.SemesterStartDate,
		SemesterEndDate:   sub.SemesterEndDate,
		TotalClasses:      sub.TotalClasses,
		UserID:            sub.UserID,
		Active:            sub.Active,
		CreatedAt:         sub.CreatedAt,
		UpdatedAt:         sub.UpdatedAt,
	}, nil
}

func (row subjectRow) toSubject() (subject.Subject, error) {
	var schedule []subject.ScheduleEntry
	if len(row.Schedule) > 0 {
		if err := json.Unmarshal(row.Schedule, &schedule); err != nil {
			return subject.Subject{}, errors.Wrap(err, "unmarshaling schedule")
		}
	}
	return subject.Subject{
		ID:                row.ID,
		Name:              row.Name,
		Teacher:           row.Teacher,
		Color:             row.Color,
		Schedule:          schedule,
		SemesterStartDate: row.SemesterStartDate,
		SemesterEndDate:   row.SemesterEndDate,
		TotalClasses:      row.TotalClasses,
		UserID:            row.UserID,
		Active:            row.Active,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

const insertSubject = `
INSERT INTO subject (id, name, teacher, color, schedule, semester_start_date, semester_end_date, total_classes, user_id, active, created_at, updated_at)
VALUES (:id, :name, :teacher, :color, :schedule, :semester_start_date, :semester_end_date, :total_classes, :user_id, :active, :created_at, :updated_at)`

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	sub.ID = uuid.New().String()
	row, err := toSubjectRow(sub)
	if err != nil {
		return subject.Subject{}, err
	}
	if _, err = repo.db.NamedExecContext(ctx, insertSubject, row); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	var row subjectRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM subject WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, errors.Wrap(err, "selecting subject by id")
	}
	return row.toSubject()
}

func (repo *subjectRepository) FilterSubjects(ctx context.Context, filter subject.QueryFilter) ([]subject.Subject, error) {
	q := new(strings.Builder)
	q.WriteString(`SELECT * FROM subject`)

	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.OwnerID != "" {
		clauses = append(clauses, "user_id = "+arg(filter.OwnerID))
	}
	if filter.Active != nil {
		clauses = append(clauses, "active = "+arg(*filter.Active))
	}
	if filter.Day != nil {
		// match a schedule entry on the requested day of week
		clauses = append(clauses, "schedule @> "+arg(dayScheduleJSON(*filter.Day)))
	}
	if len(clauses) > 0 {
		q.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	q.WriteString(" ORDER BY name")

	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "filtering subjects")
	}

	subs := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		sub, err := row.toSubject()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func dayScheduleJSON(day int) []byte {
	b, _ := json.Marshal([]map[string]int{{"day_of_week": day}})
	return b
}

const updateSubject = `
UPDATE subject
SET name = :name, teacher = :teacher, color = :color, schedule = :schedule,
    semester_start_date = :semester_start_date, semester_end_date = :semester_end_date,
    total_classes = :total_classes, active = :active, updated_at = :updated_at
WHERE id = :id`

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	row, err := toSubjectRow(sub)
	if err != nil {
		return subject.Subject{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, updateSubject, row)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return sub, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return nil
}
