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

	"github.com/kbindza/kalenda/core/event"
	"github.com/kbindza/kalenda/core/suggestion"
)

type suggestionRepository struct {
	db *sqlx.DB
}

func NewSuggestionRepository(db *sqlx.DB) suggestion.Repository {
	return &suggestionRepository{db: db}
}

// suggestionRow mirrors the event_suggestion table; payload, original_data and
// admin_response are nullable JSONB.
type suggestionRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	EventID       sql.NullString `db:"event_id"`
	Kind          string         `db:"kind"`
	Payload       []byte         `db:"payload"`
	OriginalData  []byte         `db:"original_data"`
	Reason        string         `db:"reason"`
	Status        string         `db:"status"`
	AdminResponse []byte         `db:"admin_response"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func toSuggestionRow(sug suggestion.Suggestion) (suggestionRow, error) {
	row := suggestionRow{
		ID:        sug.ID,
		UserID:    sug.UserID,
		Kind:      sug.Kind,
		Reason:    sug.Reason,
		Status:    sug.Status,
		CreatedAt: sug.CreatedAt,
		UpdatedAt: sug.UpdatedAt,
	}
	if sug.EventID != "" {
		row.EventID = sql.NullString{String: sug.EventID, Valid: true}
	}

	var err error
	if sug.Payload != nil {
		if row.Payload, err = json.Marshal(sug.Payload); err != nil {
			return suggestionRow{}, errors.Wrap(err, "marshaling payload")
		}
	}
	if sug.OriginalData != nil {
		if row.OriginalData, err = json.Marshal(sug.OriginalData); err != nil {
			return suggestionRow{}, errors.Wrap(err, "marshaling original data")
		}
	}
	if sug.AdminResponse != nil {
		if row.AdminResponse, err = json.Marshal(sug.AdminResponse); err != nil {
			return suggestionRow{}, errors.Wrap(err, "marshaling admin response")
		}
	}
	return row, nil
}

func (row suggestionRow) toSuggestion() (suggestion.Suggestion, error) {
	sug := suggestion.Suggestion{
		ID:        row.ID,
		UserID:    row.UserID,
		EventID:   row.EventID.String,
		Kind:      row.Kind,
		Reason:    row.Reason,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Payload) > 0 {
		sug.Payload = new(suggestion.EventPayload)
		if err := json.Unmarshal(row.Payload, sug.Payload); err != nil {
			return suggestion.Suggestion{}, errors.Wrap(err, "unmarshaling payload")
		}
	}
	if len(row.OriginalData) > 0 {
		sug.OriginalData = new(event.Event)
		if err := json.Unmarshal(row.OriginalData, sug.OriginalData); err != nil {
			return suggestion.Suggestion{}, errors.Wrap(err, "unmarshaling original data")
		}
	}
	if len(row.AdminResponse) > 0 {
		sug.AdminResponse = new(suggestion.AdminResponse)
		if err := json.Unmarshal(row.AdminResponse, sug.AdminResponse); err != nil {
			return suggestion.Suggestion{}, errors.Wrap(err, "unmarshaling admin response")
		}
	}
	return sug, nil
}

const insertSuggestion = `
INSERT INTO event_suggestion (id, user_id, event_id, kind, payload, original_data, reason, status, admin_response, created_at, updated_at)
VALUES (:id, :user_id, :event_id, :kind, :payload, :original_data, :reason, :status, :admin_response, :created_at, :updated_at)`

func (repo *suggestionRepository) CreateSuggestion(ctx context.Context, sug suggestion.Suggestion) (suggestion.Suggestion, error) {
	sug.ID = uuid.New().String()
	row, err := toSuggestionRow(sug)
	if err != nil {
		return suggestion.Suggestion{}, err
	}
	if _, err = repo.db.NamedExecContext(ctx, insertSuggestion, row); err != nil {
		return suggestion.Suggestion{}, errors.Wrap(err, "inserting suggestion")
	}
	return sug, nil
}

func (repo *suggestionRepository) GetSuggestionByID(ctx context.Context, id string) (suggestion.Suggestion, error) {
	var row suggestionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM event_suggestion WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return suggestion.Suggestion{}, suggestion.ErrNotFound
		}
		return suggestion.Suggestion{}, errors.Wrap(err, "selecting suggestion by id")
	}
	return row.toSuggestion()
}

func (repo *suggestionRepository) FilterSuggestions(ctx context.Context, filter suggestion.QueryFilter) ([]suggestion.Suggestion, error) {
	q := new(strings.Builder)
	q.WriteString(`SELECT * FROM event_suggestion`)

	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.AuthorID != "" {
		clauses = append(clauses, "user_id = "+arg(filter.AuthorID))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(filter.Status))
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = "+arg(filter.Kind))
	}
	if len(clauses) > 0 {
		q.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	if filter.OldestFirst {
		q.WriteString(" ORDER BY created_at ASC")
	} else {
		q.WriteString(" ORDER BY created_at DESC")
	}

	var rows []suggestionRow
	if err := repo.db.SelectContext(ctx, &rows, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "filtering suggestions")
	}

	sugs := make([]suggestion.Suggestion, 0, len(rows))
	for _, row := range rows {
		sug, err := row.toSuggestion()
		if err != nil {
			return nil, err
		}
		sugs = append(sugs, sug)
	}
	return sugs, nil
}

const updateSuggestion = `
UPDATE event_suggestion
SET status = :status, admin_response = :admin_response, updated_at = :updated_at
WHERE id = :id`

func (repo *suggestionRepository) UpdateSuggestion(ctx context.Context, sug suggestion.Suggestion) (suggestion.Suggestion, error) {
	row, err := toSuggestionRow(sug)
	if err != nil {
		return suggestion.Suggestion{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, updateSuggestion, row)
	if err != nil {
		return suggestion.Suggestion{}, errors.Wrap(err, "updating suggestion")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return suggestion.Suggestion{}, suggestion.ErrNotFound
	}
	return sug, nil
}

func (repo *suggestionRepository) DeleteSuggestion(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM event_suggestion WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting suggestion")
	}
	return nil
}
