package suggestion

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/event"
)

const (
	KindNew    = "new"
	KindUpdate = "update"
	KindDelete = "delete"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	// DefaultApproveMessage is recorded when the approving admin leaves the
	// response message empty.
	DefaultApproveMessage = "Suggestion approved"
)

var (
	errEventIDRequired = errors.New("an event id is required for update and delete suggestions")
	errPayloadRequired = errors.New("event data is required for new event suggestions")
)

type (
	// EventPayload is the event mutation a student proposes. For kind=new it
	// must describe a complete event; for kind=update nil fields are left
	// untouched on the target.
	EventPayload struct {
		Title       string     `json:"title"`
		Type        string     `json:"type" validate:"omitempty,oneof=class assignment exam"`
		Date        *time.Time `json:"date"`
		Time        *string    `json:"time"`
		Subject     *string    `json:"subject"`
		Description *string    `json:"description"`
		Recurring   *bool      `json:"recurring"`
		DaysOfWeek  *[]int     `json:"days_of_week" validate:"omitempty,dive,min=0,max=6"`
	}

	// AdminResponse records how and when an admin resolved a suggestion.
	AdminResponse struct {
		Message     string    `json:"message"`
		RespondedAt time.Time `json:"responded_at"` // UTC
		RespondedBy string    `json:"responded_by"`
	}

	Suggestion struct {
		ID            string         `json:"id" db:"id"`
		UserID        string         `json:"user_id" db:"user_id"`
		EventID       string         `json:"event_id,omitempty" db:"event_id"` // empty for kind=new
		Kind          string         `json:"kind" db:"kind"`
		Payload       *EventPayload  `json:"payload,omitempty"`
		OriginalData  *event.Event   `json:"original_data,omitempty"` // snapshot at submission, for audit
		Reason        string         `json:"reason" db:"reason"`
		Status        string         `json:"status" db:"status"`
		AdminResponse *AdminResponse `json:"admin_response,omitempty"`
		CreatedAt     time.Time      `json:"created_at" db:"created_at"` // UTC
		UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"` // UTC
	}

	// NewSuggestion contains information needed to submit a suggestion.
	NewSuggestion struct {
		Kind    string        `json:"kind" validate:"required,oneof=new update delete"`
		EventID string        `json:"event_id"`
		Payload *EventPayload `json:"payload" validate:"omitempty"`
		Reason  string        `json:"reason" validate:"required,max=500"`
	}

	// Counts aggregates suggestion statuses over a (possibly filtered) listing.
	Counts struct {
		Total    int `json:"total"`
		Pending  int `json:"pending"`
		Approved int `json:"approved"`
		Rejected int `json:"rejected"`
	}

	QueryFilter struct {
		AuthorID string
		Status   string
		Kind     string
		// OldestFirst flips the default created_at descending order.
		OldestFirst bool
	}
)

func (ns *NewSuggestion) Validate(validate *validator.Validate) error {
	ns.Kind = core.CleanString(ns.Kind, true /* lower */)
	ns.Reason = core.CleanString(ns.Reason)

	if err := validate.Struct(ns); err != nil {
		return err
	}

	switch ns.Kind {
	case KindUpdate, KindDelete:
		if ns.EventID == "" {
			return core.NewValidationError(errEventIDRequired, core.FieldError{Field: "event_id", Error: errEventIDRequired.Error()})
		}
	case KindNew:
		if ns.Payload == nil {
			return core.NewValidationError(errPayloadRequired, core.FieldError{Field: "payload", Error: errPayloadRequired.Error()})
		}
		ne := ns.Payload.toNewEvent()
		if err := ne.Validate(validate); err != nil {
			return err
		}
	}
	return nil
}

// toNewEvent builds a complete event from the payload. Missing required
// fields surface through event.NewEvent validation.
func (p *EventPayload) toNewEvent() event.NewEvent {
	ne := event.NewEvent{Title: p.Title, Type: p.Type}
	if p.Date != nil {
		ne.Date = *p.Date
	}
	if p.Time != nil {
		ne.Time = *p.Time
	}
	if p.Subject != nil {
		ne.Subject = *p.Subject
	}
	if p.Description != nil {
		ne.Description = *p.Description
	}
	if p.Recurring != nil {
		ne.Recurring = *p.Recurring
	}
	if p.DaysOfWeek != nil {
		ne.DaysOfWeek = *p.DaysOfWeek
	}
	return ne
}

func (p *EventPayload) toUpdateEvent() event.UpdateEvent {
	if p == nil {
		return event.UpdateEvent{}
	}
	return event.UpdateEvent{
		Title:       p.Title,
		Type:        p.Type,
		Date:        p.Date,
		Time:        p.Time,
		Subject:     p.Subject,
		Description: p.Description,
		Recurring:   p.Recurring,
		DaysOfWeek:  p.DaysOfWeek,
	}
}
