package event

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound  = errors.New("event not found")
	ErrForbidden = errors.New("access denied")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEventByID(ctx context.Context, id string) (Event, error)
		// FilterEvents applies AND on available QueryFilter fields;
		// results sorted by date ascending, then time ascending.
		FilterEvents(ctx context.Context, filter QueryFilter) ([]Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, ownerID string, ne NewEvent) (Event, error)
		Get(ctx context.Context, viewerID string, admin bool, id string) (Event, error)
		Query(ctx context.Context, viewerID string, admin bool, filter QueryFilter) ([]Event, error)
		Month(ctx context.Context, viewerID string, admin bool, year int, month time.Month) ([]Event, error)
		Update(ctx context.Context, ownerID, id string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, ownerID, id string) error
		ToggleComplete(ctx context.Context, ownerID, id string) (Event, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ownerID string, ne NewEvent) (Event, error) {
	now := time.Now().UTC()
	evt := Event{
		Title:       ne.Title,
		Type:        ne.Type,
		Date:        ne.Date.UTC(),
		Time:        ne.Time,
		Subject:     ne.Subject,
		Description: ne.Description,
		Recurring:   ne.Recurring,
		DaysOfWeek:  ne.DaysOfWeek,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateEvent(ctx, evt)
}

// Get returns the event. Admins only see their own events; students and
// anonymous callers see any.
func (svc *service) Get(ctx context.Context, viewerID string, admin bool, id string) (Event, error) {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if admin && evt.UserID != viewerID {
		return Event{}, ErrForbidden
	}
	return evt, nil
}

// Query lists events. An admin's view is scoped to their own events; everyone
// else sees all.
func (svc *service) Query(ctx context.Context, viewerID string, admin bool, filter QueryFilter) ([]Event, error) {
	if admin {
		filter.OwnerID = viewerID
	} else {
		filter.OwnerID = ""
	}
	return svc.repo.FilterEvents(ctx, filter)
}

// Month lists the events of one calendar month, same visibility as Query.
func (svc *service) Month(ctx context.Context, viewerID string, admin bool, year int, month time.Month) ([]Event, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return svc.Query(ctx, viewerID, admin, QueryFilter{StartDate: start, EndDate: end})
}

// getOwned fetches an event and enforces ownership. Non-owners get the same
// ErrNotFound as a missing id so existence is not leaked.
func (svc *service) getOwned(ctx context.Context, ownerID, id string) (Event, error) {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if evt.UserID != ownerID {
		return Event{}, ErrNotFound
	}
	return evt, nil
}

func (svc *service) Update(ctx context.Context, ownerID, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.getOwned(ctx, ownerID, id)
	if err != nil {
		return Event{}, err
	}
	applyUpdate(&evt, ue)
	return svc.repo.UpdateEvent(ctx, evt)
}

// applyUpdate merges the provided fields into evt. Shared with the suggestion
// workflow, which mutates events on approval without owner scoping.
func applyUpdate(evt *Event, ue UpdateEvent) {
	if ue.Title != "" {
		evt.Title = ue.Title
	}
	if ue.Type != "" {
		evt.Type = ue.Type
	}
	if ue.Date != nil {
		evt.Date = ue.Date.UTC()
	}
	if ue.Time != nil {
		evt.Time = *ue.Time
	}
	if ue.Subject != nil {
		evt.Subject = *ue.Subject
	}
	if ue.Description != nil {
		evt.Description = *ue.Description
	}
	if ue.Recurring != nil {
		evt.Recurring = *ue.Recurring
	}
	if ue.DaysOfWeek != nil {
		evt.DaysOfWeek = *ue.DaysOfWeek
	}
	evt.UpdatedAt = time.Now().UTC()
}

// Apply merges ue into evt and returns the result. Used by approval flows
// that already resolved the target event.
func (ue UpdateEvent) Apply(evt Event) Event {
	applyUpdate(&evt, ue)
	return evt
}

func (svc *service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := svc.getOwned(ctx, ownerID, id); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *service) ToggleComplete(ctx context.Context, ownerID, id string) (Event, error) {
	evt, err := svc.getOwned(ctx, ownerID, id)
	if err != nil {
		return Event{}, err
	}
	evt.Completed = !evt.Completed
	evt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvent(ctx, evt)
}
