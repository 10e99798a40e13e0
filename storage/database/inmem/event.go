package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kbindza/kalenda/core/event"
)

type eventRepository struct {
	db *eventTable
}

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt.ID = uuid.New().String()
	repo.db.table[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id string) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.table[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) FilterEvents(ctx context.Context, filter event.QueryFilter) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	evts := make([]event.Event, 0, len(repo.db.table))
	for _, evt := range repo.db.table {
		if filter.OwnerID != "" && evt.UserID != filter.OwnerID {
			continue
		}
		if !filter.StartDate.IsZero() && evt.Date.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && evt.Date.After(filter.EndDate) {
			continue
		}
		if filter.Type != "" && evt.Type != filter.Type {
			continue
		}
		evts = append(evts, *evt)
	}

	sort.Slice(evts, func(i, j int) bool {
		if !evts[i].Date.Equal(evts[j].Date) {
			return evts[i].Date.Before(evts[j].Date)
		}
		return evts[i].Time < evts[j].Time
	})
	return evts, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.table[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
