package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kbindza/kalenda/core/suggestion"
)

type suggestionRepository struct {
	db *suggestionTable
}

func NewSuggestionRepository(db *DB) suggestion.Repository {
	return &suggestionRepository{db: db.suggestion}
}

func (repo *suggestionRepository) CreateSuggestion(ctx context.Context, sug suggestion.Suggestion) (suggestion.Suggestion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sug.ID = uuid.New().String()
	repo.db.table[sug.ID] = &sug
	return sug, nil
}

func (repo *suggestionRepository) GetSuggestionByID(ctx context.Context, id string) (suggestion.Suggestion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sug, ok := repo.db.table[id]; ok {
		return *sug, nil
	}
	return suggestion.Suggestion{}, suggestion.ErrNotFound
}

func (repo *suggestionRepository) FilterSuggestions(ctx context.Context, filter suggestion.QueryFilter) ([]suggestion.Suggestion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sugs := make([]suggestion.Suggestion, 0, len(repo.db.table))
	for _, sug := range repo.db.table {
		if filter.AuthorID != "" && sug.UserID != filter.AuthorID {
			continue
		}
		if filter.Status != "" && sug.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && sug.Kind != filter.Kind {
			continue
		}
		sugs = append(sugs, *sug)
	}

	sort.Slice(sugs, func(i, j int) bool {
		if filter.OldestFirst {
			return sugs[i].CreatedAt.Before(sugs[j].CreatedAt)
		}
		return sugs[i].CreatedAt.After(sugs[j].CreatedAt)
	})
	return sugs, nil
}

func (repo *suggestionRepository) UpdateSuggestion(ctx context.Context, sug suggestion.Suggestion) (suggestion.Suggestion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sug.ID]; !ok {
		return suggestion.Suggestion{}, suggestion.ErrNotFound
	}
	repo.db.table[sug.ID] = &sug
	return sug, nil
}

func (repo *suggestionRepository) DeleteSuggestion(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}
