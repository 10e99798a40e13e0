package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kbindza/kalenda/core/subject"
)

type subjectRepository struct {
	db *subjectTable
}

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db.subject}
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = uuid.New().String()
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return *sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) FilterSubjects(ctx context.Context, filter subject.QueryFilter) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]subject.Subject, 0, len(repo.db.table))
	for _, sub := range repo.db.table {
		if filter.OwnerID != "" && sub.UserID != filter.OwnerID {
			continue
		}
		if filter.Active != nil && sub.Active != *filter.Active {
			continue
		}
		if filter.Day != nil && !scheduledOn(*sub, *filter.Day) {
			continue
		}
		subs = append(subs, *sub)
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return subs, nil
}

func scheduledOn(sub subject.Subject, day int) bool {
	for _, entry := range sub.Schedule {
		if entry.DayOfWeek == day {
			return true
		}
	}
	return false
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sub.ID]; !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}
