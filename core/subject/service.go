package subject

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
)

var (
	// errors
	ErrNotFound   = errors.New("subject not found")
	ErrInvalidDay = errors.New("day of week must be between 0 (Sunday) and 6 (Saturday)")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		// FilterSubjects applies AND on available QueryFilter fields; results sorted by name.
		FilterSubjects(ctx context.Context, filter QueryFilter) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	// ScheduleSlot is one subject occupying one period in the timetable.
	ScheduleSlot struct {
		SubjectID   string `json:"subject_id"`
		SubjectName string `json:"subject_name"`
		Teacher     string `json:"teacher"`
		Color       string `json:"color"`
	}

	// DaySchedule maps period -> slots.
	DaySchedule map[int][]ScheduleSlot

	// WeekSchedule maps day of week -> period -> slots.
	WeekSchedule map[int]DaySchedule

	ServiceInterface interface {
		Create(ctx context.Context, ownerID string, ns NewSubject) (Subject, error)
		Get(ctx context.Context, id string) (Subject, error)
		Query(ctx context.Context, ownerID string, active *bool) ([]Subject, error)
		Update(ctx context.Context, ownerID, id string, us UpdateSubject) (Subject, error)
		Delete(ctx context.Context, ownerID, id string) error
		ToggleActive(ctx context.Context, ownerID, id string) (Subject, error)
		WeekSchedule(ctx context.Context, ownerID string) (WeekSchedule, error)
		DaySchedule(ctx context.Context, ownerID string, day int) (DaySchedule, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ownerID string, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	color := ns.Color
	if color == "" {
		color = DefaultColor
	}
	sub := Subject{
		Name:              ns.Name,
		Teacher:           ns.Teacher,
		Color:             color,
		Schedule:          ns.Schedule,
		SemesterStartDate: ns.SemesterStartDate,
		SemesterEndDate:   ns.SemesterEndDate,
		TotalClasses:      ns.TotalClasses,
		UserID:            ownerID,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *service) Get(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, ownerID string, active *bool) ([]Subject, error) {
	return svc.repo.FilterSubjects(ctx, QueryFilter{OwnerID: ownerID, Active: active})
}

// getOwned fetches a subject and enforces ownership. Non-owners get the same
// ErrNotFound as a missing id so existence is not leaked.
func (svc *service) getOwned(ctx context.Context, ownerID, id string) (Subject, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if sub.UserID != ownerID {
		return Subject{}, ErrNotFound
	}
	return sub, nil
}

func (svc *service) Update(ctx context.Context, ownerID, id string, us UpdateSubject) (Subject, error) {
	sub, err := svc.getOwned(ctx, ownerID, id)
	if err != nil {
		return Subject{}, err
	}

	if us.Name != "" {
		sub.Name = us.Name
	}
	if us.Teacher != "" {
		sub.Teacher = us.Teacher
	}
	if us.Color != "" {
		sub.Color = us.Color
	}
	if us.Schedule != nil {
		sub.Schedule = *us.Schedule
	}
	if us.SemesterStartDate != nil {
		sub.SemesterStartDate = *us.SemesterStartDate
	}
	if us.SemesterEndDate != nil {
		sub.SemesterEndDate = *us.SemesterEndDate
	}
	if us.TotalClasses != nil {
		sub.TotalClasses = *us.TotalClasses
	}
	sub.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := svc.getOwned(ctx, ownerID, id); err != nil {
		return err
	}
	return svc.repo.DeleteSubject(ctx, id)
}

func (svc *service) ToggleActive(ctx context.Context, ownerID, id string) (Subject, error) {
	sub, err := svc.getOwned(ctx, ownerID, id)
	if err != nil {
		return Subject{}, err
	}
	sub.Active = !sub.Active
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

// WeekSchedule flattens every active subject's schedule into day -> period -> slots.
// ownerID scopes to one admin's subjects; empty includes all.
func (svc *service) WeekSchedule(ctx context.Context, ownerID string) (WeekSchedule, error) {
	active := true
	subs, err := svc.repo.FilterSubjects(ctx, QueryFilter{OwnerID: ownerID, Active: &active})
	if err != nil {
		return nil, errors.Wrap(err, "filtering active subjects")
	}

	week := make(WeekSchedule, 7)
	for day := 0; day <= 6; day++ {
		week[day] = make(DaySchedule)
	}
	for _, sub := range subs {
		for _, entry := range sub.Schedule {
			day := week[entry.DayOfWeek]
			for _, period := range entry.Periods {
				day[period] = append(day[period], newSlot(sub))
			}
		}
	}
	return week, nil
}

// DaySchedule is the single-day projection of WeekSchedule.
func (svc *service) DaySchedule(ctx context.Context, ownerID string, day int) (DaySchedule, error) {
	if day < 0 || day > 6 {
		return nil, core.NewValidationError(ErrInvalidDay, core.FieldError{Field: "day_of_week", Error: ErrInvalidDay.Error()})
	}

	active := true
	subs, err := svc.repo.FilterSubjects(ctx, QueryFilter{OwnerID: ownerID, Active: &active, Day: &day})
	if err != nil {
		return nil, errors.Wrap(err, "filtering subjects by day")
	}

	sched := make(DaySchedule)
	for _, sub := range subs {
		for _, entry := range sub.Schedule {
			if entry.DayOfWeek != day {
				continue
			}
			periods := append([]int(nil), entry.Periods...)
			sort.Ints(periods)
			for _, period := range periods {
				sched[period] = append(sched[period], newSlot(sub))
			}
		}
	}
	return sched, nil
}

func newSlot(sub Subject) ScheduleSlot {
	return ScheduleSlot{
		SubjectID:   sub.ID,
		SubjectName: sub.Name,
		Teacher:     sub.Teacher,
		Color:       sub.Color,
	}
}
