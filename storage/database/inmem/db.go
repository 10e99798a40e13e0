package inmemdb

import (
	"sync"

	"github.com/kbindza/kalenda/core/attendance"
	"github.com/kbindza/kalenda/core/event"
	"github.com/kbindza/kalenda/core/subject"
	"github.com/kbindza/kalenda/core/suggestion"
	"github.com/kbindza/kalenda/core/user"
)

type (
	DB struct {
		user       *userTable
		subject    *subjectTable
		attendance *attendanceTable
		event      *eventTable
		suggestion *suggestionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*subject.Subject
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}

	eventTable struct {
		sync.RWMutex
		table map[string]*event.Event
	}

	suggestionTable struct {
		sync.RWMutex
		table map[string]*suggestion.Suggestion
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		subject:    &subjectTable{table: make(map[string]*subject.Subject)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		event:      &eventTable{table: make(map[string]*event.Event)},
		suggestion: &suggestionTable{table: make(map[string]*suggestion.Suggestion)},
	}
	return db, nil
}
