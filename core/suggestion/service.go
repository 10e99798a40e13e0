package suggestion

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/event"
	"github.com/kbindza/kalenda/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("suggestion not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrForbidden        = errors.New("access denied")
	ErrAlreadyProcessed = errors.New("this suggestion has already been processed")

	errRejectMessage = errors.New("a rejection message is required")
)

type (
	Repository interface {
		CreateSuggestion(ctx context.Context, sug Suggestion) (Suggestion, error)
		GetSuggestionByID(ctx context.Context, id string) (Suggestion, error)
		// FilterSuggestions applies AND on available QueryFilter fields;
		// results sorted by created_at descending unless OldestFirst is set.
		FilterSuggestions(ctx context.Context, filter QueryFilter) ([]Suggestion, error)
		UpdateSuggestion(ctx context.Context, sug Suggestion) (Suggestion, error)
		DeleteSuggestion(ctx context.Context, id string) error
	}

	// ApprovalResult is the outcome of an approval: the resolved suggestion plus
	// what happened to the underlying event.
	ApprovalResult struct {
		Suggestion Suggestion   `json:"suggestion"`
		Event      *event.Event `json:"event,omitempty"`
		Deleted    bool         `json:"event_deleted,omitempty"`
	}

	// ListResult pairs a filtered listing with status counts computed over it.
	ListResult struct {
		Suggestions []Suggestion `json:"suggestions"`
		Counts      Counts       `json:"counts"`
	}

	ServiceInterface interface {
		Submit(ctx context.Context, authorID string, ns NewSuggestion) (Suggestion, error)
		Get(ctx context.Context, requesterID string, admin bool, id string) (Suggestion, error)
		ListMine(ctx context.Context, authorID, status, kind string) ([]Suggestion, error)
		ListPending(ctx context.Context) ([]Suggestion, error)
		ListAll(ctx context.Context, filter QueryFilter) (ListResult, error)
		Approve(ctx context.Context, adminID, id, message string) (ApprovalResult, error)
		Reject(ctx context.Context, adminID, id, message string) (Suggestion, error)
		Delete(ctx context.Context, requesterID string, admin bool, id string) error
	}

	service struct {
		repo    Repository
		events  event.Repository
		users   user.Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*service)(nil)

// NewService takes the event repository rather than the event service: approved
// mutations act on behalf of the author's request and must not be scoped to the
// approving admin's own events.
func NewService(repo Repository, events event.Repository, users user.Repository, mailSvc core.EmailService) *service {
	return &service{repo: repo, events: events, users: users, mailSvc: mailSvc}
}

// Submit records a pending suggestion. For update/delete kinds the target
// event is resolved now and snapshotted into OriginalData for audit; it is not
// reapplied automatically.
func (svc *service) Submit(ctx context.Context, authorID string, ns NewSuggestion) (Suggestion, error) {
	now := time.Now().UTC()
	sug := Suggestion{
		UserID:    authorID,
		Kind:      ns.Kind,
		Reason:    ns.Reason,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch ns.Kind {
	case KindUpdate, KindDelete:
		evt, err := svc.events.GetEventByID(ctx, ns.EventID)
		if err != nil {
			if errors.Cause(err) == event.ErrNotFound {
				return Suggestion{}, ErrEventNotFound
			}
			return Suggestion{}, errors.Wrap(err, "resolving target event")
		}
		sug.EventID = ns.EventID
		sug.OriginalData = &evt
		if ns.Kind == KindUpdate {
			sug.Payload = ns.Payload
		}
	case KindNew:
		sug.Payload = ns.Payload
	}

	return svc.repo.CreateSuggestion(ctx, sug)
}

// Get returns the suggestion. Students only see their own.
func (svc *service) Get(ctx context.Context, requesterID string, admin bool, id string) (Suggestion, error) {
	sug, err := svc.repo.GetSuggestionByID(ctx, id)
	if err != nil {
		return Suggestion{}, err
	}
	if !admin && sug.UserID != requesterID {
		return Suggestion{}, ErrForbidden
	}
	return sug, nil
}

func (svc *service) ListMine(ctx context.Context, authorID, status, kind string) ([]Suggestion, error) {
	return svc.repo.FilterSuggestions(ctx, QueryFilter{AuthorID: authorID, Status: status, Kind: kind})
}

// ListPending lists every pending suggestion, oldest first so the review queue
// is worked in submission order.
func (svc *service) ListPending(ctx context.Context) ([]Suggestion, error) {
	return svc.repo.FilterSuggestions(ctx, QueryFilter{Status: StatusPending, OldestFirst: true})
}

// ListAll lists suggestions matching the filter with status counts computed
// over the filtered set.
func (svc *service) ListAll(ctx context.Context, filter QueryFilter) (ListResult, error) {
	sugs, err := svc.repo.FilterSuggestions(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}

	res := ListResult{Suggestions: sugs, Counts: Counts{Total: len(sugs)}}
	for _, sug := range sugs {
		switch sug.Status {
		case StatusPending:
			res.Counts.Pending++
		case StatusApproved:
			res.Counts.Approved++
		case StatusRejected:
			res.Counts.Rejected++
		}
	}
	return res, nil
}

// getPending fetches a suggestion still awaiting a decision.
func (svc *service) getPending(ctx context.Context, id string) (Suggestion, error) {
	sug, err := svc.repo.GetSuggestionByID(ctx, id)
	if err != nil {
		return Suggestion{}, err
	}
	if sug.Status != StatusPending {
		return Suggestion{}, ErrAlreadyProcessed
	}
	return sug, nil
}

// Approve applies the suggested event mutation and only then marks the
// suggestion approved. If the mutation fails the suggestion stays pending and
// the error is surfaced. There is no transaction spanning both stores: a crash
// between the mutation and the status update leaves the mutation applied with
// the suggestion still pending.
func (svc *service) Approve(ctx context.Context, adminID, id, message string) (ApprovalResult, error) {
	sug, err := svc.getPending(ctx, id)
	if err != nil {
		return ApprovalResult{}, err
	}

	res := ApprovalResult{}
	switch sug.Kind {
	case KindNew:
		ne := sug.Payload.toNewEvent()
		now := time.Now().UTC()
		evt, err := svc.events.CreateEvent(ctx, event.Event{
			Title:       ne.Title,
			Type:        ne.Type,
			Date:        ne.Date.UTC(),
			Time:        ne.Time,
			Subject:     ne.Subject,
			Description: ne.Description,
			Recurring:   ne.Recurring,
			DaysOfWeek:  ne.DaysOfWeek,
			UserID:      adminID, // the approving admin owns the resulting event
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return ApprovalResult{}, errors.Wrap(err, "creating suggested event")
		}
		res.Event = &evt

	case KindUpdate:
		evt, err := svc.events.GetEventByID(ctx, sug.EventID)
		if err != nil {
			if errors.Cause(err) == event.ErrNotFound {
				return ApprovalResult{}, ErrEventNotFound
			}
			return ApprovalResult{}, errors.Wrap(err, "resolving target event")
		}
		evt, err = svc.events.UpdateEvent(ctx, sug.Payload.toUpdateEvent().Apply(evt))
		if err != nil {
			return ApprovalResult{}, errors.Wrap(err, "updating suggested event")
		}
		res.Event = &evt

	case KindDelete:
		evt, err := svc.events.GetEventByID(ctx, sug.EventID)
		if err != nil {
			if errors.Cause(err) == event.ErrNotFound {
				return ApprovalResult{}, ErrEventNotFound
			}
			return ApprovalResult{}, errors.Wrap(err, "resolving target event")
		}
		if err = svc.events.DeleteEvent(ctx, sug.EventID); err != nil {
			return ApprovalResult{}, errors.Wrap(err, "deleting suggested event")
		}
		res.Event = &evt
		res.Deleted = true
	}

	if message == "" {
		message = DefaultApproveMessage
	}
	sug, err = svc.resolve(ctx, sug, StatusApproved, adminID, message)
	if err != nil {
		return ApprovalResult{}, err
	}
	res.Suggestion = sug
	return res, nil
}

func (svc *service) Reject(ctx context.Context, adminID, id, message string) (Suggestion, error) {
	message = core.CleanString(message)
	if message == "" {
		return Suggestion{}, core.NewValidationError(errRejectMessage, core.FieldError{Field: "message", Error: errRejectMessage.Error()})
	}

	sug, err := svc.getPending(ctx, id)
	if err != nil {
		return Suggestion{}, err
	}
	return svc.resolve(ctx, sug, StatusRejected, adminID, message)
}

func (svc *service) resolve(ctx context.Context, sug Suggestion, status, adminID, message string) (Suggestion, error) {
	now := time.Now().UTC()
	sug.Status = status
	sug.AdminResponse = &AdminResponse{Message: message, RespondedAt: now, RespondedBy: adminID}
	sug.UpdatedAt = now

	sug, err := svc.repo.UpdateSuggestion(ctx, sug)
	if err != nil {
		return Suggestion{}, errors.Wrap(err, "saving suggestion resolution")
	}
	svc.notifyAuthor(ctx, sug)
	return sug, nil
}

type resolvedEmailData struct {
	Name    string
	Status  string
	Reason  string
	Message string
}

// notifyAuthor emails the author about the decision, best effort.
func (svc *service) notifyAuthor(ctx context.Context, sug Suggestion) {
	author, err := svc.users.GetUserByID(ctx, sug.UserID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: author.Name, Address: author.Email}},
		Subject:      "Your suggestion was " + sug.Status,
		TemplateName: "suggestion-resolved",
		TemplateData: resolvedEmailData{
			Name:    author.Name,
			Status:  sug.Status,
			Reason:  sug.Reason,
			Message: sug.AdminResponse.Message,
		},
	})
}

// Delete removes a suggestion while it is still pending. Only the author or an
// admin may delete; processed suggestions are immutable history.
func (svc *service) Delete(ctx context.Context, requesterID string, admin bool, id string) error {
	sug, err := svc.repo.GetSuggestionByID(ctx, id)
	if err != nil {
		return err
	}
	if !admin && sug.UserID != requesterID {
		return ErrForbidden
	}
	if sug.Status != StatusPending {
		return ErrAlreadyProcessed
	}
	return svc.repo.DeleteSuggestion(ctx, id)
}
