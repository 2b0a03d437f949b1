package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"leadflow_backend/internal/calls/domain"
	callrepo "leadflow_backend/internal/calls/repository"
	"leadflow_backend/internal/email"
	leaddomain "leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/tasks"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tiers"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeCallStore struct {
	monthCount int
	created    []callrepo.CreateParams
}

func (f *fakeCallStore) Create(_ context.Context, params callrepo.CreateParams) (*domain.Call, error) {
	f.created = append(f.created, params)
	return &domain.Call{
		ID:          uuid.New(),
		LeadID:      params.LeadID,
		Status:      domain.StatusScheduled,
		Priority:    params.Priority,
		ScheduledAt: params.ScheduledAt,
		Timezone:    params.Timezone,
		MaxAttempts: params.MaxAttempts,
	}, nil
}

func (f *fakeCallStore) GetByID(context.Context, uuid.UUID) (*domain.Call, error) {
	return nil, apperr.NotFound("call not found")
}

func (f *fakeCallStore) CountForOwnerMonth(context.Context, uuid.UUID, time.Time) (int, error) {
	return f.monthCount, nil
}

func (f *fakeCallStore) Start(context.Context, uuid.UUID) (*domain.Call, error) { return nil, nil }
func (f *fakeCallStore) Cancel(context.Context, uuid.UUID) error                { return nil }
func (f *fakeCallStore) Complete(context.Context, uuid.UUID, string, *string) (*domain.Call, error) {
	return nil, nil
}
func (f *fakeCallStore) ListUpcoming(context.Context, int) ([]*domain.Call, error) { return nil, nil }

type fakeLeadReader struct {
	lead          *leaddomain.Lead
	recentPage    bool
	unsubscribed  bool
	signalLookups int
}

func (f *fakeLeadReader) GetByID(context.Context, uuid.UUID) (*leaddomain.Lead, error) {
	return f.lead, nil
}

func (f *fakeLeadReader) List(context.Context, leadrepo.ListFilter) ([]*leaddomain.Lead, error) {
	return nil, nil
}

func (f *fakeLeadReader) EngagementStats(context.Context, uuid.UUID) (*leaddomain.EngagementStats, error) {
	return &leaddomain.EngagementStats{}, nil
}

func (f *fakeLeadReader) HasRecentPageInteraction(context.Context, uuid.UUID, time.Time) (bool, error) {
	f.signalLookups++
	return f.recentPage, nil
}

func (f *fakeLeadReader) HasEngagementOfTypes(_ context.Context, _ uuid.UUID, types []leaddomain.EngagementType) (bool, error) {
	f.signalLookups++
	for _, t := range types {
		if t == leaddomain.EngagementUnsub {
			return f.unsubscribed, nil
		}
	}
	return false, nil
}

type fakeEnqueuer struct {
	enqueued []taskrepo.EnqueueParams
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, params taskrepo.EnqueueParams) (*tasks.Task, error) {
	f.enqueued = append(f.enqueued, params)
	return &tasks.Task{ID: uuid.New()}, nil
}

type fakeSender struct{}

func (fakeSender) Send(context.Context, email.Message) error { return nil }

func strPtr(s string) *string { return &s }

func testLead(tier string) *leaddomain.Lead {
	return &leaddomain.Lead{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		Email:    "jane@acme.io",
		Phone:    strPtr("+12125551234"),
		Tier:     tier,
		Timezone: "America/New_York",
	}
}

func newTestService(t *testing.T, store *fakeCallStore, leads *fakeLeadReader, enqueuer *fakeEnqueuer) *Service {
	t.Helper()
	registry, err := tiers.Load("")
	if err != nil {
		t.Fatal(err)
	}
	log := logger.New("test")
	return New(store, leads, registry, enqueuer, fakeSender{}, events.NewInMemoryBus(log), log)
}

// midAfternoonSlot returns a future time that falls inside the calling
// window in the lead's timezone.
func midAfternoonSlot(t *testing.T, tz string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Now().In(loc).AddDate(0, 0, 2)
	return time.Date(base.Year(), base.Month(), base.Day(), 15, 0, 0, 0, loc)
}

func TestScheduleCapsCallsPerOwner(t *testing.T) {
	lead := testLead("starter") // starter allows 10 calls a month
	store := &fakeCallStore{monthCount: 10}
	leads := &fakeLeadReader{lead: lead, recentPage: true}
	svc := newTestService(t, store, leads, &fakeEnqueuer{})

	_, err := svc.Schedule(context.Background(), lead.ID, nil, "high")

	if !apperr.Is(err, apperr.KindLimitExceeded) {
		t.Fatalf("err = %v, want limit exceeded", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("created %d calls, want 0", len(store.created))
	}
	// A capped account should never reach the engagement lookups.
	if leads.signalLookups != 0 {
		t.Fatalf("signal lookups = %d, want 0", leads.signalLookups)
	}
}

func TestScheduleRejectsUnsubscribedLead(t *testing.T) {
	lead := testLead("growth")
	store := &fakeCallStore{}
	leads := &fakeLeadReader{lead: lead, recentPage: true, unsubscribed: true}
	svc := newTestService(t, store, leads, &fakeEnqueuer{})

	at := midAfternoonSlot(t, lead.Timezone)
	_, err := svc.Schedule(context.Background(), lead.ID, &at, "high")

	if !apperr.Is(err, apperr.KindCompliance) {
		t.Fatalf("err = %v, want compliance", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("created %d calls, want 0", len(store.created))
	}
}

func TestScheduleStoresVerdictAndAttemptBudget(t *testing.T) {
	lead := testLead("growth") // growth allows 3 follow-up attempts
	store := &fakeCallStore{}
	leads := &fakeLeadReader{lead: lead, recentPage: true}
	enqueuer := &fakeEnqueuer{}
	svc := newTestService(t, store, leads, enqueuer)

	at := midAfternoonSlot(t, lead.Timezone)
	call, err := svc.Schedule(context.Background(), lead.ID, &at, "high")
	if err != nil {
		t.Fatal(err)
	}
	if call == nil || len(store.created) != 1 {
		t.Fatalf("created %d calls, want 1", len(store.created))
	}

	params := store.created[0]
	if params.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q, want America/New_York", params.Timezone)
	}
	if params.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", params.MaxAttempts)
	}
	if params.DurationMins != 30 {
		t.Errorf("DurationMins = %d, want 30", params.DurationMins)
	}

	var verdict domain.ComplianceResult
	if err := json.Unmarshal(params.Compliance, &verdict); err != nil {
		t.Fatalf("stored verdict does not decode: %v", err)
	}
	if !verdict.Compliant {
		t.Error("stored verdict is non-compliant, want compliant")
	}
	if len(verdict.Requirements) != 4 {
		t.Errorf("stored verdict has %d requirements, want 4", len(verdict.Requirements))
	}

	// A call two days out gets every reminder.
	if len(enqueuer.enqueued) != len(domain.ReminderOffsets) {
		t.Errorf("enqueued %d reminders, want %d", len(enqueuer.enqueued), len(domain.ReminderOffsets))
	}
	for _, params := range enqueuer.enqueued {
		if params.Type != tasks.TypeSendReminder {
			t.Errorf("enqueued task type = %s, want %s", params.Type, tasks.TypeSendReminder)
		}
	}
}
