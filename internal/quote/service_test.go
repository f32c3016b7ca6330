package quote_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/common"
	"github.com/noah-isme/backend-showroom/internal/events"
	"github.com/noah-isme/backend-showroom/internal/lock"
	"github.com/noah-isme/backend-showroom/internal/pricing"
	"github.com/noah-isme/backend-showroom/internal/quote"
	"github.com/noah-isme/backend-showroom/internal/selection"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fakeCatalog struct {
	mu   sync.Mutex
	snap catalog.Snapshot
	err  error
}

func (f *fakeCatalog) Current(context.Context) (catalog.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return catalog.Snapshot{}, f.err
	}
	return f.snap, nil
}

func (f *fakeCatalog) set(snap catalog.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

type memoryEventStore struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (m *memoryEventStore) InsertEvent(_ context.Context, topic, sessionID string, payload []byte) (events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return events.Event{}, m.err
	}
	ev := events.Event{ID: uuid.New(), Topic: topic, SessionID: sessionID, Payload: payload, OccurredAt: time.Now().UTC()}
	m.events = append(m.events, ev)
	return ev, nil
}

func (m *memoryEventStore) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Topic)
	}
	return out
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, events.Event) error {
	return errors.New("broker down")
}

func showroomSnapshot(gen int64) catalog.Snapshot {
	return catalog.Snapshot{
		Generation: gen,
		Models:     []catalog.VehicleModel{{ID: "vf8", Name: "VF 8"}},
		Versions: []catalog.VehicleVersion{
			{ID: "vf8-eco", ModelID: "vf8", Name: "Eco", BasePrice: d(1_000_000_000)},
		},
		Promotions: []catalog.PromotionRule{
			{ID: "vf8-a", Name: "Launch", Value: d(5), ValueType: catalog.ValuePercent, TargetType: catalog.TargetInvoice, Priority: 1, Active: true, Scope: catalog.Scope{ModelIDs: []string{"vf8"}}},
			{ID: "vf8-b", Name: "Cash", Value: d(10_000_000), ValueType: catalog.ValueFixed, TargetType: catalog.TargetInvoice, Priority: 2, Active: true, Scope: catalog.Scope{ModelIDs: []string{"vf8"}}},
		},
		Fees: []catalog.FeeRule{
			{ID: "road", Name: "Road", Value: d(1_560_000), ValueType: catalog.ValueFixed, Active: true},
		},
		Banks: []catalog.BankConfig{
			{ID: "vcb", Name: "VCB", MaxLoanRatio: d(80), Packages: []catalog.BankPackage{{Name: "1 năm", AnnualRatePercent: d(7)}}},
		},
	}
}

type fixture struct {
	svc     *quote.Service
	catalog *fakeCatalog
	store   *selection.Store
	events  *memoryEventStore
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T, notifiers ...events.Notifier) fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cat := &fakeCatalog{snap: showroomSnapshot(1)}
	store := selection.NewStore(client, time.Hour)
	evStore := &memoryEventStore{}
	ids := 0
	svc, err := quote.NewService(quote.ServiceConfig{
		Catalog:  cat,
		Sessions: store,
		Locker:   lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
		LockTTL:  time.Second,
		Emitter:  &events.Bus{Store: evStore, Notifiers: notifiers},
		Defaults: selection.DefaultSettings(),
		NewID: func() string {
			ids++
			return "s-" + strconv.Itoa(ids)
		},
	})
	require.NoError(t, err)
	return fixture{svc: svc, catalog: cat, store: store, events: evStore, mr: mr}
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.HTTPStatus)
}

func pickVF8() []selection.Event {
	return []selection.Event{
		{Type: selection.ModelChanged, ModelID: "vf8"},
		{Type: selection.VersionChanged, VersionID: "vf8-eco"},
	}
}

func TestNewServiceRequiresCatalog(t *testing.T) {
	_, err := quote.NewService(quote.ServiceConfig{})
	require.Error(t, err)
}

func TestComputeStateless(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Compute(context.Background(), pricing.Selections{
		ModelID:           "vf8",
		VersionID:         "vf8-eco",
		AppliedPromotions: []string{"vf8-b"},
	})
	require.True(t, res.ListPrice.Equal(d(1_000_000_000)))
	require.True(t, res.FinalInvoicePrice.Equal(d(990_000_000)))
}

func TestComputeDegradesWhenCatalogFails(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = errors.New("db down")
	res := f.svc.Compute(context.Background(), pricing.Selections{ModelID: "vf8", VersionID: "vf8-eco"})
	require.Empty(t, res.VersionID)
	require.True(t, res.ListPrice.IsZero())
}

func TestCreateSessionPersistsAndEmits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)
	require.Equal(t, "s-1", session.ID)
	require.Equal(t, []string{"vf8-a", "vf8-b"}, session.Selections.AppliedPromotions)
	require.Equal(t, "vcb", session.Selections.BankID)
	require.Equal(t, int64(1), session.CatalogGeneration)
	require.Equal(t, "20", session.PrepaidPercent)
	require.True(t, session.Quote.FinalInvoicePrice.Equal(d(940_000_000)))

	stored, err := f.store.Load(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "vf8-eco", stored.Selections.VersionID)
	require.True(t, stored.FeesInitialized)
	require.Equal(t, []string{events.TopicSessionCreated}, f.events.topics())
}

func TestCreateSessionRejectsClientCatalogEvents(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSession(context.Background(), []selection.Event{{Type: selection.CatalogLoaded}})
	requireAppError(t, err, "INVALID_EVENT", http.StatusBadRequest)
	require.Empty(t, f.mr.Keys())
}

func TestGetSessionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetSession(context.Background(), "missing")
	requireAppError(t, err, "SESSION_NOT_FOUND", http.StatusNotFound)
}

func TestGetSessionCorrupt(t *testing.T) {
	f := newFixture(t)
	f.mr.HSet(selection.SessionKey("bad"), "package_index", "two")
	_, err := f.svc.GetSession(context.Background(), "bad")
	requireAppError(t, err, "SESSION_CORRUPT", http.StatusConflict)
}

func TestApplyEventsUpdatesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)

	session, err := f.svc.ApplyEvents(ctx, "s-1", []selection.Event{
		{Type: selection.PromotionToggled, PromotionID: "vf8-a", Enabled: false},
		{Type: selection.PrepaidPercentChanged, Value: "30"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"vf8-b"}, session.Selections.AppliedPromotions)
	require.Equal(t, "30", session.PrepaidPercent)
	require.True(t, session.Quote.FinalInvoicePrice.Equal(d(990_000_000)))

	again, err := f.svc.GetSession(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, session.Selections.AppliedPromotions, again.Selections.AppliedPromotions)
	require.False(t, f.mr.Exists(lock.SessionKey("s-1")))
}

func TestApplyEventsRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)

	_, err = f.svc.ApplyEvents(ctx, "s-1", []selection.Event{{Type: "teleport"}})
	requireAppError(t, err, "INVALID_EVENT", http.StatusBadRequest)

	stored, err := f.store.Load(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, []string{"vf8-a", "vf8-b"}, stored.Selections.AppliedPromotions)
}

func TestApplyEventsBusyWhileLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)
	require.NoError(t, f.mr.Set(lock.SessionKey("s-1"), "someone-else"))

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = f.svc.ApplyEvents(ctx, "s-1", []selection.Event{{Type: selection.PremiumColorToggled, Enabled: true}})
	requireAppError(t, err, "SESSION_BUSY", http.StatusConflict)
}

func TestGetSessionAppliesCatalogRefreshWithoutSaving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)

	next := showroomSnapshot(2)
	next.Promotions = next.Promotions[1:]
	f.catalog.set(next)

	session, err := f.svc.GetSession(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), session.CatalogGeneration)
	require.Equal(t, []string{"vf8-b"}, session.Selections.AppliedPromotions)

	stored, err := f.store.Load(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.CatalogGeneration)
}

func TestSessionCreatedDuringCatalogOutageRecovers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.err = errors.New("db down")

	session, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)
	require.Empty(t, session.Selections.AppliedPromotions)
	require.Zero(t, session.CatalogGeneration)

	f.catalog.err = nil
	f.catalog.set(showroomSnapshot(2))

	session, err = f.svc.GetSession(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, []string{"vf8-a", "vf8-b"}, session.Selections.AppliedPromotions)
	require.True(t, session.Quote.FinalInvoicePrice.Equal(d(940_000_000)))

	session, err = f.svc.ApplyEvents(ctx, "s-1", []selection.Event{
		{Type: selection.PromotionToggled, PromotionID: "vf8-a", Enabled: false},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"vf8-b"}, session.Selections.AppliedPromotions)

	f.catalog.set(showroomSnapshot(3))
	session, err = f.svc.GetSession(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, int64(3), session.CatalogGeneration)
	require.Equal(t, []string{"vf8-b"}, session.Selections.AppliedPromotions)
}

func TestIssueRequiresVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, []selection.Event{{Type: selection.ModelChanged, ModelID: "vf8"}})
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, "s-1")
	requireAppError(t, err, "QUOTE_INCOMPLETE", http.StatusUnprocessableEntity)
}

func TestIssueRecordsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)

	issued, err := f.svc.Issue(ctx, "s-1")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, issued.EventID)
	require.False(t, issued.IssuedAt.IsZero())
	require.Equal(t, "vf8-eco", issued.Session.Quote.VersionID)
	require.Equal(t, []string{events.TopicSessionCreated, events.TopicQuoteIssued}, f.events.topics())
}

func TestIssueSucceedsWhenOnlyNotifierFails(t *testing.T) {
	f := newFixture(t, failingNotifier{})
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)

	issued, err := f.svc.Issue(ctx, "s-1")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, issued.EventID)
}

func TestIssueFailsWhenEventNotPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateSession(ctx, pickVF8())
	require.NoError(t, err)
	f.events.err = errors.New("insert failed")

	_, err = f.svc.Issue(ctx, "s-1")
	require.Error(t, err)
}

func TestScheduleDelegatesToPricing(t *testing.T) {
	f := newFixture(t)
	sched := f.svc.Schedule(pricing.ScheduleInput{
		LoanAmount:   d(120_000_000),
		TermYears:    1,
		StartDate:    time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		FloatingRate: d(12),
	})
	require.Len(t, sched.Rows, 12)
	require.True(t, sched.Rows[0].Principal.Equal(d(10_000_000)))
}
