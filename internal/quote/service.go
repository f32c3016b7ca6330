// Package quote serves stateless quotes and persisted quote sessions driven by
// selection events.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/common"
	"github.com/noah-isme/backend-showroom/internal/events"
	"github.com/noah-isme/backend-showroom/internal/lock"
	"github.com/noah-isme/backend-showroom/internal/obs"
	"github.com/noah-isme/backend-showroom/internal/pricing"
	"github.com/noah-isme/backend-showroom/internal/selection"
)

// CatalogSource provides the current catalog snapshot.
type CatalogSource interface {
	Current(ctx context.Context) (catalog.Snapshot, error)
}

// SessionStore persists selection state per session.
type SessionStore interface {
	Save(ctx context.Context, id string, st selection.State) error
	Load(ctx context.Context, id string) (selection.State, error)
}

// Locker serialises work on a key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Emitter records domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, sessionID string, payload any) (events.Event, error)
}

// Session is a persisted selection state with its freshly computed quote.
type Session struct {
	ID                string             `json:"id"`
	Selections        pricing.Selections `json:"selections"`
	PrepaidPercent    string             `json:"prepaidPercent"`
	CatalogGeneration int64              `json:"catalogGeneration"`
	Quote             pricing.Result     `json:"quote"`
}

// Issued is the record of an issued quote.
type Issued struct {
	EventID  uuid.UUID `json:"eventId"`
	IssuedAt time.Time `json:"issuedAt"`
	Session  Session   `json:"session"`
}

// Service coordinates the catalog, the selection controller and session storage.
type Service struct {
	catalog  CatalogSource
	sessions SessionStore
	locker   Locker
	lockTTL  time.Duration
	emitter  Emitter
	defaults selection.Defaults
	engine   pricing.Engine
	logger   zerolog.Logger
	newID    func() string
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Catalog  CatalogSource
	Sessions SessionStore
	Locker   Locker
	LockTTL  time.Duration
	Emitter  Emitter
	Defaults selection.Defaults
	Logger   *zerolog.Logger
	NewID    func() string
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("quote: catalog source is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "quote").Logger()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{
		catalog:  cfg.Catalog,
		sessions: cfg.Sessions,
		locker:   cfg.Locker,
		lockTTL:  ttl,
		emitter:  cfg.Emitter,
		defaults: cfg.Defaults,
		engine:   pricing.Engine{LoanTerms: cfg.Defaults.LoanTerms},
		logger:   logger,
		newID:    newID,
	}, nil
}

// snapshot returns the current catalog. Failures degrade to the empty
// snapshot so callers still get a well-formed (empty) quote.
func (s *Service) snapshot(ctx context.Context) catalog.Snapshot {
	snap, err := s.catalog.Current(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("quote_catalog_unavailable")
		return snap.Normalize()
	}
	return snap
}

// Compute prices sel against the current catalog without touching any session.
func (s *Service) Compute(ctx context.Context, sel pricing.Selections) pricing.Result {
	start := time.Now()
	res := s.engine.Compute(s.snapshot(ctx), sel)
	result := "ok"
	if res.VersionID == "" {
		result = "empty"
	}
	obs.RecordQuoteCompute(result, float64(time.Since(start).Microseconds())/1000)
	return res
}

// CreateSession starts a session from the defaults, applies the initial
// events and stores it.
func (s *Service) CreateSession(ctx context.Context, initial []selection.Event) (Session, error) {
	if err := s.requireSessions(); err != nil {
		return Session{}, err
	}
	ctrl := selection.New(s.defaults)
	if err := ctrl.Apply(selection.Loaded(s.snapshot(ctx))); err != nil {
		return Session{}, err
	}
	if err := s.apply(ctrl, initial); err != nil {
		return Session{}, err
	}
	id := s.newID()
	if err := s.sessions.Save(ctx, id, ctrl.State()); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	if s.emitter != nil {
		if _, err := s.emitter.Emit(ctx, events.TopicSessionCreated, id, map[string]any{"sessionId": id}); err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("session_created_event_failed")
		}
	}
	return s.view(id, ctrl), nil
}

// GetSession loads a session and prices it against the current catalog. A
// newer catalog generation is applied as a refresh but not persisted.
func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	ctrl, err := s.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return s.view(id, ctrl), nil
}

// ApplyEvents applies events to a session under its lock and persists the result.
func (s *Service) ApplyEvents(ctx context.Context, id string, evs []selection.Event) (Session, error) {
	if s.locker == nil {
		return Session{}, common.NewAppError(common.CodeInternal, "session lock not configured", http.StatusInternalServerError, nil)
	}
	var out Session
	err := s.locker.WithLock(ctx, lock.SessionKey(id), s.lockTTL, func(ctx context.Context) error {
		ctrl, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := s.apply(ctrl, evs); err != nil {
			return err
		}
		if err := s.sessions.Save(ctx, id, ctrl.State()); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		out = s.view(id, ctrl)
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.Warn().Str("session_id", id).Msg("session_lock_contended")
			return Session{}, common.NewAppError(common.CodeSessionBusy, "session is being updated", http.StatusConflict, err)
		}
		return Session{}, err
	}
	return out, nil
}

// Issue recomputes the session quote and records a quote.issued event.
func (s *Service) Issue(ctx context.Context, id string) (Issued, error) {
	if s.emitter == nil {
		return Issued{}, common.NewAppError(common.CodeInternal, "event bus not configured", http.StatusInternalServerError, nil)
	}
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return Issued{}, err
	}
	if session.Quote.VersionID == "" {
		obs.RecordQuoteIssued("rejected")
		return Issued{}, common.NewAppError(common.CodeQuoteIncomplete, "select a model and version before issuing", http.StatusUnprocessableEntity, nil)
	}
	ev, err := s.emitter.Emit(ctx, events.TopicQuoteIssued, id, session)
	if err != nil && ev.ID == uuid.Nil {
		obs.RecordQuoteIssued("error")
		return Issued{}, fmt.Errorf("issue quote: %w", err)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("quote_issued_notify_failed")
	}
	obs.RecordQuoteIssued("ok")
	s.logger.Info().Str("session_id", id).Str("event_id", ev.ID.String()).Msg("quote_issued")
	return Issued{EventID: ev.ID, IssuedAt: ev.OccurredAt, Session: session}, nil
}

// Schedule builds a declining-balance repayment schedule.
func (s *Service) Schedule(in pricing.ScheduleInput) pricing.Schedule {
	return pricing.BuildSchedule(in)
}

func (s *Service) requireSessions() error {
	if s.sessions == nil {
		return common.NewAppError(common.CodeInternal, "session store not configured", http.StatusInternalServerError, nil)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*selection.Controller, error) {
	if err := s.requireSessions(); err != nil {
		return nil, err
	}
	st, err := s.sessions.Load(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, selection.ErrSessionNotFound):
			return nil, common.NewAppError(common.CodeSessionNotFound, "session not found", http.StatusNotFound, err)
		case errors.Is(err, selection.ErrCorruptState):
			return nil, common.NewAppError(common.CodeSessionCorrupt, "session state is unreadable", http.StatusConflict, err)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	ctrl := selection.New(s.defaults)
	ctrl.Restore(st)
	if err := ctrl.Apply(selection.Loaded(s.snapshot(ctx))); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func (s *Service) apply(ctrl *selection.Controller, evs []selection.Event) error {
	for i, ev := range evs {
		if ev.Type == selection.CatalogLoaded {
			return common.NewAppError(common.CodeInvalidEvent, fmt.Sprintf("event %d: catalog events are server-side only", i), http.StatusBadRequest, nil)
		}
		if err := ctrl.Apply(ev); err != nil {
			if errors.Is(err, selection.ErrUnknownEvent) {
				return common.NewAppError(common.CodeInvalidEvent, fmt.Sprintf("event %d: unknown type %q", i, ev.Type), http.StatusBadRequest, err)
			}
			return err
		}
		obs.RecordSelectionEvent(string(ev.Type))
	}
	return nil
}

func (s *Service) view(id string, ctrl *selection.Controller) Session {
	st := ctrl.State()
	return Session{
		ID:                id,
		Selections:        st.Selections,
		PrepaidPercent:    st.PrepaidPercent.String(),
		CatalogGeneration: st.CatalogGeneration,
		Quote:             ctrl.Quote(),
	}
}
