package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-showroom/internal/common"
	"github.com/noah-isme/backend-showroom/internal/pricing"
	"github.com/noah-isme/backend-showroom/internal/selection"
)

const maxEventsPerRequest = 64

// Handler exposes quote and session endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service   *Service
	Validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = validator.New()
	}
	return &Handler{service: cfg.Service, validate: v}
}

type eventsRequest struct {
	Events []selection.Event `json:"events" validate:"max=64,dive"`
}

type scheduleRequest struct {
	pricing.ScheduleInput
}

func (r scheduleRequest) validate() error {
	if r.TermYears <= 0 || r.TermYears > 35 {
		return errors.New("termYears must be between 1 and 35")
	}
	if r.LoanAmount.IsNegative() {
		return errors.New("loanAmount must not be negative")
	}
	for _, st := range r.Stages {
		if st.Months < 0 || st.AnnualRatePercent.IsNegative() {
			return errors.New("stages must have non-negative months and rates")
		}
	}
	if r.FloatingRate.IsNegative() {
		return errors.New("floatingRate must not be negative")
	}
	return nil
}

// Compute handles POST /api/v1/quotes.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quote service not configured", nil)
		return
	}
	var sel pricing.Selections
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Compute(r.Context(), sel)})
}

// CreateSession handles POST /api/v1/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quote service not configured", nil)
		return
	}
	var req eventsRequest
	if r.ContentLength != 0 {
		if !h.decodeEvents(w, r, &req) {
			return
		}
	}
	session, err := h.service.CreateSession(r.Context(), req.Events)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": session})
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quote service not configured", nil)
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": session})
}

// ApplyEvents handles POST /api/v1/sessions/{id}/events.
func (h *Handler) ApplyEvents(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quote service not configured", nil)
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req eventsRequest
	if !h.decodeEvents(w, r, &req) {
		return
	}
	if len(req.Events) == 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "events are required", nil)
		return
	}
	session, err := h.service.ApplyEvents(r.Context(), id, req.Events)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": session})
}

// Issue handles POST /api/v1/sessions/{id}/issue.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quote service not configured", nil)
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	issued, err := h.service.Issue(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": issued})
}

// Schedule handles POST /api/v1/loans/schedule.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quote service not configured", nil)
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := req.validate(); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Schedule(req.ScheduleInput)})
}

func (h *Handler) decodeEvents(w http.ResponseWriter, r *http.Request, req *eventsRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return false
	}
	if len(req.Events) > maxEventsPerRequest {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "too many events", nil)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidationFailed, "invalid events", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Namespace()+": "+fe.Tag())
	}
	return out
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "session id is required", nil)
		return "", false
	}
	return id, true
}

