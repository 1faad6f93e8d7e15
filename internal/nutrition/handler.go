package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/identity"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=repo_mocks_test.go -package=nutrition_test

type nutritionRepo interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	Get(ctx context.Context, userID, id string) (*Entry, error)
	Update(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, userID, id string) error
}

const collection = "nutrition"

type DeleteEntryResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo    nutritionRepo
	metrics *metrics.Manager
	now     func() time.Time
}

func NewHandler(repo nutritionRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
		now:     time.Now,
	}
}

// WithClock replaces the clock used to stamp entries posted without a fecha
func (handler *Handler) WithClock(now func() time.Time) *Handler {
	handler.now = now
	return handler
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.nutrition.add")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	entry, ok := handler.decodeEntry(w, r)
	if !ok {
		return
	}
	entry.UserID = userID

	added, err := handler.repo.Add(ctx, *entry)
	if err != nil {
		log.Errorf("failed to add nutrition entry [%s] for %s: %s", entry.TimestampKey, userID, err)
		http.Error(w, "No se ha podido guardar el registro. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterEntriesAdded.WithLabelValues(collection).Inc()
	log.Debugf("nutrition entry added: %s [%s]", added.ID, added.TimestampKey)

	handler.writeEntry(w, *added, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.nutrition.get")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	entry, err := handler.repo.Get(ctx, userID, id)
	if errors.Is(err, ErrEntryNotFound) {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get nutrition entry %s: %s", id, err)
		http.Error(w, "could not load", http.StatusInternalServerError)
		return
	}

	handler.writeEntry(w, *entry, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.nutrition.update")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	entry, ok := handler.decodeEntry(w, r)
	if !ok {
		return
	}
	entry.ID = id
	entry.UserID = userID

	if err := handler.repo.Update(ctx, *entry); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("update nutrition entry %s: %s", id, err)
		http.Error(w, "No se ha podido guardar el registro. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	handler.writeEntry(w, *entry, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.nutrition.delete")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete nutrition entry %s: %s", id, err)
		http.Error(w, "error, entry not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterEntriesDeleted.WithLabelValues(collection).Inc()

	resp, err := json.Marshal(DeleteEntryResponse{DeletedID: id})
	if err != nil {
		log.Errorf("marshal delete response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

// decodeEntry reads, normalizes and validates the request body.
// It writes the error response itself, ok is false in that case.
func (handler *Handler) decodeEntry(w http.ResponseWriter, r *http.Request) (_ *Entry, ok bool) {
	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return nil, false
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Tracef("nutrition entry, unmarshal json: %s", err)
		http.Error(w, "invalid nutrition entry", http.StatusBadRequest)
		return nil, false
	}

	if entry.TimestampKey == "" {
		entry.TimestampKey = datekey.Hour(handler.now())
	}
	entry.Normalize()

	if err := entry.Validate(); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Message, http.StatusBadRequest)
			return nil, false
		}
		http.Error(w, "invalid nutrition entry", http.StatusBadRequest)
		return nil, false
	}

	return &entry, true
}

func (handler *Handler) writeEntry(w http.ResponseWriter, entry Entry, status int) {
	entryJson, err := json.Marshal(EntryView{Entry: entry, TotalCalories: entry.TotalCalories()})
	if err != nil {
		log.Errorf("marshal nutrition entry: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, status)
}
