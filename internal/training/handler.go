package training

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

//go:generate mockgen -source=$GOFILE -destination=repo_mocks_test.go -package=training_test

type trainingRepo interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	Update(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, userID, id string) error
}

const (
	collection     = "training"
	msgSaveFailure = "No se ha podido guardar el entrenamiento. Inténtalo más tarde."
)

type DeleteEntryResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo    trainingRepo
	metrics *metrics.Manager
	now     func() time.Time
}

func NewHandler(repo trainingRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
		now:     time.Now,
	}
}

func (handler *Handler) WithClock(now func() time.Time) *Handler {
	handler.now = now
	return handler
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.add")
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
		log.Errorf("failed to add training entry [%s] for %s: %s", entry.Type, userID, err)
		http.Error(w, msgSaveFailure, http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterEntriesAdded.WithLabelValues(collection).Inc()
	log.Debugf("training entry added: %s [%s] %d min", added.ID, added.Type, added.Minutes)

	writeJSON(w, added, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.update")
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
		log.Errorf("update training entry %s: %s", id, err)
		http.Error(w, msgSaveFailure, http.StatusInternalServerError)
		return
	}

	writeJSON(w, entry, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.delete")
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
		log.Errorf("delete training entry %s: %s", id, err)
		http.Error(w, "error, entry not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterEntriesDeleted.WithLabelValues(collection).Inc()
	writeJSON(w, DeleteEntryResponse{DeletedID: id}, http.StatusOK)
}

func (handler *Handler) decodeEntry(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return nil, false
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Tracef("training entry, unmarshal json: %s", err)
		http.Error(w, "invalid training entry", http.StatusBadRequest)
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
		http.Error(w, "invalid training entry", http.StatusBadRequest)
		return nil, false
	}

	return &entry, true
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal training response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, status)
}
