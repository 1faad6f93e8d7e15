package measurements

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

//go:generate mockgen -source=$GOFILE -destination=repo_mocks_test.go -package=measurements_test

type measurementsRepo interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	Update(ctx context.Context, entry Entry) (*Entry, error)
	Delete(ctx context.Context, userID, id string) error
}

const collection = "progress"

type DeleteEntryResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo    measurementsRepo
	metrics *metrics.Manager
	now     func() time.Time
}

func NewHandler(repo measurementsRepo, metricsManager *metrics.Manager) *Handler {
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
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.measurements.add")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	entry.UserID = userID
	if entry.DateKey == "" {
		entry.DateKey = datekey.Day(handler.now())
	}

	if !validate(w, entry.Validate()) {
		return
	}

	added, err := handler.repo.Add(ctx, *entry)
	if err != nil {
		log.Errorf("failed to add progress entry [%s] for %s: %s", entry.DateKey, userID, err)
		http.Error(w, "No se han podido guardar las medidas. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterEntriesAdded.WithLabelValues(collection).Inc()
	writeJSON(w, added, http.StatusCreated)
}

// HandleUpdate replaces every measured value of the entry, a value left out becomes null
func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.measurements.update")
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

	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	entry.ID = id
	entry.UserID = userID

	if !validate(w, entry.ValidateValues()) {
		return
	}

	updated, err := handler.repo.Update(ctx, *entry)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("update progress entry %s: %s", id, err)
		http.Error(w, "No se han podido actualizar las medidas. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, updated, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.measurements.delete")
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
		log.Errorf("delete progress entry %s: %s", id, err)
		http.Error(w, "error, entry not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterEntriesDeleted.WithLabelValues(collection).Inc()
	writeJSON(w, DeleteEntryResponse{DeletedID: id}, http.StatusOK)
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return nil, false
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Tracef("progress entry, unmarshal json: %s", err)
		http.Error(w, msgNotPositive, http.StatusBadRequest)
		return nil, false
	}
	return &entry, true
}

func validate(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		http.Error(w, validationErr.Message, http.StatusBadRequest)
		return false
	}
	http.Error(w, "invalid progress entry", http.StatusBadRequest)
	return false
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal progress response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, status)
}
