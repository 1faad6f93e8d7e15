package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/identity"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=users_test

type profileRepo interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p Profile) error
}

// EntriesWiper removes every entry a user owns in one collection
type EntriesWiper interface {
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}

// CollectionWiper names the collection an EntriesWiper clears
type CollectionWiper struct {
	Collection string
	Wiper      EntriesWiper
}

type ResetResponse struct {
	Deleted map[string]int64 `json:"deleted"`
	Message string           `json:"message"`
}

type Handler struct {
	repo    profileRepo
	wipers  []CollectionWiper
	metrics *metrics.Manager
}

func NewHandler(repo profileRepo, metricsManager *metrics.Manager, wipers ...CollectionWiper) *Handler {
	return &Handler{
		repo:    repo,
		wipers:  wipers,
		metrics: metricsManager,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.get")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	profile, err := handler.repo.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("get profile %s: %s", userID, err)
		http.Error(w, "could not load", http.StatusInternalServerError)
		return
	}

	writeJSON(w, profile, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.update")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var changes Profile
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		log.Tracef("update profile, unmarshal json: %s", err)
		http.Error(w, "Altura, peso y edad deben ser números válidos", http.StatusBadRequest)
		return
	}

	profile, err := handler.repo.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("update profile %s, get current: %s", userID, err)
		http.Error(w, "No se ha podido guardar los cambios. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	profile.Editable(changes)
	if err := profile.Validate(); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Message, http.StatusBadRequest)
			return
		}
		http.Error(w, "invalid profile", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Upsert(ctx, *profile); err != nil {
		log.Errorf("update profile %s: %s", userID, err)
		http.Error(w, "No se ha podido guardar los cambios. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, profile, http.StatusOK)
}

// HandleResetData deletes every nutrition, training and progress entry of the user.
// The profile and the account stay.
func (handler *Handler) HandleResetData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.reset")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	deleted, err := handler.ResetData(ctx, userID)
	if err != nil {
		log.Errorf("reset data of %s: %s", userID, err)
		http.Error(w, "No se ha podido resetear la cuenta. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	log.Printf("user %s data reset: %v", userID, deleted)
	writeJSON(w, ResetResponse{
		Deleted: deleted,
		Message: "Se han borrado tus entrenamientos, registros de nutrición y progreso.",
	}, http.StatusOK)
}

// ResetData runs the wipers in order and stops at the first failure.
// Collections wiped before the failure stay wiped.
func (handler *Handler) ResetData(ctx context.Context, userID string) (map[string]int64, error) {
	deleted := make(map[string]int64, len(handler.wipers))
	for _, cw := range handler.wipers {
		count, err := cw.Wiper.DeleteAllForUser(ctx, userID)
		if err != nil {
			return deleted, err
		}
		deleted[cw.Collection] = count
		handler.metrics.CounterEntriesDeleted.WithLabelValues(cw.Collection).Add(float64(count))
	}
	return deleted, nil
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal profile response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, status)
}
