package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/identity"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=store_mocks_test.go -package=dashboard_test

type stateStore interface {
	Get(ctx context.Context, userID string) (State, error)
	Save(ctx context.Context, userID string, state State) error
}

const (
	msgLoadFailure = "No se han podido cargar los datos. Inténtalo más tarde."
	msgSuperseded  = "superseded by a newer selection"
)

type Handler struct {
	store       stateStore
	loader      *SnapshotLoader
	coordinator *Coordinator[*Snapshot]
}

func NewHandler(
	store stateStore,
	loader *SnapshotLoader,
	coordinator *Coordinator[*Snapshot],
) *Handler {
	return &Handler{
		store:       store,
		loader:      loader,
		coordinator: coordinator,
	}
}

func (handler *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.state.get")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	state, err := handler.store.Get(ctx, userID)
	if err != nil {
		log.Errorf("get view state of %s: %s", userID, err)
		http.Error(w, msgLoadFailure, http.StatusInternalServerError)
		return
	}
	writeJSON(w, state, http.StatusOK)
}

// HandleUpdateState persists the new selection and answers with its snapshot.
// A request overtaken by a newer one for the same user answers 409 instead.
func (handler *Handler) HandleUpdateState(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.state.update")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var state State
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		log.Errorf("update view state, decode: %s", err)
		http.Error(w, "invalid view state", http.StatusBadRequest)
		return
	}
	if err := state.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ticket := handler.coordinator.Begin(userID)
	if err := handler.store.Save(ctx, userID, state); err != nil {
		log.Errorf("save view state of %s: %s", userID, err)
		http.Error(w, "No se ha podido guardar la selección.", http.StatusInternalServerError)
		return
	}

	handler.loadAndWrite(ctx, w, ticket, userID, state)
}

// HandleGetSnapshot answers the visible snapshot, loading one when there is none.
// ?refresh=true forces a new load.
func (handler *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.snapshot")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("refresh") != "true" {
		if snap, ok := handler.coordinator.Visible(userID); ok {
			writeJSON(w, snap, http.StatusOK)
			return
		}
	}

	ticket := handler.coordinator.Begin(userID)
	state, err := handler.store.Get(ctx, userID)
	if err != nil {
		log.Errorf("get view state of %s: %s", userID, err)
		http.Error(w, msgLoadFailure, http.StatusInternalServerError)
		return
	}

	handler.loadAndWrite(ctx, w, ticket, userID, state)
}

func (handler *Handler) loadAndWrite(ctx context.Context, w http.ResponseWriter, ticket Ticket, userID string, state State) {
	snap, err := handler.loader.Load(ctx, userID, state)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debugf("snapshot of %s canceled", userID)
		} else {
			log.Errorf("load snapshot of %s: %s", userID, err)
		}
		http.Error(w, msgLoadFailure, http.StatusInternalServerError)
		return
	}

	if !handler.coordinator.Commit(ticket, snap) {
		http.Error(w, msgSuperseded, http.StatusConflict)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, status)
}
