package progress

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/identity"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"
)

// default range of each listing when the request names none
const (
	defaultFeedRange        = Range7d
	defaultHistoryRange     = RangeWeek
	defaultTrainingRange    = Range7d
	defaultMeasurementRange = RangeMonth
	defaultOverviewRange    = RangeMonth
)

// Handler serves the read routes. A request without identity gets empty data, not an error.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleNutritionToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.nutrition_today")
	defer span.End()

	userID, _ := identity.UserID(ctx)
	today, err := handler.service.NutritionToday(ctx, userID)
	writeResult(w, "nutrition today", today, err)
}

func (handler *Handler) HandleNutritionFeed(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.nutrition_feed")
	defer span.End()

	userID, _ := identity.UserID(ctx)
	feed, err := handler.service.NutritionFeed(ctx, userID, rangeParam(r, defaultFeedRange))
	writeResult(w, "nutrition feed", feed, err)
}

func (handler *Handler) HandleNutritionHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.nutrition_history")
	defer span.End()

	userID, _ := identity.UserID(ctx)
	history, err := handler.service.NutritionHistory(
		ctx,
		userID,
		rangeParam(r, defaultHistoryRange),
		r.URL.Query().Get("base"),
	)
	writeResult(w, "nutrition history", history, err)
}

func (handler *Handler) HandleNutritionMonth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.nutrition_month")
	defer span.End()

	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		http.Error(w, "error, year NaN", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		http.Error(w, "error, month NaN", http.StatusBadRequest)
		return
	}

	userID, _ := identity.UserID(ctx)
	series, err := handler.service.NutritionMonth(ctx, userID, year, month)
	writeResult(w, "nutrition month", series, err)
}

func (handler *Handler) HandleTrainingList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.training_list")
	defer span.End()

	userID, _ := identity.UserID(ctx)
	series, err := handler.service.TrainingList(ctx, userID, rangeParam(r, defaultTrainingRange))
	writeResult(w, "training list", series, err)
}

func (handler *Handler) HandleMeasurementsList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.measurements_list")
	defer span.End()

	userID, _ := identity.UserID(ctx)
	series, err := handler.service.Measurements(ctx, userID, rangeParam(r, defaultMeasurementRange))
	writeResult(w, "measurements list", series, err)
}

func (handler *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.overview")
	defer span.End()

	userID, _ := identity.UserID(ctx)
	overview, err := handler.service.Overview(ctx, userID, rangeParam(r, defaultOverviewRange))
	writeResult(w, "progress overview", overview, err)
}

func rangeParam(r *http.Request, fallback string) string {
	if name := r.URL.Query().Get("range"); name != "" {
		return name
	}
	return fallback
}

// writeResult answers 400 for a bad range, 500 with a static message for any load failure
func writeResult(w http.ResponseWriter, what string, result any, err error) {
	if err != nil {
		if errors.Is(err, ErrUnknownRange) {
			http.Error(w, "unknown range", http.StatusBadRequest)
			return
		}
		log.Errorf("%s: %s", what, err)
		http.Error(w, ErrLoadFailed.Error(), http.StatusInternalServerError)
		return
	}

	resp, err := json.Marshal(result)
	if err != nil {
		log.Errorf("marshal %s: %s", what, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}
