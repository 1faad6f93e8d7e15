package meals

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/identity"
	"github.com/2beens/fittrack/internal/nutrition"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/users"
	"github.com/2beens/fittrack/pkg"
)

const maxImageSize = 10 << 20

type profileGetter interface {
	Get(ctx context.Context, userID string) (*users.Profile, error)
}

type Handler struct {
	parser   Parser
	profiles profileGetter
	now      func() time.Time
}

// NewHandler takes a nil parser when ai parsing is not configured
func NewHandler(parser Parser, profiles profileGetter) *Handler {
	return &Handler{
		parser:   parser,
		profiles: profiles,
		now:      time.Now,
	}
}

func (handler *Handler) WithClock(now func() time.Time) *Handler {
	handler.now = now
	return handler
}

// HandleParse estimates the meal in multipart "image" and answers with an unsaved nutrition entry draft.
// Optional "info" is passed to the model as a hint and kept as the entry notes.
func (handler *Handler) HandleParse(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meals.parse")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	if handler.parser == nil {
		http.Error(w, ErrParserUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}

	if err := handler.checkConsent(ctx, userID); err != nil {
		if errors.Is(err, ErrNoConsent) {
			http.Error(w, "Activa el análisis con IA en tu perfil para usar esta función", http.StatusForbidden)
			return
		}
		log.Errorf("meal parse, load profile of %s: %s", userID, err)
		http.Error(w, "No se ha podido analizar la imagen. Inténtalo más tarde.", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Selecciona una imagen", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	if len(image) > maxImageSize {
		http.Error(w, "La imagen no puede superar los 10 MB", http.StatusRequestEntityTooLarge)
		return
	}
	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		http.Error(w, "the file is not an image", http.StatusBadRequest)
		return
	}

	info := strings.TrimSpace(r.FormValue("info"))
	est, err := handler.parser.Estimate(ctx, image, mimeType, info)
	if err != nil {
		log.Errorf("meal parse for %s: %s", userID, err)
		http.Error(w, "No se ha podido analizar la imagen. Inténtalo más tarde.", http.StatusBadGateway)
		return
	}

	draft := nutrition.Entry{
		UserID:       userID,
		TimestampKey: datekey.Hour(handler.now()),
		Protein:      est.Proteinas,
		Carbs:        est.Hidratos,
		Fat:          est.Grasas,
		Vegetables:   est.Verduras,
	}
	if est.Titulo != "" {
		draft.Title = &est.Titulo
	}
	if info != "" {
		draft.Notes = &info
	}

	resp, err := json.Marshal(draft)
	if err != nil {
		log.Errorf("marshal meal draft: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) checkConsent(ctx context.Context, userID string) error {
	profile, err := handler.profiles.Get(ctx, userID)
	if errors.Is(err, users.ErrProfileNotFound) {
		return ErrNoConsent
	}
	if err != nil {
		return err
	}
	if !profile.AIConsent {
		return ErrNoConsent
	}
	return nil
}
