package photos

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/identity"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"
)

// MaxUploadSize limits a single photo upload.
const MaxUploadSize = 10 << 20

const msgStorageFailure = "No se han podido cargar las fotos. Inténtalo más tarde."

type ListResponse struct {
	Images []Photo `json:"images"`
}

type Handler struct {
	storage Storage
}

func NewHandler(storage Storage) *Handler {
	return &Handler{
		storage: storage,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.photos.list")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	images, err := handler.storage.List(ctx, userID)
	if err != nil {
		log.Errorf("list photos of %s: %s", userID, err)
		http.Error(w, msgStorageFailure, http.StatusBadGateway)
		return
	}
	writeJSON(w, ListResponse{Images: images}, http.StatusOK)
}

func (handler *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.photos.init")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	if err := handler.storage.Init(ctx, userID); err != nil {
		log.Errorf("init photos of %s: %s", userID, err)
		http.Error(w, msgStorageFailure, http.StatusBadGateway)
		return
	}
	pkg.WriteTextResponseOK(w, "initialized")
}

// HandleUpload stores multipart "file" in "slot" and answers with all slots
func (handler *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.photos.upload")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	// the form overhead gets one extra megabyte
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "La foto no puede superar los 10 MB", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}

	slot, err := strconv.Atoi(r.FormValue("slot"))
	if err != nil || !ValidSlot(slot) {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > MaxUploadSize {
		http.Error(w, "La foto no puede superar los 10 MB", http.StatusRequestEntityTooLarge)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("read uploaded photo of %s: %s", userID, err)
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "the file is not an image", http.StatusBadRequest)
		return
	}

	upload := Upload{
		Slot:        slot,
		Name:        uuid.NewString() + photoExt(header.Filename),
		ContentType: contentType,
		Data:        data,
	}
	if err := handler.storage.Upload(ctx, userID, upload); err != nil {
		log.Errorf("upload photo of %s to slot %d: %s", userID, slot, err)
		http.Error(w, "No se ha podido subir la foto. Inténtalo más tarde.", http.StatusBadGateway)
		return
	}
	log.Debugf("photo %s uploaded to slot %d of %s", upload.Name, slot, userID)

	images, err := handler.storage.List(ctx, userID)
	if err != nil {
		log.Errorf("list photos of %s after upload: %s", userID, err)
		http.Error(w, msgStorageFailure, http.StatusBadGateway)
		return
	}
	writeJSON(w, ListResponse{Images: images}, http.StatusCreated)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.photos.delete")
	defer span.End()

	userID, ok := identity.Require(w, r)
	if !ok {
		return
	}

	name := mux.Vars(r)["name"]
	if !ValidName(name) {
		http.Error(w, "invalid photo name", http.StatusBadRequest)
		return
	}

	if err := handler.storage.Delete(ctx, userID, name); err != nil {
		if errors.Is(err, ErrPhotoNotFound) {
			http.Error(w, "photo not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete photo %s of %s: %s", name, userID, err)
		http.Error(w, "No se ha podido borrar la foto. Inténtalo más tarde.", http.StatusBadGateway)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}

func photoExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".heic":
		return ext
	default:
		return ".jpg"
	}
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
