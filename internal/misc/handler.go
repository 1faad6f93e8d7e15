package misc

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"
)

type VersionInfo struct {
	Version       string `json:"version"`
	SchemaVersion int64  `json:"schemaVersion"`
}

type Handler struct {
	versionInfo   string
	schemaVersion func() int64
}

// NewHandler takes the running commit hash, schemaVersion reports the applied migration
func NewHandler(versionInfo string, schemaVersion func() int64) *Handler {
	if schemaVersion == nil {
		schemaVersion = func() int64 { return 0 }
	}
	return &Handler{
		versionInfo:   versionInfo,
		schemaVersion: schemaVersion,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.versionInfo")
	defer span.End()

	resp, err := json.Marshal(VersionInfo{
		Version:       handler.versionInfo,
		SchemaVersion: handler.schemaVersion(),
	})
	if err != nil {
		log.Errorf("marshal version info: %s", err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resp)
}
