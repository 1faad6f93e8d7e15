package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/photos"
)

const testPassword = "testpass123"

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Gender   string  `json:"gender"`
	HeightCm float64 `json:"heightCm"`
	WeightKg float64 `json:"weightKg"`
	Age      int     `json:"age"`
	Goal     string  `json:"goal"`
}

func newRegisterRequest() registerRequest {
	return registerRequest{
		Email:    gofakeit.Email(),
		Password: testPassword,
		Name:     gofakeit.FirstName(),
		Gender:   "female",
		HeightCm: float64(gofakeit.IntRange(150, 195)),
		WeightKg: float64(gofakeit.IntRange(50, 110)),
		Age:      gofakeit.IntRange(18, 80),
		Goal:     "lose_fat",
	}
}

// doRequest sends body as JSON when it is not nil and returns the response status and body
func doRequest(ctx context.Context, t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

// registerUser creates a fresh account and returns its token and user id
func registerUser(ctx context.Context, t *testing.T) (registerRequest, string, string) {
	t.Helper()
	req := newRegisterRequest()

	status, body := doRequest(ctx, t, http.MethodPost, "/a/register", "", req)
	require.Equal(t, http.StatusCreated, status, string(body))
	token := decode[auth.TokenResponse](t, body).Token
	require.NotEmpty(t, token)

	status, body = doRequest(ctx, t, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	profile := decode[map[string]any](t, body)
	userID, _ := profile["id"].(string)
	require.NotEmpty(t, userID)

	return req, token, userID
}

// fakeImageApi keeps the photos of each user in memory
type fakeImageApi struct {
	mu     sync.Mutex
	images map[string][]photos.Photo
}

func newFakeImageApi() http.Handler {
	api := &fakeImageApi{images: make(map[string][]photos.Photo)}

	r := mux.NewRouter()
	r.HandleFunc("/get_user_images/{uid}", api.list).Methods(http.MethodGet)
	r.HandleFunc("/create_user_future/{uid}", api.create).Methods(http.MethodPost)
	r.HandleFunc("/upload_user_image", api.upload).Methods(http.MethodPost)
	r.HandleFunc("/borrar_imagen/{uid}/{name}", api.remove).Methods(http.MethodPost)
	return r
}

func (api *fakeImageApi) list(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	images := api.images[mux.Vars(r)["uid"]]
	if images == nil {
		images = []photos.Photo{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"images": images})
}

func (api *fakeImageApi) create(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	uid := mux.Vars(r)["uid"]
	if _, ok := api.images[uid]; !ok {
		api.images[uid] = []photos.Photo{}
	}
	w.WriteHeader(http.StatusOK)
}

func (api *fakeImageApi) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var slot int
	if _, err := fmt.Sscanf(r.FormValue("slot"), "%d", &slot); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	api.mu.Lock()
	defer api.mu.Unlock()

	uid := r.FormValue("uid")
	kept := []photos.Photo{}
	for _, p := range api.images[uid] {
		if p.Slot != slot {
			kept = append(kept, p)
		}
	}
	api.images[uid] = append(kept, photos.Photo{
		Slot: slot,
		Name: header.Filename,
		URL:  "http://images.local/" + uid + "/" + header.Filename,
	})
	w.WriteHeader(http.StatusOK)
}

func (api *fakeImageApi) remove(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	uid, name := mux.Vars(r)["uid"], mux.Vars(r)["name"]
	kept := []photos.Photo{}
	found := false
	for _, p := range api.images[uid] {
		if p.Name == name {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	api.images[uid] = kept
	w.WriteHeader(http.StatusOK)
}
