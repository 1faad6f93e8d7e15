package test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fittrack/internal/dashboard"
	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/photos"
	"github.com/2beens/fittrack/internal/progress"
)

func (s *IntegrationTestSuite) TestDashboardState() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, token, _ := registerUser(ctx, t)

	status, body := doRequest(ctx, t, http.MethodGet, "/dashboard/state", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, dashboard.DefaultState(), decode[dashboard.State](t, body))

	state := dashboard.DefaultState()
	state.Tab = dashboard.TabProgress
	state.TrendRange = progress.RangeYear
	status, body = doRequest(ctx, t, http.MethodPut, "/dashboard/state", token, state)
	require.Equal(t, http.StatusOK, status, string(body))
	snap := decode[dashboard.Snapshot](t, body)
	assert.Equal(t, state, snap.State)
	require.NotNil(t, snap.Overview)
	assert.Equal(t, progress.RangeYear, snap.Overview.Range.Name)

	state.NutritionRange = progress.RangeYear
	status, _ = doRequest(ctx, t, http.MethodPut, "/dashboard/state", token, state)
	assert.Equal(t, http.StatusBadRequest, status)

	// the stored state is the last valid one
	status, body = doRequest(ctx, t, http.MethodGet, "/dashboard/state", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, progress.RangeYear, decode[dashboard.State](t, body).TrendRange)

	status, body = doRequest(ctx, t, http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, dashboard.TabProgress, decode[dashboard.Snapshot](t, body).State.Tab)
}

func (s *IntegrationTestSuite) TestDashboardFollowsWrites() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, token, _ := registerUser(ctx, t)

	status, body := doRequest(ctx, t, http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, 0.0, decode[dashboard.Snapshot](t, body).Today.Summary.TotalCalories)

	status, body = doRequest(ctx, t, http.MethodPost, "/nutrition", token, map[string]any{
		"fecha":     datekey.Hour(madridNow(t)),
		"proteinas": 120,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = doRequest(ctx, t, http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, 120.0, decode[dashboard.Snapshot](t, body).Today.Summary.TotalCalories)
}

func uploadPhoto(ctx context.Context, t *testing.T, token, slot string) (int, []byte) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("slot", slot))
	part, err := mw.CreateFormFile("file", "front.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverEndpoint+"/photos", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var respBody bytes.Buffer
	_, err = respBody.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody.Bytes()
}

func (s *IntegrationTestSuite) TestPhotos() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, token, _ := registerUser(ctx, t)

	status, _ := doRequest(ctx, t, http.MethodPost, "/photos/init", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := doRequest(ctx, t, http.MethodGet, "/photos", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	list := decode[photos.ListResponse](t, body)
	require.Len(t, list.Images, photos.Slots)
	for _, p := range list.Images {
		assert.Empty(t, p.Name)
	}

	status, body = uploadPhoto(ctx, t, token, "2")
	require.Equal(t, http.StatusCreated, status, string(body))
	list = decode[photos.ListResponse](t, body)
	require.Len(t, list.Images, photos.Slots)
	uploaded := list.Images[1]
	assert.Equal(t, 2, uploaded.Slot)
	require.NotEmpty(t, uploaded.Name)

	status, _ = uploadPhoto(ctx, t, token, "4")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(ctx, t, http.MethodDelete, "/photos/"+uploaded.Name, token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doRequest(ctx, t, http.MethodDelete, "/photos/"+uploaded.Name, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
