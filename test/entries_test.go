package test

import (
	"context"
	"net/http"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/nutrition"
	"github.com/2beens/fittrack/internal/progress"
	"github.com/2beens/fittrack/internal/training"
	"github.com/2beens/fittrack/internal/users"
)

func madridNow(t require.TestingT) time.Time {
	loc, err := time.LoadLocation(testTZ)
	require.NoError(t, err)
	return time.Now().In(loc)
}

func (s *IntegrationTestSuite) TestNutritionToday() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, token, userID := registerUser(ctx, t)
	hourKey := datekey.Hour(madridNow(t))

	for _, macros := range [][4]float64{{120, 200, 90, 30}, {80, 0, 45, 0}} {
		status, body := doRequest(ctx, t, http.MethodPost, "/nutrition", token, map[string]any{
			"fecha":     hourKey,
			"proteinas": macros[0],
			"hidratos":  macros[1],
			"grasas":    macros[2],
			"verduras":  macros[3],
		})
		require.Equal(t, http.StatusCreated, status, string(body))
		added := decode[nutrition.EntryView](t, body)
		assert.Equal(t, userID, added.UserID)
		assert.Equal(t, macros[0]+macros[1]+macros[2]+macros[3], added.TotalCalories)
	}

	status, body := doRequest(ctx, t, http.MethodPost, "/nutrition", token, map[string]any{
		"fecha":     hourKey,
		"proteinas": -1,
	})
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = doRequest(ctx, t, http.MethodGet, "/nutrition/today", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	today := decode[progress.TodayNutrition](t, body)
	assert.Equal(t, 2, today.Summary.Entries)
	assert.Equal(t, 565.0, today.Summary.TotalCalories)
	assert.Len(t, today.Entries, 2)

	// another user sees nothing
	_, otherToken, _ := registerUser(ctx, t)
	status, body = doRequest(ctx, t, http.MethodGet, "/nutrition/today", otherToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, decode[progress.TodayNutrition](t, body).Summary.Entries)

	status, _ = doRequest(ctx, t, http.MethodDelete, "/nutrition/"+today.Entries[0].ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doRequest(ctx, t, http.MethodDelete, "/nutrition/"+today.Entries[0].ID, token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, s.countRows("nutrition_entry", userID))
}

func (s *IntegrationTestSuite) TestOverviewAndAccountReset() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, token, userID := registerUser(ctx, t)
	now := madridNow(t)

	for i, weight := range []float64{82, 81.6} {
		day := datekey.Day(now.AddDate(0, 0, i-3))
		status, body := doRequest(ctx, t, http.MethodPost, "/measurements", token, map[string]any{
			"fecha":   day,
			"peso":    weight,
			"cintura": 90 - float64(i)*2,
		})
		require.Equal(t, http.StatusCreated, status, string(body))
	}

	status, body := doRequest(ctx, t, http.MethodPost, "/training", token, training.Entry{
		TimestampKey: datekey.Hour(now),
		Type:         "fuerza",
		Minutes:      45,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = doRequest(ctx, t, http.MethodGet, "/progress/overview?range=7d", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	overview := decode[progress.Overview](t, body)
	assert.Equal(t, 2, overview.Entries)
	require.Len(t, overview.Trends, len(progress.AllMetrics))
	assert.Equal(t, progress.MetricWeight, overview.Trends[0].Metric)
	assert.Equal(t, -0.4, overview.Trends[0].Diff)
	assert.Equal(t, progress.ArrowDown, overview.Trends[1].Arrow)
	require.NotNil(t, overview.Chart)

	status, _ = doRequest(ctx, t, http.MethodGet, "/progress/overview?range=decade", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doRequest(ctx, t, http.MethodDelete, "/profile/data", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	reset := decode[users.ResetResponse](t, body)
	assert.Equal(t, int64(0), reset.Deleted["nutrition"])
	assert.Equal(t, int64(1), reset.Deleted["training"])
	assert.Equal(t, int64(2), reset.Deleted["progress"])

	assert.Equal(t, 0, s.countRows("progress_entry", userID))
	assert.Equal(t, 0, s.countRows("training_entry", userID))

	// the profile survives the reset
	status, _ = doRequest(ctx, t, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusOK, status)
}
