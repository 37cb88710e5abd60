//go:build integration

package test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/gymbook/internal/history"
	"github.com/2beens/gymbook/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyResponse struct {
	history.Snapshot
	Toasts []notify.Toast `json:"toasts"`
}

func (s *IntegrationTestSuite) insertWorkout(userID string, date time.Time, duration time.Duration) int {
	var id int
	err := s.DB.QueryRow(
		`INSERT INTO workout_history (user_uid, date, day, duration) VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, date, date.Weekday().String(), duration.Milliseconds(),
	).Scan(&id)
	s.Require().NoError(err)
	return id
}

func (s *IntegrationTestSuite) TestWorkoutHistory() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcome := doLogin(ctx, t)
	token := outcome.SessionToken
	userID := outcome.LoginResponse.UserID

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 7, 0, 0, 0, time.UTC)
	firstID := s.insertWorkout(userID, monthStart, time.Hour)
	s.insertWorkout(userID, monthStart.AddDate(0, 0, 1), 30*time.Minute)
	// someone else's workout never shows up
	otherID := s.insertWorkout("9e0f7a65-61a4-4c1d-a6a4-0d3a2f1c9b11", monthStart, time.Hour)

	var resp historyResponse
	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodGet, "/history", token, nil, &resp))
	assert.Equal(t, int(now.Month())-1, resp.Month)
	assert.Equal(t, now.Year(), resp.Year)
	assert.Len(t, resp.Records, 2)
	assert.Equal(t, 2, resp.Stats.TotalWorkouts)
	assert.Equal(t, int64(90*time.Minute/time.Millisecond), resp.Stats.TotalDuration)
	assert.Contains(t, resp.Calendar, monthStart.Format("2006-01-02"))

	// not confirmed
	assert.Equal(t, http.StatusPreconditionRequired,
		doRequest(ctx, t, http.MethodDelete, fmt.Sprintf("/history/%d", firstID), token, nil, nil))
	// not owned
	assert.Equal(t, http.StatusNotFound,
		doRequest(ctx, t, http.MethodDelete, fmt.Sprintf("/history/%d?confirm=true", otherID), token, nil, nil))

	require.Equal(t, http.StatusOK,
		doRequest(ctx, t, http.MethodDelete, fmt.Sprintf("/history/%d?confirm=true", firstID), token, nil, &resp))
	assert.Equal(t, 1, resp.Stats.TotalWorkouts)
	require.Len(t, resp.Toasts, 1)
	assert.Equal(t, history.DeletedMessage, resp.Toasts[0].Message)

	assert.Equal(t, http.StatusUnauthorized, doRequest(ctx, t, http.MethodGet, "/history", "", nil, nil))
}
