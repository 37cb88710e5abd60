//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/gymbook/internal/admin"
	"github.com/2beens/gymbook/internal/catalog"
	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/notify"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type consoleResponse struct {
	admin.Snapshot
	Toasts []notify.Toast `json:"toasts"`
}

func (s *IntegrationTestSuite) TestAdminManagesCatalog() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcome := doLogin(ctx, t)
	token := outcome.SessionToken

	var console consoleResponse
	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodGet, "/admin/exercises", token, nil, &console))
	require.NotEmpty(t, console.BodyParts)
	require.NotEmpty(t, console.Categories)

	exerciseName := fmt.Sprintf("%s %s", gofakeit.Verb(), gofakeit.Noun())
	body, err := json.Marshal(entity.Exercise{
		Name:       exerciseName,
		BodyPartID: console.BodyParts[0].ID,
		CategoryID: console.Categories[0].ID,
	})
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodPost, "/admin/exercises", token, body, &console))
	require.Len(t, console.Toasts, 1)
	assert.Equal(t, "Exercise added successfully!", console.Toasts[0].Message)

	var created *admin.ExerciseRow
	for i, row := range console.Exercises {
		if row.Name == exerciseName {
			created = &console.Exercises[i]
		}
	}
	require.NotNil(t, created, "created exercise not listed")
	assert.Equal(t, console.BodyParts[0].Name, created.BodyPartName)

	// toasts are also queued for the session
	var drained struct {
		Toasts []notify.Toast `json:"toasts"`
	}
	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodGet, "/notifications", token, nil, &drained))
	assert.NotEmpty(t, drained.Toasts)

	// the public catalog picks the exercise up, filtered by its name
	var page catalog.Snapshot
	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodGet, "/catalog?term="+gofakeit.Word()+"zzz", "", nil, &page))
	assert.Empty(t, page.Items)
	s.Require().Eventually(func() bool {
		page = catalog.Snapshot{}
		status := doRequest(ctx, t, http.MethodGet, "/catalog", "", nil, &page)
		if status != http.StatusOK {
			return false
		}
		for _, item := range page.Items {
			if item.Name == exerciseName {
				return item.DisplayThumbnail == catalog.DefaultThumbnail
			}
		}
		return false
	}, 5*time.Second, 200*time.Millisecond)

	deletePath := fmt.Sprintf("/admin/exercises/%d", created.ID)
	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodDelete, deletePath, token, nil, &console))
	for _, row := range console.Exercises {
		assert.NotEqual(t, exerciseName, row.Name)
	}

	// catalog is public, admin is not
	assert.Equal(t, http.StatusUnauthorized, doRequest(ctx, t, http.MethodGet, "/admin/exercises", "", nil, nil))
}
