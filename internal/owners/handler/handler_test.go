package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadtracker_backend/internal/owners/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticOwners struct {
	owners []repository.Owner
	err    error
}

func (s staticOwners) List(context.Context) ([]repository.Owner, error) {
	return s.owners, s.err
}

func serve(h *Handler) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/owners"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/owners", nil))
	return rec
}

func TestListOwners(t *testing.T) {
	id := uuid.New()
	rec := serve(New(staticOwners{owners: []repository.Owner{{ID: id, DisplayName: "范秋菊", Role: "representative", Active: true}}}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []OwnerResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, id, body.Items[0].ID)
	assert.Equal(t, "范秋菊", body.Items[0].DisplayName)
}

func TestListOwnersHidesStorageErrors(t *testing.T) {
	rec := serve(New(staticOwners{err: errors.New("connection refused")}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
