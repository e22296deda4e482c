package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"vinculo/models"
	"vinculo/relationship"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedTemplatesEndpoint(t *testing.T) {
	r, db := setupTestAPI(t)

	w := doJSON(t, r, http.MethodPost, "/api/templates/seed", gin.H{"org_id": "org-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(len(relationship.DefaultTemplates("org-1"))), resp["inserted"])

	// idempotente
	w = doJSON(t, r, http.MethodPost, "/api/templates/seed", gin.H{"org_id": "org-1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["inserted"])

	var count int
	db.Model(&models.Template{}).Count(&count)
	assert.Equal(t, len(relationship.DefaultTemplates("org-1")), count)
}

func TestGetTemplatesFiltersByAnchorAndActive(t *testing.T) {
	r, db := setupTestAPI(t)
	_, err := relationship.SeedDefaultTemplates(db, "org-1")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Template{}).
		Where("org_id = ? AND code = ?", "org-1", "WELCOME_01").
		Update("active", false).Error)

	w := doJSON(t, r, http.MethodGet, "/api/templates?org_id=org-1&anchor=sale_close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var templates []models.Template
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &templates))
	assert.Empty(t, templates)

	w = doJSON(t, r, http.MethodGet, "/api/templates?org_id=org-1&anchor=sale_close&all=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &templates))
	assert.Len(t, templates, 1)

	// org_id é obrigatório
	w = doJSON(t, r, http.MethodGet, "/api/templates", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLogsFilters(t *testing.T) {
	r, db := setupTestAPI(t)
	seedStudent(t, db, models.STUDENT_STATUS_ACTIVE)
	_, err := relationship.SeedDefaultTemplates(db, "org-1")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/triggers/sale-close", gin.H{
		"student_id":      "student-1",
		"org_id":          "org-1",
		"matriculated_at": "2026-03-10T14:30:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/logs?student_id=student-1&action=created", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.Log
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "WELCOME_01", logs[0].TemplateCode)

	w = doJSON(t, r, http.MethodGet, "/api/logs?task_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
