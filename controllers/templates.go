package controllers

import (
	"net/http"

	dbpkg "vinculo/db"
	"vinculo/models"
	"vinculo/relationship"

	"github.com/gin-gonic/gin"
)

// GET /api/templates
//
// Lista os templates de uma organização, opcionalmente filtrados por âncora.
// Por padrão só os ativos; ?all=true inclui os desativados.
func GetTemplates(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		RespondError(c, "org_id é obrigatório", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	query := db.Where("org_id = ?", orgID)
	if c.Query("all") != "true" {
		query = query.Where("active = ?", true)
	}
	if anchor := c.Query("anchor"); anchor != "" {
		query = query.Where("anchor = ?", anchor)
	}

	var templates []models.Template
	if err := query.Order("code asc").Find(&templates).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, templates)
}

type SeedTemplatesPayload struct {
	OrgID string `json:"org_id"`
}

// POST /api/templates/seed
//
// Popula o catálogo default da organização. Idempotente: códigos que já
// existem (ativos ou não) nunca são sobrescritos.
func SeedTemplates(c *gin.Context) {
	var payload SeedTemplatesPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, "json inválido: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.OrgID == "" {
		RespondError(c, "org_id é obrigatório", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	inserted, err := relationship.SeedDefaultTemplates(db, payload.OrgID)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{
		"success":  true,
		"inserted": inserted,
	})
}
