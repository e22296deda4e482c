package controllers

import (
	"net/http"
	"strconv"

	dbpkg "vinculo/db"
	"vinculo/models"

	"github.com/gin-gonic/gin"
)

// GET /api/logs
//
// Consulta da trilha de auditoria. Filtros: student_id, task_id, action.
// Sempre em ordem cronológica inversa, limitada a 200 linhas.
func GetLogs(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	query := db.Model(&models.Log{})
	if orgID := c.Query("org_id"); orgID != "" {
		query = query.Where("org_id = ?", orgID)
	}
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if taskID := c.Query("task_id"); taskID != "" {
		id, err := strconv.ParseInt(taskID, 10, 64)
		if err != nil {
			RespondError(c, "task_id inválido", http.StatusBadRequest)
			return
		}
		query = query.Where("task_id = ?", id)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.Log
	if err := query.Order("created_at desc").Limit(200).Find(&logs).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, logs)
}
