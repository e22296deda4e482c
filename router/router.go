package router

import (
	"log"
	"net/http"

	"vinculo/config"
	"vinculo/controllers"
	"vinculo/middleware"

	"github.com/gin-gonic/gin"
)

// Initialize wires all routes and middlewares.
func Initialize(r *gin.Engine, cfg config.Configuration) {
	_ = cfg

	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Gatilhos de relacionamento (chamados pelos fluxos de venda/onboarding/CRM)
	api.POST("/triggers/sale-close", Logger(), controllers.TriggerSaleClose)
	api.POST("/triggers/onboarding-complete", Logger(), controllers.TriggerOnboardingComplete)
	api.POST("/triggers/occurrence-followup", Logger(), controllers.TriggerOccurrenceFollowup)

	// Tarefas (painel do personal)
	api.GET("/tasks", Logger(), controllers.GetTasks)
	api.POST("/tasks", Logger(), controllers.CreateManualTask)
	api.PATCH("/tasks/:id", Logger(), controllers.UpdateTask)
	api.POST("/tasks/:id/undo", Logger(), controllers.UndoTask)

	// Catálogo de templates
	api.GET("/templates", Logger(), controllers.GetTemplates)
	api.POST("/templates/seed", Logger(), controllers.SeedTemplates)

	// Auditoria
	api.GET("/logs", Logger(), controllers.GetLogs)

	// Varredura diária sob demanda
	api.POST("/relationship/job", Logger(), controllers.RunRelationshipJob)

	log.Printf("Routes initialized")
}
