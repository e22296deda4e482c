package controllers

import (
	"net/http"

	dbpkg "vinculo/db"
	"vinculo/workers"

	"github.com/gin-gonic/gin"
)

// POST /api/relationship/job
//
// Dispara manualmente a varredura de âncoras temporais (aniversário,
// renovação, follow-up semanal, revisão mensal). Útil para operar sem esperar
// o cron; seguro de repetir no mesmo dia.
func RunRelationshipJob(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}
	result := workers.RunTemporalSweep(db, conf)
	RespondSuccess(c, result)
}
