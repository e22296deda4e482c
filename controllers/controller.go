package controllers

import (
	"vinculo/config"

	"github.com/gin-gonic/gin"
)

var conf config.Configuration

// SetConfigurations guarda a configuração usada pelos handlers
// (política de variante, janela de undo).
func SetConfigurations(configuration config.Configuration) {
	conf = configuration
}

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}
