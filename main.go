package main

import (
	"log"
	"os"
	"strings"

	"vinculo/config"
	"vinculo/controllers"
	dbpkg "vinculo/db"
	"vinculo/router"
	"vinculo/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// =====================
// ENV esperadas
// =====================
//
// Server
// - PORT                      (sobrepõe o api_port do config.json)
// - CONFIG                    (caminho do config.json; default: config/config.json)
// - AUTOMIGRATE               (se 1, roda automigrate na subida)
//
// WhatsApp Cloud API (Meta) - fallback single-tenant
// - WHATSAPP_ACCESS_TOKEN
// - WHATSAPP_PHONE_NUMBER_ID
// - POC_NO_WHATSAPP           (se true, marca como enviada sem chamar o WhatsApp)
//
// =====================

func main() {
	// .env é opcional; em produção as envs vêm do ambiente
	_ = godotenv.Load()

	configPath := strings.TrimSpace(os.Getenv("CONFIG"))
	if configPath == "" {
		configPath = "config/config.json"
	}
	conf := config.Get(configPath)

	dbpkg.SetConfigurations(conf)
	controllers.SetConfigurations(conf)

	db, err := dbpkg.Connect()
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	workers.StartDispatcher(db, conf)
	if _, err := workers.StartDailySweep(db, conf); err != nil {
		log.Fatalf("daily sweep cron error: %v", err)
	}

	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(db))
	router.Initialize(r, conf)

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = conf.ApiPort
	}
	log.Printf("Vinculo listening on :%s", port)
	log.Fatal(r.Run(":" + port))
}
