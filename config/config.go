package config

import (
	"encoding/json"
	"log"
	"os"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`

	Database string `json:"database"` // "sqlite3" ou "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	Relationship struct {
		// Política de variante de mensagem: "v1", "v2" ou "ab".
		MessageVariant string `json:"message_variant"`
		// Intervalo do worker de despacho, em segundos.
		DispatchIntervalSeconds int `json:"dispatch_interval_seconds"`
		// Expressão cron da varredura diária de âncoras temporais
		// (aniversário, renovação, follow-up semanal, revisão mensal).
		DailySweepCron string `json:"daily_sweep_cron"`
		// Janela (segundos) para desfazer o skip de uma tarefa.
		UndoWindowSeconds int `json:"undo_window_seconds"`
	} `json:"relationship"`
}

func Get(path string) Configuration {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	var c Configuration
	if err := json.Unmarshal(b, &c); err != nil {
		log.Fatal(err)
	}
	return WithDefaults(c)
}

// WithDefaults preenche os campos vazios (pra evitar nil/zero chato).
func WithDefaults(c Configuration) Configuration {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.Relationship.MessageVariant == "" {
		c.Relationship.MessageVariant = "v1"
	}
	if c.Relationship.DispatchIntervalSeconds <= 0 {
		c.Relationship.DispatchIntervalSeconds = 30
	}
	if c.Relationship.DailySweepCron == "" {
		c.Relationship.DailySweepCron = "0 8 * * *"
	}
	if c.Relationship.UndoWindowSeconds <= 0 {
		c.Relationship.UndoWindowSeconds = 5
	}
	return c
}
