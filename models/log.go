package models

import (
	"encoding/json"
	"time"
)

/************************************************
/**** MARK: LOG ACTIONS ****/
/************************************************/
const LOG_ACTION_CREATED = "created"
const LOG_ACTION_SCHEDULED = "scheduled"
const LOG_ACTION_UPDATED = "updated"
const LOG_ACTION_SENT = "sent"
const LOG_ACTION_POSTPONED = "postponed"
const LOG_ACTION_SKIPPED = "skipped"
const LOG_ACTION_FAILED = "failed"
const LOG_ACTION_UNDO = "undo"

// Log é a trilha de auditoria append-only do agendador.
// Uma linha por operação que muda o estado de uma Task (inclusive a criação);
// nunca é atualizada nem apagada, e nenhuma decisão é tomada a partir dela.
type Log struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	OrgID        string     `gorm:"default:''" json:"org_id"`
	StudentID    string     `gorm:"not null;index" json:"student_id"`
	TaskID       *int64     `gorm:"column:task_id;index" json:"task_id"` // null apenas para falhas antes de existir task
	Action       string     `gorm:"not null;index" json:"action"`
	Channel      string     `gorm:"default:''" json:"channel"`
	TemplateCode string     `gorm:"column:template_code;default:''" json:"template_code"`
	Meta         string     `gorm:"type:text" json:"meta"` // JSON livre: occurrence_id, offset usado, tipo do gatilho...
	CreatedAt    *time.Time `json:"created_at"`
}

// DecodeMeta desserializa o contexto livre do log; nil quando vazio ou corrompido.
func DecodeMeta(raw string) map[string]any {
	if raw == "" || raw == "{}" {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil
	}
	return meta
}

// EncodeMeta serializa o contexto livre do log.
func EncodeMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return "{}"
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(b)
}
