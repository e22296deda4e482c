package models

import (
	"encoding/json"
	"time"
)

/************************************************
/**** MARK: TASK STATUS ****/
/************************************************/
const TASK_STATUS_PENDING = "pending"
const TASK_STATUS_PROCESSING = "processing"
const TASK_STATUS_SENT = "sent"
const TASK_STATUS_POSTPONED = "postponed"
const TASK_STATUS_SKIPPED = "skipped"
const TASK_STATUS_FAILED = "failed"

// Task é uma instância agendada (ou já processada) de mensagem de relacionamento.
// Criada pelos trigger handlers, despachada pelo worker e mutada apenas pelas
// transições de ciclo de vida; cada mudança de estado gera um Log.
type Task struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	OrgID         string     `gorm:"not null;index" json:"org_id"`
	StudentID     string     `gorm:"not null;index;unique_index:idx_task_bucket" json:"student_id"`
	TemplateCode  string     `gorm:"column:template_code;not null;unique_index:idx_task_bucket" json:"template_code"`
	Anchor        string     `gorm:"not null;index;unique_index:idx_task_bucket" json:"anchor"`
	BucketKey     string     `gorm:"column:bucket_key;not null;unique_index:idx_task_bucket" json:"bucket_key"`
	OccurrenceID  int64      `gorm:"column:occurrence_id;default:0;index" json:"occurrence_id"`
	ScheduledFor  time.Time  `gorm:"column:scheduled_for;not null;index" json:"scheduled_for"`
	Channel       string     `gorm:"not null;default:'whatsapp'" json:"channel"`
	Status        string     `gorm:"not null;default:'pending';index" json:"status"`
	Payload       string     `gorm:"type:text" json:"payload"` // JSON: TaskPayload
	VariablesUsed string     `gorm:"column:variables_used;type:text" json:"variables_used"`
	Notes         string     `gorm:"type:text" json:"notes"`
	CreatedBy     string     `gorm:"column:created_by;not null;default:'system'" json:"created_by"`
	SentAt        *time.Time `gorm:"column:sent_at" json:"sent_at"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// TaskPayload é o conteúdo renderizado + campos desnormalizados do destinatário.
// Fica serializado como JSON na coluna payload (texto).
type TaskPayload struct {
	Message         string `json:"message"`
	StudentName     string `json:"student_name"`
	StudentEmail    string `json:"student_email,omitempty"`
	StudentPhone    string `json:"student_phone,omitempty"`
	SaleDate        string `json:"sale_date,omitempty"`
	OnboardingAt    string `json:"onboarding_completed_at,omitempty"`
	OccurrenceID    int64  `json:"occurrence_id,omitempty"`
	OccurrenceType  string `json:"occurrence_type,omitempty"`
	OccurrenceNotes string `json:"occurrence_notes,omitempty"`
}

func (p TaskPayload) Encode() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DecodePayload desserializa a coluna payload; coluna vazia/inválida vira zero value.
func (t Task) DecodePayload() TaskPayload {
	var p TaskPayload
	if t.Payload == "" {
		return p
	}
	_ = json.Unmarshal([]byte(t.Payload), &p)
	return p
}

// EncodeVariables serializa a lista de variáveis usadas na renderização.
func EncodeVariables(vars []string) string {
	if len(vars) == 0 {
		return "[]"
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return "[]"
	}
	return string(b)
}
