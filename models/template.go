package models

import (
	"encoding/json"
	"strings"
	"time"
)

/************************************************
/**** MARK: ANCHORS ****/
/************************************************/
const ANCHOR_SALE_CLOSE = "sale_close"
const ANCHOR_FIRST_WORKOUT = "first_workout"
const ANCHOR_OCCURRENCE_FOLLOWUP = "occurrence_followup"
const ANCHOR_BIRTHDAY = "birthday"
const ANCHOR_RENEWAL_WINDOW = "renewal_window"
const ANCHOR_WEEKLY_FOLLOWUP = "weekly_followup"
const ANCHOR_MONTHLY_REVIEW = "monthly_review"
const ANCHOR_MANUAL = "manual"

/************************************************
/**** MARK: CHANNELS ****/
/************************************************/
const CHANNEL_WHATSAPP = "whatsapp"
const CHANNEL_EMAIL = "email"
const CHANNEL_SMS = "sms"
const CHANNEL_MANUAL = "manual"
const CHANNEL_SYSTEM = "system"

// Template define o que enviar e quando, relativo a uma âncora de negócio.
// A autoria (UI de edição) fica fora deste serviço; aqui o catálogo é somente leitura.
type Template struct {
	ID                 int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	OrgID              string     `gorm:"not null;index;unique_index:idx_template_org_code" json:"org_id"`
	Code               string     `gorm:"not null;unique_index:idx_template_org_code" json:"code"`
	Title              string     `gorm:"default:''" json:"title"`
	Anchor             string     `gorm:"not null;index" json:"anchor"`
	Active             bool       `gorm:"not null;default:true" json:"active"`
	TemporalOffsetDays *int       `gorm:"column:temporal_offset_days" json:"temporal_offset_days"`
	SuggestedOffset    string     `gorm:"column:suggested_offset;default:''" json:"suggested_offset"`
	ChannelDefault     string     `gorm:"column:channel_default;not null;default:'whatsapp'" json:"channel_default"`
	MessageV1          string     `gorm:"column:message_v1;type:text" json:"message_v1"`
	MessageV2          string     `gorm:"column:message_v2;type:text" json:"message_v2"`
	Variables          string     `gorm:"type:text" json:"variables"`       // JSON array de nomes de variáveis
	AudienceFilter     string     `gorm:"type:text" json:"audience_filter"` // JSON: {"statuses":[...]}
	CreatedAt          *time.Time `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
}

// VariableList desserializa a coluna variables. Coluna vazia ou inválida vira lista vazia.
func (t Template) VariableList() []string {
	raw := strings.TrimSpace(t.Variables)
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// TemplateAudience é o filtro de audiência avaliado pelos trigger handlers.
// Lista vazia de status significa "todos os alunos".
type TemplateAudience struct {
	Statuses []string `json:"statuses,omitempty"`
}

// Audience desserializa a coluna audience_filter. Coluna vazia ou inválida
// vira filtro vazio (aceita todos).
func (t Template) Audience() TemplateAudience {
	raw := strings.TrimSpace(t.AudienceFilter)
	if raw == "" {
		return TemplateAudience{}
	}
	var out TemplateAudience
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return TemplateAudience{}
	}
	return out
}
