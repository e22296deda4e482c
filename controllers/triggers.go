package controllers

import (
	"log"
	"net/http"
	"time"

	dbpkg "vinculo/db"
	"vinculo/models"
	"vinculo/relationship"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

/************************************************
/**** MARK: TRIGGER CREATED_BY ****/
/************************************************/
const TRIGGER_SALE_CLOSE = "system_sale_close_trigger"
const TRIGGER_ONBOARDING = "system_onboarding_trigger"
const TRIGGER_OCCURRENCE = "system_occurrence_trigger"

// TriggerResponse é o envelope comum dos três gatilhos.
type TriggerResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	TasksCreated int      `json:"tasks_created"`
	TasksUpdated int      `json:"tasks_updated,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

type SaleClosePayload struct {
	StudentID      string `json:"student_id"`
	OrgID          string `json:"org_id"`
	MatriculatedAt string `json:"matriculated_at"`
}

// POST /api/triggers/sale-close
//
// Fechamento de venda: processa apenas os templates com offset resolvido 0
// ("imediatos"); o scheduled_for é o instante exato da matrícula. Reentrante:
// reprocessar o mesmo payload não duplica tarefas (bucket por dia).
func TriggerSaleClose(c *gin.Context) {
	var payload SaleClosePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, "json inválido: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.StudentID == "" {
		RespondError(c, "student_id é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.OrgID == "" {
		RespondError(c, "org_id é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.MatriculatedAt == "" {
		RespondError(c, "matriculated_at é obrigatório", http.StatusBadRequest)
		return
	}
	matriculatedAt, err := ParseInstant(payload.MatriculatedAt)
	if err != nil {
		RespondError(c, "matriculated_at inválido", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	templates, err := relationship.ListActiveTemplates(db, payload.OrgID, models.ANCHOR_SALE_CLOSE)
	if err != nil {
		RespondError(c, "erro ao buscar templates: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(templates) == 0 {
		RespondSuccess(c, TriggerResponse{
			Success: true,
			Message: "nenhum template ativo para sale_close",
		})
		return
	}

	student, err := relationship.GetStudent(db, payload.StudentID, payload.OrgID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondError(c, "aluno não encontrado", http.StatusNotFound)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	result := relationship.ProcessTemplates(db, student, templates, relationship.TriggerOptions{
		Anchor:        models.ANCHOR_SALE_CLOSE,
		AnchorAt:      matriculatedAt,
		CreatedBy:     TRIGGER_SALE_CLOSE,
		VariantPolicy: conf.Relationship.MessageVariant,
		OnlyImmediate: true,
		Decorate: func(p *models.TaskPayload) {
			p.SaleDate = payload.MatriculatedAt
		},
	})

	RespondSuccess(c, TriggerResponse{
		Success:      len(result.Errors) == 0,
		Message:      "processamento concluído",
		TasksCreated: result.TasksCreated,
		Errors:       result.Errors,
	})
}

type OnboardingCompletePayload struct {
	StudentID               string `json:"student_id"`
	OrgID                   string `json:"org_id"`
	CompletedAt             string `json:"completed_at"`
	FirstWorkoutScheduledAt string `json:"first_workout_scheduled_at"`
}

// POST /api/triggers/onboarding-complete
//
// Conclusão de onboarding: processa todos os templates ativos da âncora
// first_workout, qualquer offset. Quando ao menos uma tarefa é criada, o
// registro de onboarding do aluno é carimbado com first_task_scheduled_at
// (efeito colateral observável; falha aqui só gera warning).
func TriggerOnboardingComplete(c *gin.Context) {
	var payload OnboardingCompletePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, "json inválido: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.StudentID == "" {
		RespondError(c, "student_id é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.OrgID == "" {
		RespondError(c, "org_id é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.CompletedAt == "" {
		RespondError(c, "completed_at é obrigatório", http.StatusBadRequest)
		return
	}
	completedAt, err := ParseInstant(payload.CompletedAt)
	if err != nil {
		RespondError(c, "completed_at inválido", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	templates, err := relationship.ListActiveTemplates(db, payload.OrgID, models.ANCHOR_FIRST_WORKOUT)
	if err != nil {
		RespondError(c, "erro ao buscar templates: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(templates) == 0 {
		RespondSuccess(c, TriggerResponse{
			Success: true,
			Message: "nenhum template ativo para first_workout",
		})
		return
	}

	student, err := relationship.GetStudent(db, payload.StudentID, payload.OrgID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondError(c, "aluno não encontrado", http.StatusNotFound)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	extra := map[string]string{}
	if payload.FirstWorkoutScheduledAt != "" {
		if fw, err := ParseInstant(payload.FirstWorkoutScheduledAt); err == nil {
			extra["DataPrimeiroTreino"] = fw.Format("02/01/2006")
		}
	}

	result := relationship.ProcessTemplates(db, student, templates, relationship.TriggerOptions{
		Anchor:        models.ANCHOR_FIRST_WORKOUT,
		AnchorAt:      completedAt,
		CreatedBy:     TRIGGER_ONBOARDING,
		VariantPolicy: conf.Relationship.MessageVariant,
		Extra:         extra,
		Decorate: func(p *models.TaskPayload) {
			p.OnboardingAt = payload.CompletedAt
		},
	})

	if result.TasksCreated > 0 {
		stampOnboardingHistory(db, payload.StudentID, payload.OrgID)
	}

	RespondSuccess(c, TriggerResponse{
		Success:      len(result.Errors) == 0,
		Message:      "processamento concluído",
		TasksCreated: result.TasksCreated,
		Errors:       result.Errors,
	})
}

// stampOnboardingHistory marca first_task_scheduled_at no registro mais
// recente de onboarding do aluno.
func stampOnboardingHistory(db *gorm.DB, studentID string, orgID string) {
	var history models.OnboardingHistory
	err := db.
		Where("student_id = ? AND org_id = ?", studentID, orgID).
		Order("completed_at desc").
		First(&history).Error
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			log.Printf("onboarding trigger: history lookup error: %v", err)
		}
		return
	}
	now := time.Now()
	if err := db.Model(&models.OnboardingHistory{}).
		Where("id = ?", history.ID).
		Update("first_task_scheduled_at", &now).Error; err != nil {
		log.Printf("onboarding trigger: history stamp error: %v", err)
	}
}

type OccurrenceFollowupPayload struct {
	StudentID       string `json:"student_id"`
	OccurrenceID    int64  `json:"occurrence_id"`
	ReminderAt      string `json:"reminder_at"`
	OccurrenceType  string `json:"occurrence_type"`
	OccurrenceNotes string `json:"occurrence_notes"`
	OrgID           string `json:"org_id"`
}

// POST /api/triggers/occurrence-followup
//
// Ocorrência salva com lembrete: template único implícito, bucket por
// identidade (occurrence_id). Disparo repetido para a mesma ocorrência
// reagenda e re-renderiza a tarefa existente em vez de duplicar — é o caso
// "editar lembrete da ocorrência".
func TriggerOccurrenceFollowup(c *gin.Context) {
	var payload OccurrenceFollowupPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, "json inválido: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.StudentID == "" {
		RespondError(c, "student_id é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.OccurrenceID <= 0 {
		RespondError(c, "occurrence_id é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.ReminderAt == "" {
		RespondError(c, "reminder_at é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.OrgID == "" {
		RespondError(c, "org_id é obrigatório", http.StatusBadRequest)
		return
	}
	reminderAt, err := ParseInstant(payload.ReminderAt)
	if err != nil {
		RespondError(c, "reminder_at inválido", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	student, err := relationship.GetStudent(db, payload.StudentID, payload.OrgID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondError(c, "aluno não encontrado", http.StatusNotFound)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	template, err := occurrenceTemplate(db, payload.OrgID)
	if err != nil {
		RespondError(c, "erro ao buscar template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	occurrenceType := payload.OccurrenceType
	if occurrenceType == "" {
		occurrenceType = "Ocorrência"
	}
	occurrenceNotes := payload.OccurrenceNotes
	if occurrenceNotes == "" {
		occurrenceNotes = "Sem descrição"
	}

	result := relationship.ProcessTemplates(db, student, []models.Template{template}, relationship.TriggerOptions{
		Anchor:        models.ANCHOR_OCCURRENCE_FOLLOWUP,
		AnchorAt:      reminderAt,
		CreatedBy:     TRIGGER_OCCURRENCE,
		VariantPolicy: conf.Relationship.MessageVariant,
		OccurrenceID:  payload.OccurrenceID,
		Extra: map[string]string{
			"TipoOcorrencia":      occurrenceType,
			"DescricaoOcorrencia": occurrenceNotes,
			"Observacoes":         occurrenceNotes,
		},
		Decorate: func(p *models.TaskPayload) {
			p.OccurrenceID = payload.OccurrenceID
			p.OccurrenceType = payload.OccurrenceType
			p.OccurrenceNotes = payload.OccurrenceNotes
		},
	})

	message := "tarefa criada"
	if result.TasksUpdated > 0 {
		message = "tarefa reagendada"
	}
	RespondSuccess(c, TriggerResponse{
		Success:      len(result.Errors) == 0,
		Message:      message,
		TasksCreated: result.TasksCreated,
		TasksUpdated: result.TasksUpdated,
		Errors:       result.Errors,
	})
}

// occurrenceTemplate carrega o template de follow-up da organização; quando a
// organização não tem um, usa o default implícito do sistema.
func occurrenceTemplate(db *gorm.DB, orgID string) (models.Template, error) {
	var template models.Template
	err := db.
		Where("org_id = ? AND code = ? AND active = ?", orgID, relationship.CODE_OCCURRENCE_FOLLOWUP, true).
		First(&template).Error
	if err == nil {
		return template, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return models.Template{}, err
	}
	for _, t := range relationship.DefaultTemplates(orgID) {
		if t.Code == relationship.CODE_OCCURRENCE_FOLLOWUP {
			return t, nil
		}
	}
	// unreachable enquanto o seed tiver o template implícito
	return models.Template{}, gorm.ErrRecordNotFound
}
