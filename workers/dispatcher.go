package workers

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"vinculo/config"
	"vinculo/models"
	"vinculo/tools"

	"github.com/jinzhu/gorm"
)

// StartDispatcher inicia o loop que envia as tarefas de whatsapp vencidas
// (status pending e scheduled_for <= agora). Tarefas de outros canais ficam
// pendentes para tratamento manual pelo personal.
func StartDispatcher(db *gorm.DB, conf config.Configuration) {
	interval := time.Duration(conf.Relationship.DispatchIntervalSeconds) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			dispatchDueTasks(db)
		}
	}()
}

func dispatchDueTasks(db *gorm.DB) {
	now := time.Now()

	var tasks []models.Task
	if err := db.
		Where("status = ?", models.TASK_STATUS_PENDING).
		Where("channel = ?", models.CHANNEL_WHATSAPP).
		Where("scheduled_for <= ?", now).
		Order("scheduled_for asc, id asc").
		Limit(50).
		Find(&tasks).Error; err != nil {
		log.Printf("dispatcher: query error: %v", err)
		return
	}

	for _, task := range tasks {
		// lock otimista: só despacha se conseguir mudar status
		res := db.Model(&models.Task{}).
			Where("id = ? AND status = ?", task.ID, models.TASK_STATUS_PENDING).
			Update("status", models.TASK_STATUS_PROCESSING)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}

		go dispatchTask(db, task.ID)
	}
}

func dispatchTask(db *gorm.DB, taskID int64) {
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		return
	}
	if task.Status != models.TASK_STATUS_PROCESSING {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	payload := task.DecodePayload()
	if payload.Message == "" {
		markFailed(db, task, "payload sem mensagem")
		return
	}
	to, err := tools.NormalizeWhatsAppTo(payload.StudentPhone)
	if err != nil {
		markFailed(db, task, "telefone inválido: "+err.Error())
		return
	}

	if strings.EqualFold(strings.TrimSpace(os.Getenv("POC_NO_WHATSAPP")), "true") {
		markSent(db, task)
		return
	}

	sendErr := sendWhatsApp(ctx, db, task.OrgID, to, payload.Message)
	if sendErr != nil {
		// uma única retentativa antes de marcar falha
		log.Printf("dispatcher: send error (task %d), retrying: %v", task.ID, sendErr)
		sendErr = sendWhatsApp(ctx, db, task.OrgID, to, payload.Message)
	}
	if sendErr != nil {
		log.Printf("dispatcher: send error (task %d): %v", task.ID, sendErr)
		markFailed(db, task, sendErr.Error())
		return
	}

	markSent(db, task)
}

// sendWhatsApp prefere as credenciais da organização (WhatsAppConfig); sem
// uma linha para a org, cai nas variáveis de ambiente legadas.
func sendWhatsApp(ctx context.Context, db *gorm.DB, orgID string, to string, text string) error {
	var wa models.WhatsAppConfig
	if err := db.Where("org_id = ?", orgID).First(&wa).Error; err == nil {
		waClient := tools.WhatsAppClient{
			AccessToken:   wa.AccessToken,
			ApiVersion:    wa.ApiVersion,
			PhoneNumberID: wa.PhoneNumberID,
		}
		return waClient.SendText(ctx, to, text)
	}
	return tools.SendWhatsAppText(ctx, to, text)
}

func markSent(db *gorm.DB, task models.Task) {
	t := time.Now()
	if err := db.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]any{
		"status":  models.TASK_STATUS_SENT,
		"sent_at": &t,
	}).Error; err != nil {
		log.Printf("dispatcher: mark sent error (task %d): %v", task.ID, err)
		return
	}
	appendDispatchLog(db, task, models.LOG_ACTION_SENT, nil)
}

func markFailed(db *gorm.DB, task models.Task, reason string) {
	if err := db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("status", models.TASK_STATUS_FAILED).Error; err != nil {
		log.Printf("dispatcher: mark failed error (task %d): %v", task.ID, err)
		return
	}
	appendDispatchLog(db, task, models.LOG_ACTION_FAILED, map[string]any{"error": reason})
}

func appendDispatchLog(db *gorm.DB, task models.Task, action string, meta map[string]any) {
	entry := models.Log{
		TaskID:       &task.ID,
		OrgID:        task.OrgID,
		StudentID:    task.StudentID,
		Action:       action,
		Channel:      task.Channel,
		TemplateCode: task.TemplateCode,
		Meta:         models.EncodeMeta(meta),
	}
	if err := db.Create(&entry).Error; err != nil {
		// auditoria nunca derruba o despacho
		log.Printf("dispatcher: log append error (task %d): %v", task.ID, err)
	}
}
