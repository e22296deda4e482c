package controllers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	dbpkg "vinculo/db"
	"vinculo/models"
	"vinculo/relationship"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// TaskView é a tarefa enriquecida com dados do aluno para a listagem.
type TaskView struct {
	models.Task
	StudentName  string `json:"student_name"`
	StudentPhone string `json:"student_phone"`
}

type TaskListResponse struct {
	Tasks    []TaskView `json:"tasks"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// GET /api/tasks
//
// Lista paginada com filtros opcionais: status, anchor, template_code,
// channel, student_id, date_from e date_to (sobre scheduled_for).
func GetTasks(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	query := db.Model(&models.Task{})
	if orgID := c.Query("org_id"); orgID != "" {
		query = query.Where("org_id = ?", orgID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if anchor := c.Query("anchor"); anchor != "" {
		query = query.Where("anchor = ?", anchor)
	}
	if code := c.Query("template_code"); code != "" {
		query = query.Where("template_code = ?", code)
	}
	if channel := c.Query("channel"); channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := ParseInstant(from); err == nil {
			query = query.Where("scheduled_for >= ?", t)
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := ParseInstant(to); err == nil {
			query = query.Where("scheduled_for <= ?", t)
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var total int
	if err := query.Count(&total).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	var tasks []models.Task
	err := query.
		Order("scheduled_for asc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]TaskView, 0, len(tasks))
	studentCache := map[string]models.Student{}
	for _, task := range tasks {
		view := TaskView{Task: task}
		student, ok := studentCache[task.StudentID]
		if !ok {
			if err := db.Where("id = ?", task.StudentID).First(&student).Error; err == nil {
				studentCache[task.StudentID] = student
			}
		}
		view.StudentName = student.Name
		view.StudentPhone = student.Phone
		views = append(views, view)
	}

	RespondSuccess(c, TaskListResponse{
		Tasks:    views,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

type TaskUpdatePayload struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

var validTaskTransitions = map[string]bool{
	models.TASK_STATUS_PENDING:   true,
	models.TASK_STATUS_SENT:      true,
	models.TASK_STATUS_POSTPONED: true,
	models.TASK_STATUS_SKIPPED:   true,
	models.TASK_STATUS_FAILED:    true,
}

// PATCH /api/tasks/:id
//
// Atualiza status e/ou notas de uma tarefa. Mudar para "sent" carimba
// sent_at. Cada mudança de status gera uma linha no log com o status antigo.
func UpdateTask(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var payload TaskUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, "json inválido: "+err.Error(), http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	var task models.Task
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondError(c, "tarefa não encontrada", http.StatusNotFound)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	updates := map[string]interface{}{}
	oldStatus := task.Status
	if payload.Status != "" && payload.Status != task.Status {
		if !validTaskTransitions[payload.Status] {
			RespondError(c, "status inválido: "+payload.Status, http.StatusBadRequest)
			return
		}
		updates["status"] = payload.Status
		if payload.Status == models.TASK_STATUS_SENT {
			now := time.Now()
			updates["sent_at"] = &now
		}
	}
	if payload.Notes != "" {
		updates["notes"] = payload.Notes
	}
	if len(updates) == 0 {
		RespondSuccess(c, task)
		return
	}

	if err := db.Model(&task).Updates(updates).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	if newStatus, ok := updates["status"]; ok {
		action := statusLogAction(newStatus.(string))
		meta := models.EncodeMeta(map[string]interface{}{
			"old_status": oldStatus,
			"new_status": newStatus,
			"source":     "api",
		})
		entry := models.Log{
			TaskID:       &task.ID,
			OrgID:        task.OrgID,
			StudentID:    task.StudentID,
			Action:       action,
			Channel:      task.Channel,
			TemplateCode: task.TemplateCode,
			Meta:         meta,
		}
		if err := db.Create(&entry).Error; err != nil {
			log.Printf("tasks: log append error (task %d): %v", task.ID, err)
		}
	}

	db.Where("id = ?", id).First(&task)
	RespondSuccess(c, task)
}

func statusLogAction(status string) string {
	switch status {
	case models.TASK_STATUS_SENT:
		return models.LOG_ACTION_SENT
	case models.TASK_STATUS_POSTPONED:
		return models.LOG_ACTION_POSTPONED
	case models.TASK_STATUS_SKIPPED:
		return models.LOG_ACTION_SKIPPED
	case models.TASK_STATUS_FAILED:
		return models.LOG_ACTION_FAILED
	default:
		return models.LOG_ACTION_UPDATED
	}
}

type ManualTaskPayload struct {
	StudentID    string `json:"student_id"`
	OrgID        string `json:"org_id"`
	Message      string `json:"message"`
	Channel      string `json:"channel"`
	ScheduledFor string `json:"scheduled_for"`
	Notes        string `json:"notes"`
}

// POST /api/tasks
//
// Criação manual de tarefa, fora do fluxo de templates. Âncora "manual",
// sem dedup por bucket (cada POST cria uma tarefa nova).
func CreateManualTask(c *gin.Context) {
	var payload ManualTaskPayload
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
	if payload.Message == "" {
		RespondError(c, "message é obrigatório", http.StatusBadRequest)
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

	scheduledFor := time.Now()
	if payload.ScheduledFor != "" {
		if t, err := ParseInstant(payload.ScheduledFor); err == nil {
			scheduledFor = t
		} else {
			RespondError(c, "scheduled_for inválido", http.StatusBadRequest)
			return
		}
	}
	channel := payload.Channel
	if channel == "" {
		channel = models.CHANNEL_WHATSAPP
	}

	taskPayload := models.TaskPayload{
		Message:      payload.Message,
		StudentName:  student.Name,
		StudentEmail: student.Email,
		StudentPhone: student.Phone,
	}
	task := models.Task{
		OrgID:        payload.OrgID,
		StudentID:    student.ID,
		TemplateCode: "MANUAL",
		Anchor:       models.ANCHOR_MANUAL,
		BucketKey:    "manual:" + uuid.NewString(),
		Channel:      channel,
		Status:       models.TASK_STATUS_PENDING,
		ScheduledFor: scheduledFor,
		Payload:      taskPayload.Encode(),
		Notes:        payload.Notes,
		CreatedBy:    "api",
	}
	if err := db.Create(&task).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	entry := models.Log{
		TaskID:       &task.ID,
		OrgID:        task.OrgID,
		StudentID:    task.StudentID,
		Action:       models.LOG_ACTION_CREATED,
		Channel:      task.Channel,
		TemplateCode: task.TemplateCode,
		Meta:         models.EncodeMeta(map[string]interface{}{"manual": true, "source": "api"}),
	}
	db.Create(&entry)

	c.JSON(http.StatusCreated, task)
}

// POST /api/tasks/:id/undo
//
// Desfaz um "pular" recente: só tarefas skipped, dentro da janela de undo
// configurada, voltam ao status anterior registrado no log.
func UndoTask(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	var task models.Task
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondError(c, "tarefa não encontrada", http.StatusNotFound)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	if task.Status != models.TASK_STATUS_SKIPPED {
		RespondError(c, "apenas tarefas puladas podem ser desfeitas", http.StatusBadRequest)
		return
	}

	var lastSkip models.Log
	err := db.
		Where("task_id = ? AND action = ?", task.ID, models.LOG_ACTION_SKIPPED).
		Order("created_at desc").
		First(&lastSkip).Error
	if err != nil {
		RespondError(c, "registro do pulo não encontrado", http.StatusConflict)
		return
	}

	window := time.Duration(conf.Relationship.UndoWindowSeconds) * time.Second
	if lastSkip.CreatedAt == nil || time.Since(*lastSkip.CreatedAt) > window {
		RespondError(c, "janela de undo expirada", http.StatusConflict)
		return
	}

	previous := models.TASK_STATUS_PENDING
	if meta := models.DecodeMeta(lastSkip.Meta); meta != nil {
		if old, ok := meta["old_status"].(string); ok && old != "" {
			previous = old
		}
	}

	if err := db.Model(&task).Update("status", previous).Error; err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	entry := models.Log{
		TaskID:       &task.ID,
		OrgID:        task.OrgID,
		StudentID:    task.StudentID,
		Action:       models.LOG_ACTION_UNDO,
		Channel:      task.Channel,
		TemplateCode: task.TemplateCode,
		Meta:         models.EncodeMeta(map[string]interface{}{"restored_status": previous, "source": "api"}),
	}
	db.Create(&entry)

	db.Where("id = ?", id).First(&task)
	RespondSuccess(c, task)
}
