package relationship

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jinzhu/gorm"

	"vinculo/models"
)

// DayBucket é a chave de idempotência para âncoras bucketizadas por data:
// o dia de calendário do scheduled_for.
func DayBucket(scheduledFor time.Time) string {
	return scheduledFor.Format("2006-01-02")
}

// OccurrenceBucket é a chave de idempotência para âncoras bucketizadas por
// identidade (a ocorrência de negócio que originou a tarefa).
func OccurrenceBucket(occurrenceID int64) string {
	return fmt.Sprintf("occ:%d", occurrenceID)
}

// MaterializeInput carrega tudo que o materializador precisa para persistir
// (ou reaproveitar) uma tarefa.
type MaterializeInput struct {
	Student       models.Student
	TemplateCode  string
	Anchor        string
	ScheduledFor  time.Time
	Channel       string
	Payload       models.TaskPayload
	VariablesUsed []string
	CreatedBy     string

	// OccurrenceID > 0 muda o bucket de data para identidade e habilita o
	// caminho de atualização in-place (editar lembrete de ocorrência).
	OccurrenceID int64
}

// Materialize é o Dedup Guard + Task Materializer.
//
// Âncora por data: se já existe tarefa do aluno/template/âncora com
// scheduled_for dentro do mesmo dia de calendário, devolve a existente sem
// tocar em nada (created=false). Âncora por identidade: se já existe tarefa
// para a ocorrência, atualiza scheduled_for e payload in-place e devolve
// created=false. Caso contrário insere com status pending e grava o Log
// "created".
//
// O pré-check select não é atômico sob concorrência; o índice único em
// (student_id, template_code, anchor, bucket_key) é o mecanismo autoritativo:
// violação de constraint no insert é tratada como "já existe" e reencaminhada
// para o caminho de lookup/update, nunca devolvida como falha.
func Materialize(db *gorm.DB, in MaterializeInput) (models.Task, bool, error) {
	if in.OccurrenceID > 0 {
		return materializeByOccurrence(db, in)
	}
	return materializeByDay(db, in)
}

func materializeByDay(db *gorm.DB, in MaterializeInput) (models.Task, bool, error) {
	dayStart := time.Date(in.ScheduledFor.Year(), in.ScheduledFor.Month(), in.ScheduledFor.Day(), 0, 0, 0, 0, in.ScheduledFor.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var existing models.Task
	err := db.
		Where("student_id = ? AND template_code = ? AND anchor = ?", in.Student.ID, in.TemplateCode, in.Anchor).
		Where("scheduled_for >= ? AND scheduled_for < ?", dayStart, dayEnd).
		First(&existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return models.Task{}, false, err
	}

	task := newTask(in, DayBucket(in.ScheduledFor))
	if err := db.Create(&task).Error; err != nil {
		if !isUniqueViolation(err) {
			return models.Task{}, false, err
		}
		// corrida entre entregas duplicadas: o vencedor já inseriu
		lookupErr := db.
			Where("student_id = ? AND template_code = ? AND anchor = ? AND bucket_key = ?",
				in.Student.ID, in.TemplateCode, in.Anchor, task.BucketKey).
			First(&existing).Error
		if lookupErr != nil {
			return models.Task{}, false, err
		}
		return existing, false, nil
	}

	appendLog(db, task, models.LOG_ACTION_CREATED, map[string]any{
		"scheduled_for": in.ScheduledFor,
		"trigger":       in.CreatedBy,
	})
	return task, true, nil
}

func materializeByOccurrence(db *gorm.DB, in MaterializeInput) (models.Task, bool, error) {
	var existing models.Task
	err := db.
		Where("student_id = ? AND anchor = ? AND occurrence_id = ?", in.Student.ID, in.Anchor, in.OccurrenceID).
		First(&existing).Error
	if err == nil {
		return updateOccurrenceTask(db, existing, in)
	}
	if !gorm.IsRecordNotFoundError(err) {
		return models.Task{}, false, err
	}

	task := newTask(in, OccurrenceBucket(in.OccurrenceID))
	task.OccurrenceID = in.OccurrenceID
	if err := db.Create(&task).Error; err != nil {
		if !isUniqueViolation(err) {
			return models.Task{}, false, err
		}
		lookupErr := db.
			Where("student_id = ? AND anchor = ? AND occurrence_id = ?", in.Student.ID, in.Anchor, in.OccurrenceID).
			First(&existing).Error
		if lookupErr != nil {
			return models.Task{}, false, err
		}
		return updateOccurrenceTask(db, existing, in)
	}

	appendLog(db, task, models.LOG_ACTION_CREATED, map[string]any{
		"occurrence_id": in.OccurrenceID,
		"scheduled_for": in.ScheduledFor,
		"trigger":       in.CreatedBy,
	})
	return task, true, nil
}

// updateOccurrenceTask reagenda e re-renderiza a tarefa da ocorrência in-place
// (caso "editar lembrete"), gravando um Log "scheduled".
func updateOccurrenceTask(db *gorm.DB, existing models.Task, in MaterializeInput) (models.Task, bool, error) {
	updates := map[string]any{
		"scheduled_for":  in.ScheduledFor,
		"payload":        in.Payload.Encode(),
		"variables_used": models.EncodeVariables(in.VariablesUsed),
	}
	if err := db.Model(&models.Task{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return models.Task{}, false, err
	}

	existing.ScheduledFor = in.ScheduledFor
	existing.Payload = in.Payload.Encode()
	existing.VariablesUsed = models.EncodeVariables(in.VariablesUsed)

	appendLog(db, existing, models.LOG_ACTION_SCHEDULED, map[string]any{
		"occurrence_id": in.OccurrenceID,
		"reminder_at":   in.ScheduledFor,
		"trigger":       in.CreatedBy,
	})
	return existing, false, nil
}

func newTask(in MaterializeInput, bucket string) models.Task {
	return models.Task{
		OrgID:         in.Student.OrgID,
		StudentID:     in.Student.ID,
		TemplateCode:  in.TemplateCode,
		Anchor:        in.Anchor,
		BucketKey:     bucket,
		ScheduledFor:  in.ScheduledFor,
		Channel:       in.Channel,
		Status:        models.TASK_STATUS_PENDING,
		Payload:       in.Payload.Encode(),
		VariablesUsed: models.EncodeVariables(in.VariablesUsed),
		CreatedBy:     in.CreatedBy,
	}
}

func appendLog(db *gorm.DB, task models.Task, action string, meta map[string]any) {
	taskID := task.ID
	entry := models.Log{
		OrgID:        task.OrgID,
		StudentID:    task.StudentID,
		TaskID:       &taskID,
		Action:       action,
		Channel:      task.Channel,
		TemplateCode: task.TemplateCode,
		Meta:         models.EncodeMeta(meta),
	}
	if err := db.Create(&entry).Error; err != nil {
		// auditoria nunca derruba a operação principal
		log.Printf("relationship: log append error: %v", err)
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

/************************************************
/**** MARK: TRIGGER PIPELINE ****/
/************************************************/

// TriggerOptions parametriza o pipeline compartilhado pelos trigger handlers.
type TriggerOptions struct {
	Anchor        string
	AnchorAt      time.Time
	CreatedBy     string
	VariantPolicy string

	// OnlyImmediate restringe aos templates com offset resolvido 0 (sale_close).
	OnlyImmediate bool

	// Extra entra no contexto de variáveis (ex: TipoOcorrencia).
	Extra map[string]string

	// OccurrenceID > 0 troca o bucket de data pelo de identidade (follow-up
	// de ocorrência): replays atualizam a tarefa em vez de duplicar.
	OccurrenceID int64

	// Decorate permite ao handler acrescentar campos específicos da âncora
	// ao payload persistido.
	Decorate func(*models.TaskPayload)

	// Now é injetável para testes determinísticos de saudação/idade.
	Now func() time.Time
}

// TriggerResult é o resumo devolvido ao produtor do evento.
type TriggerResult struct {
	TemplatesEvaluated int      `json:"templates_evaluated"`
	TasksCreated       int      `json:"tasks_created"`
	TasksUpdated       int      `json:"tasks_updated"`
	Errors             []string `json:"errors,omitempty"`
}

// ProcessTemplates roda o pipeline por template: audiência → contexto →
// offset → dedup → render → materialização. Falha de um template não aborta
// os irmãos: vai para a lista de erros e o processamento continua.
func ProcessTemplates(db *gorm.DB, student models.Student, templates []models.Template, opts TriggerOptions) TriggerResult {
	var result TriggerResult

	for _, template := range templates {
		if opts.OnlyImmediate && !ResolveOffset(template).IsImmediate() {
			continue
		}
		result.TemplatesEvaluated++

		if !AudienceAllows(template, student) {
			continue
		}

		scheduledFor := ResolveSchedule(opts.AnchorAt, template)

		builder := ContextBuilder{
			Student: student,
			Anchor:  &AnchorData{Anchor: opts.Anchor, At: opts.AnchorAt, Extra: opts.Extra},
			Now:     opts.Now,
		}
		ctx := builder.Build()

		variant := SelectVariant(template, opts.VariantPolicy, student.ID)
		rendered := Render(variant, ctx)

		payload := models.TaskPayload{
			Message:      rendered,
			StudentName:  student.Name,
			StudentEmail: student.Email,
			StudentPhone: student.Phone,
		}
		if opts.Decorate != nil {
			opts.Decorate(&payload)
		}

		channel := template.ChannelDefault
		if channel == "" {
			channel = models.CHANNEL_WHATSAPP
		}

		_, created, err := Materialize(db, MaterializeInput{
			Student:       student,
			TemplateCode:  template.Code,
			Anchor:        opts.Anchor,
			ScheduledFor:  scheduledFor,
			Channel:       channel,
			Payload:       payload,
			VariablesUsed: UsedVariables(variant, ctx),
			CreatedBy:     opts.CreatedBy,
			OccurrenceID:  opts.OccurrenceID,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("template %s: %v", template.Code, err))
			appendTriggerFailureLog(db, student, template, err, opts)
			continue
		}
		if created {
			result.TasksCreated++
		} else if opts.OccurrenceID > 0 {
			result.TasksUpdated++
		}
	}

	return result
}

// appendTriggerFailureLog registra a falha de persistência de um template
// isolado; task_id fica nulo porque a tarefa não chegou a existir.
func appendTriggerFailureLog(db *gorm.DB, student models.Student, template models.Template, cause error, opts TriggerOptions) {
	entry := models.Log{
		OrgID:        student.OrgID,
		StudentID:    student.ID,
		TaskID:       nil,
		Action:       models.LOG_ACTION_FAILED,
		Channel:      template.ChannelDefault,
		TemplateCode: template.Code,
		Meta: models.EncodeMeta(map[string]any{
			"trigger": opts.CreatedBy,
			"error":   cause.Error(),
		}),
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("relationship: failure log append error: %v", err)
	}
}
