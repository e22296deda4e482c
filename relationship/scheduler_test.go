package relationship

import (
	"errors"
	"testing"
	"time"

	dbpkg "vinculo/db"
	"vinculo/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.LogMode(false)
	dbpkg.AutoMigrate(db)
	t.Cleanup(func() { db.Close() })
	return db
}

func testStudent(db *gorm.DB, t *testing.T) models.Student {
	t.Helper()
	student := models.Student{
		ID:     "student-1",
		OrgID:  "org-1",
		Name:   "Maria Souza",
		Email:  "maria@exemplo.com",
		Phone:  "11999990000",
		Status: models.STUDENT_STATUS_ONBOARDING,
	}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func TestMaterializeByDayIsIdempotent(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)
	scheduledFor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	in := MaterializeInput{
		Student:      student,
		TemplateCode: "WELCOME_01",
		Anchor:       models.ANCHOR_SALE_CLOSE,
		ScheduledFor: scheduledFor,
		Channel:      models.CHANNEL_WHATSAPP,
		Payload:      models.TaskPayload{Message: "oi"},
		CreatedBy:    "test",
	}

	first, created, err := Materialize(db, in)
	require.NoError(t, err)
	assert.True(t, created)

	// replays no mesmo dia, inclusive com hora diferente, reaproveitam a tarefa
	for _, h := range []int{9, 11, 23} {
		in.ScheduledFor = time.Date(2026, 3, 10, h, 0, 0, 0, time.UTC)
		again, created, err := Materialize(db, in)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
	}

	var count int
	db.Model(&models.Task{}).Count(&count)
	assert.Equal(t, 1, count)
}

func TestMaterializeDifferentDaysCreateSeparateTasks(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)

	in := MaterializeInput{
		Student:      student,
		TemplateCode: "BIRTHDAY_WISH",
		Anchor:       models.ANCHOR_BIRTHDAY,
		ScheduledFor: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Channel:      models.CHANNEL_WHATSAPP,
		Payload:      models.TaskPayload{Message: "parabéns"},
		CreatedBy:    "test",
	}
	_, created, err := Materialize(db, in)
	require.NoError(t, err)
	assert.True(t, created)

	in.ScheduledFor = in.ScheduledFor.AddDate(1, 0, 0)
	_, created, err = Materialize(db, in)
	require.NoError(t, err)
	assert.True(t, created)

	var count int
	db.Model(&models.Task{}).Count(&count)
	assert.Equal(t, 2, count)
}

func TestMaterializeByOccurrenceUpdatesInPlace(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)

	in := MaterializeInput{
		Student:      student,
		TemplateCode: CODE_OCCURRENCE_FOLLOWUP,
		Anchor:       models.ANCHOR_OCCURRENCE_FOLLOWUP,
		ScheduledFor: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		Channel:      models.CHANNEL_WHATSAPP,
		Payload:      models.TaskPayload{Message: "como você está após: dor no joelho", OccurrenceID: 77},
		CreatedBy:    "test",
		OccurrenceID: 77,
	}
	first, created, err := Materialize(db, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "occ:77", first.BucketKey)

	// edição do lembrete: reagenda e re-renderiza a MESMA tarefa
	in.ScheduledFor = time.Date(2026, 3, 20, 15, 0, 0, 0, time.UTC)
	in.Payload.Message = "como você está após: dor no joelho (revisado)"
	second, created, err := Materialize(db, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, in.ScheduledFor, second.ScheduledFor.UTC())
	assert.Contains(t, second.DecodePayload().Message, "revisado")

	var count int
	db.Model(&models.Task{}).Count(&count)
	assert.Equal(t, 1, count)

	// a edição fica registrada como "scheduled" no log
	var logCount int
	db.Model(&models.Log{}).Where("action = ?", models.LOG_ACTION_SCHEDULED).Count(&logCount)
	assert.Equal(t, 1, logCount)
}

func TestMaterializeWritesCreatedLog(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)

	_, created, err := Materialize(db, MaterializeInput{
		Student:      student,
		TemplateCode: "WELCOME_01",
		Anchor:       models.ANCHOR_SALE_CLOSE,
		ScheduledFor: time.Now(),
		Channel:      models.CHANNEL_WHATSAPP,
		Payload:      models.TaskPayload{Message: "oi"},
		CreatedBy:    "test",
	})
	require.NoError(t, err)
	require.True(t, created)

	var entry models.Log
	require.NoError(t, db.Where("action = ?", models.LOG_ACTION_CREATED).First(&entry).Error)
	assert.Equal(t, student.ID, entry.StudentID)
	assert.NotNil(t, entry.TaskID)
	assert.Equal(t, "WELCOME_01", entry.TemplateCode)
}

func TestProcessTemplatesOnlyImmediate(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)
	zero := 0
	seven := 7

	templates := []models.Template{
		{OrgID: "org-1", Code: "WELCOME_01", Anchor: models.ANCHOR_SALE_CLOSE, Active: true,
			TemporalOffsetDays: &zero, ChannelDefault: models.CHANNEL_WHATSAPP, MessageV1: "Oi [PrimeiroNome]!"},
		{OrgID: "org-1", Code: "WEEK_LATER", Anchor: models.ANCHOR_SALE_CLOSE, Active: true,
			TemporalOffsetDays: &seven, ChannelDefault: models.CHANNEL_WHATSAPP, MessageV1: "E aí?"},
	}

	result := ProcessTemplates(db, student, templates, TriggerOptions{
		Anchor:        models.ANCHOR_SALE_CLOSE,
		AnchorAt:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		CreatedBy:     "test",
		VariantPolicy: VARIANT_V1,
		OnlyImmediate: true,
	})

	assert.Equal(t, 1, result.TemplatesEvaluated)
	assert.Equal(t, 1, result.TasksCreated)
	assert.Empty(t, result.Errors)

	var task models.Task
	require.NoError(t, db.First(&task).Error)
	assert.Equal(t, "WELCOME_01", task.TemplateCode)
	assert.Equal(t, "Oi Maria!", task.DecodePayload().Message)
}

func TestProcessTemplatesRespectsAudience(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t) // status onboarding
	zero := 0

	templates := []models.Template{
		{OrgID: "org-1", Code: "ACTIVE_ONLY", Anchor: models.ANCHOR_SALE_CLOSE, Active: true,
			TemporalOffsetDays: &zero, ChannelDefault: models.CHANNEL_WHATSAPP,
			MessageV1: "x", AudienceFilter: `{"statuses":["active"]}`},
		{OrgID: "org-1", Code: "EVERYONE", Anchor: models.ANCHOR_SALE_CLOSE, Active: true,
			TemporalOffsetDays: &zero, ChannelDefault: models.CHANNEL_WHATSAPP, MessageV1: "y"},
	}

	result := ProcessTemplates(db, student, templates, TriggerOptions{
		Anchor:        models.ANCHOR_SALE_CLOSE,
		AnchorAt:      time.Now(),
		CreatedBy:     "test",
		VariantPolicy: VARIANT_V1,
	})

	assert.Equal(t, 2, result.TemplatesEvaluated)
	assert.Equal(t, 1, result.TasksCreated)

	var task models.Task
	require.NoError(t, db.First(&task).Error)
	assert.Equal(t, "EVERYONE", task.TemplateCode)
}

func TestProcessTemplatesReplayDoesNotDuplicate(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)
	zero := 0

	templates := []models.Template{
		{OrgID: "org-1", Code: "WELCOME_01", Anchor: models.ANCHOR_SALE_CLOSE, Active: true,
			TemporalOffsetDays: &zero, ChannelDefault: models.CHANNEL_WHATSAPP, MessageV1: "Oi!"},
	}
	opts := TriggerOptions{
		Anchor:        models.ANCHOR_SALE_CLOSE,
		AnchorAt:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		CreatedBy:     "test",
		VariantPolicy: VARIANT_V1,
	}

	for i := 0; i < 3; i++ {
		result := ProcessTemplates(db, student, templates, opts)
		assert.Empty(t, result.Errors)
		if i == 0 {
			assert.Equal(t, 1, result.TasksCreated)
		} else {
			assert.Equal(t, 0, result.TasksCreated)
		}
	}

	var count int
	db.Model(&models.Task{}).Count(&count)
	assert.Equal(t, 1, count)
}

// failTaskInsert faz o insert de Task falhar para um template específico,
// simulando um erro de persistência no meio do processamento.
func failTaskInsert(db *gorm.DB, templateCode string) {
	db.Callback().Create().Before("gorm:create").Register("vinculo:fail_task_insert", func(scope *gorm.Scope) {
		if task, ok := scope.Value.(*models.Task); ok && task.TemplateCode == templateCode {
			_ = scope.Err(errors.New("insert rejeitado"))
		}
	})
}

func TestProcessTemplatesIsolatesPersistFailure(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)
	zero := 0
	failTaskInsert(db, "BOOM")

	templates := []models.Template{
		{OrgID: "org-1", Code: "BOOM", Anchor: models.ANCHOR_SALE_CLOSE, Active: true,
			TemporalOffsetDays: &zero, ChannelDefault: models.CHANNEL_WHATSAPP, MessageV1: "a"},
		{OrgID: "org-1", Code: "OK_SIBLING", Anchor: models.ANCHOR_SALE_CLOSE, Active: true,
			TemporalOffsetDays: &zero, ChannelDefault: models.CHANNEL_WHATSAPP, MessageV1: "b"},
	}

	result := ProcessTemplates(db, student, templates, TriggerOptions{
		Anchor:        models.ANCHOR_SALE_CLOSE,
		AnchorAt:      time.Now(),
		CreatedBy:     "test",
		VariantPolicy: VARIANT_V1,
	})

	// a falha de um template não aborta o irmão
	assert.Equal(t, 2, result.TemplatesEvaluated)
	assert.Equal(t, 1, result.TasksCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "BOOM")

	var tasks []models.Task
	require.NoError(t, db.Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.Equal(t, "OK_SIBLING", tasks[0].TemplateCode)

	// a falha fica auditada com task_id nulo (a tarefa nunca existiu)
	var entry models.Log
	require.NoError(t, db.
		Where("action = ? AND template_code = ? AND task_id IS NULL", models.LOG_ACTION_FAILED, "BOOM").
		First(&entry).Error)
	assert.Nil(t, entry.TaskID)
	assert.Contains(t, entry.Meta, "insert rejeitado")
}

func TestMaterializeTreatsConstraintRaceAsExisting(t *testing.T) {
	db := testDB(t)
	student := testStudent(db, t)
	scheduledFor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// simula o vencedor de uma corrida: linha com o bucket de hoje mas
	// scheduled_for fora da janela do pré-check
	winner := models.Task{
		OrgID:        student.OrgID,
		StudentID:    student.ID,
		TemplateCode: "WELCOME_01",
		Anchor:       models.ANCHOR_SALE_CLOSE,
		BucketKey:    DayBucket(scheduledFor),
		ScheduledFor: scheduledFor.AddDate(0, 0, 1),
		Channel:      models.CHANNEL_WHATSAPP,
		Status:       models.TASK_STATUS_PENDING,
		CreatedBy:    "race-winner",
	}
	require.NoError(t, db.Create(&winner).Error)

	// a violação de constraint vira "já existe", nunca erro pro caller
	got, created, err := Materialize(db, MaterializeInput{
		Student:      student,
		TemplateCode: "WELCOME_01",
		Anchor:       models.ANCHOR_SALE_CLOSE,
		ScheduledFor: scheduledFor,
		Channel:      models.CHANNEL_WHATSAPP,
		Payload:      models.TaskPayload{Message: "oi"},
		CreatedBy:    "test",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, got.ID)
}

func TestUniqueViolationDetection(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.True(t, isUniqueViolation(errUnique{}))
}

type errUnique struct{}

func (errUnique) Error() string { return "UNIQUE constraint failed: tasks.bucket_key" }
