package models

import "time"

// OnboardingHistory guarda a conclusão do onboarding de um aluno.
// O fluxo de onboarding em si é de outro sistema; o trigger de conclusão
// apenas carimba first_task_scheduled_at quando a primeira tarefa é criada.
type OnboardingHistory struct {
	ID                   int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	OrgID                string     `gorm:"not null;index" json:"org_id"`
	StudentID            string     `gorm:"not null;index" json:"student_id"`
	CompletedAt          *time.Time `gorm:"column:completed_at" json:"completed_at"`
	FirstTaskScheduledAt *time.Time `gorm:"column:first_task_scheduled_at" json:"first_task_scheduled_at"`
	CreatedAt            *time.Time `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at"`
}
