package models

import (
	"strings"
	"time"
)

/************************************************
/**** MARK: STUDENT STATUS ****/
/************************************************/
const STUDENT_STATUS_ONBOARDING = "onboarding"
const STUDENT_STATUS_ACTIVE = "active"
const STUDENT_STATUS_PAUSED = "paused"
const STUDENT_STATUS_INACTIVE = "inactive"

// Student representa um aluno da organização.
// O cadastro (CRUD) é feito por outro sistema; aqui o registro é somente leitura
// e serve de fonte para as variáveis de mensagem e para o dedup por aluno.
type Student struct {
	ID               string     `gorm:"primary_key" json:"id"`
	OrgID            string     `gorm:"not null;index" json:"org_id"`
	Name             string     `gorm:"not null" json:"name"`
	Email            string     `gorm:"default:''" json:"email"`
	Phone            string     `gorm:"default:''" json:"phone"`
	Status           string     `gorm:"not null;default:'onboarding';index" json:"status"`
	BirthDate        *time.Time `json:"birth_date"`
	FirstWorkoutDate *time.Time `json:"first_workout_date"`
	LastWorkoutDate  *time.Time `json:"last_workout_date"`
	PlanEndDate      *time.Time `gorm:"column:plan_end_date" json:"plan_end_date"`
	TrainerName      string     `gorm:"default:''" json:"trainer_name"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// FirstName devolve o primeiro nome do aluno; quando o nome não tem espaço,
// cai para o nome completo.
func (s Student) FirstName() string {
	name := strings.TrimSpace(s.Name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// LastName devolve o sobrenome (tudo depois do primeiro espaço).
func (s Student) LastName() string {
	name := strings.TrimSpace(s.Name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return strings.TrimSpace(name[i+1:])
	}
	return ""
}
