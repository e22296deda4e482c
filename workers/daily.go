package workers

import (
	"log"
	"time"

	"vinculo/config"
	"vinculo/models"
	"vinculo/relationship"

	"github.com/jinzhu/gorm"
	"github.com/robfig/cron/v3"
)

const SWEEP_CREATED_BY = "system_daily_sweep"

// StartDailySweep agenda a varredura diária de âncoras temporais na expressão
// cron configurada. Devolve o cron para o caller poder parar.
func StartDailySweep(db *gorm.DB, conf config.Configuration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(conf.Relationship.DailySweepCron, func() {
		RunTemporalSweep(db, conf)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// SweepResult resume uma varredura (também exposta via POST /api/relationship/job).
type SweepResult struct {
	StudentsMatched int      `json:"students_matched"`
	TasksCreated    int      `json:"tasks_created"`
	Errors          []string `json:"errors,omitempty"`
}

// temporalHit é uma âncora temporal que dispara hoje para um aluno.
type temporalHit struct {
	Anchor   string
	AnchorAt time.Time
}

// temporalHits decide quais âncoras temporais valem hoje para o aluno:
//   - birthday: mês/dia do nascimento é hoje, ancorado em agora;
//   - renewal_window: plano ainda vigente, ancorado no vencimento (o offset
//     do template, ex: -30d, decide quando a mensagem sai);
//   - weekly_followup: ancorado no último treino registrado;
//   - monthly_review: todo mês no dia do cadastro, pulando o mês do cadastro.
func temporalHits(s models.Student, now time.Time) []temporalHit {
	var hits []temporalHit
	if s.BirthDate != nil && s.BirthDate.Month() == now.Month() && s.BirthDate.Day() == now.Day() {
		hits = append(hits, temporalHit{models.ANCHOR_BIRTHDAY, now})
	}
	if s.PlanEndDate != nil && s.PlanEndDate.After(now) {
		hits = append(hits, temporalHit{models.ANCHOR_RENEWAL_WINDOW, *s.PlanEndDate})
	}
	if s.LastWorkoutDate != nil {
		hits = append(hits, temporalHit{models.ANCHOR_WEEKLY_FOLLOWUP, *s.LastWorkoutDate})
	}
	if s.CreatedAt != nil && s.CreatedAt.Day() == now.Day() &&
		!(s.CreatedAt.Year() == now.Year() && s.CreatedAt.Month() == now.Month()) {
		hits = append(hits, temporalHit{models.ANCHOR_MONTHLY_REVIEW, now})
	}
	return hits
}

// RunTemporalSweep cria as tarefas das âncoras temporais do dia (aniversário,
// janela de renovação, follow-up semanal, revisão mensal). Reexecutar no mesmo
// dia não duplica nada (bucket por dia); âncora sem template ativo na
// organização é simplesmente pulada.
func RunTemporalSweep(db *gorm.DB, conf config.Configuration) SweepResult {
	now := time.Now()
	result := SweepResult{}

	// filtra datas em Go para não depender de função de data do dialeto
	var students []models.Student
	if err := db.
		Where("status = ?", models.STUDENT_STATUS_ACTIVE).
		Find(&students).Error; err != nil {
		log.Printf("daily sweep: query error: %v", err)
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	templateCache := map[string][]models.Template{}
	for _, student := range students {
		hits := temporalHits(student, now)
		if len(hits) == 0 {
			continue
		}
		result.StudentsMatched++

		for _, hit := range hits {
			cacheKey := student.OrgID + "|" + hit.Anchor
			templates, ok := templateCache[cacheKey]
			if !ok {
				var err error
				templates, err = relationship.ListActiveTemplates(db, student.OrgID, hit.Anchor)
				if err != nil {
					log.Printf("daily sweep: templates error (org %s, anchor %s): %v", student.OrgID, hit.Anchor, err)
					result.Errors = append(result.Errors, err.Error())
					continue
				}
				templateCache[cacheKey] = templates
			}
			if len(templates) == 0 {
				continue
			}

			r := relationship.ProcessTemplates(db, student, templates, relationship.TriggerOptions{
				Anchor:        hit.Anchor,
				AnchorAt:      hit.AnchorAt,
				CreatedBy:     SWEEP_CREATED_BY,
				VariantPolicy: conf.Relationship.MessageVariant,
			})
			result.TasksCreated += r.TasksCreated
			result.Errors = append(result.Errors, r.Errors...)
		}
	}

	log.Printf("daily sweep: matched=%d created=%d errors=%d",
		result.StudentsMatched, result.TasksCreated, len(result.Errors))
	return result
}
