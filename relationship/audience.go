package relationship

import "vinculo/models"

// AudienceAllows avalia o filtro de audiência do template contra o aluno.
// Filtro vazio aceita todos; filtro com lista de status exige que o status
// atual do aluno esteja na lista. Aluno fora da audiência não é erro: o
// template simplesmente não agenda nada para ele.
func AudienceAllows(t models.Template, s models.Student) bool {
	aud := t.Audience()
	if len(aud.Statuses) == 0 {
		return true
	}
	for _, st := range aud.Statuses {
		if st == s.Status {
			return true
		}
	}
	return false
}
