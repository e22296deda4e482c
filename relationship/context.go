package relationship

import (
	"strconv"
	"time"

	"vinculo/models"
	"vinculo/tools"
)

// AnchorData carrega o instante da âncora e os dados extras do evento
// (ex: tipo e observações de uma ocorrência).
type AnchorData struct {
	Anchor string
	At     time.Time
	Extra  map[string]string
}

// ContextBuilder monta o mapa chave→valor consumido pelo renderer a partir
// do aluno, do payload da âncora e do relógio.
//
// É total: variável declarada ou resolve para um valor ou tem fallback
// documentado; atributos opcionais ausentes (ex: birth_date) simplesmente
// omitem as chaves que dependem deles — o renderer degrada deixando o
// placeholder visível.
type ContextBuilder struct {
	Student models.Student
	Anchor  *AnchorData

	// Now é injetável para tornar saudação/idade determinísticos em teste.
	Now func() time.Time
}

func (b ContextBuilder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Build devolve o contexto plano de variáveis. Nunca retorna erro.
func (b ContextBuilder) Build() map[string]string {
	now := b.now()
	s := b.Student

	ctx := map[string]string{
		"PrimeiroNome":     s.FirstName(),
		"NomeCompleto":     s.Name,
		"Nome":             s.Name, // alias para templates antigos
		"SaudacaoTemporal": TemporalGreeting(now),
		"DataAtual":        tools.FormatDateBR(now),
		"HoraAtual":        tools.FormatTimeBR(now),
	}

	if sobrenome := s.LastName(); sobrenome != "" {
		ctx["Sobrenome"] = sobrenome
	}
	if s.Email != "" {
		ctx["Email"] = s.Email
	}
	if s.Phone != "" {
		ctx["Telefone"] = s.Phone
	}
	if s.TrainerName != "" {
		ctx["NomePersonal"] = s.TrainerName
	} else {
		ctx["NomePersonal"] = "Personal Trainer"
	}

	if s.BirthDate != nil {
		ctx["DataNascimento"] = tools.FormatDateBR(*s.BirthDate)
		ctx["DataAniversario"] = tools.FormatDateBR(*s.BirthDate)
		ctx["Idade"] = strconv.Itoa(tools.AgeAt(*s.BirthDate, now))
	}
	if s.CreatedAt != nil {
		ctx["DataInicio"] = tools.FormatDateBR(*s.CreatedAt)
	}
	if s.FirstWorkoutDate != nil {
		ctx["DataPrimeiroTreino"] = tools.FormatDateBR(*s.FirstWorkoutDate)
	}
	if s.LastWorkoutDate != nil {
		ctx["DataUltimoTreino"] = tools.FormatDateBR(*s.LastWorkoutDate)
		ctx["DiasSemTreinar"] = strconv.Itoa(tools.DaysBetween(*s.LastWorkoutDate, now))
	}
	if s.PlanEndDate != nil {
		ctx["DataVencimento"] = tools.FormatDateBR(*s.PlanEndDate)
	}

	if b.Anchor != nil {
		at := b.Anchor.At
		switch b.Anchor.Anchor {
		case models.ANCHOR_SALE_CLOSE:
			ctx["DataVenda"] = tools.FormatDateBR(at)
			ctx["DiasDesdeVenda"] = strconv.Itoa(tools.DaysBetween(at, now))
		case models.ANCHOR_FIRST_WORKOUT:
			ctx["DataPrimeiroTreino"] = tools.FormatDateBR(at)
		case models.ANCHOR_OCCURRENCE_FOLLOWUP:
			ctx["DataOcorrencia"] = tools.FormatDateBR(at)
		}
		for k, v := range b.Anchor.Extra {
			if v != "" {
				ctx[k] = v
			}
		}
	}

	return ctx
}

// TemporalGreeting devolve a saudação pelo horário do relógio local.
func TemporalGreeting(now time.Time) string {
	h := now.Hour()
	switch {
	case h >= 5 && h < 12:
		return "Bom dia"
	case h >= 12 && h < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}
