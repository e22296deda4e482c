package relationship

import (
	"github.com/jinzhu/gorm"

	"vinculo/models"
)

// CODE_OCCURRENCE_FOLLOWUP é o template implícito do gatilho de ocorrência.
const CODE_OCCURRENCE_FOLLOWUP = "MSG_OCCURRENCE_FOLLOWUP"

func intPtr(v int) *int { return &v }

// DefaultTemplates é o conjunto pronto de templates que acelera a adoção de
// uma organização nova. Os códigos são estáveis; o seed nunca sobrescreve um
// template já existente com o mesmo código.
func DefaultTemplates(orgID string) []models.Template {
	return []models.Template{
		{
			OrgID:              orgID,
			Code:               "WELCOME_01",
			Title:              "Boas-vindas após Fechamento",
			Anchor:             models.ANCHOR_SALE_CLOSE,
			Active:             true,
			TemporalOffsetDays: intPtr(0),
			SuggestedOffset:    "+0d",
			ChannelDefault:     models.CHANNEL_WHATSAPP,
			MessageV1:          "[SaudacaoTemporal], [PrimeiroNome]! 🎉\n\nSeja muito bem-vindo(a)! Estou muito feliz em tê-lo(a) conosco.\n\nVamos juntos nessa jornada de transformação! 💪",
			Variables:          `["SaudacaoTemporal","PrimeiroNome"]`,
		},
		{
			OrgID:              orgID,
			Code:               "FIRST_WORKOUT_REMINDER",
			Title:              "Lembrete - Primeiro Treino",
			Anchor:             models.ANCHOR_FIRST_WORKOUT,
			Active:             true,
			TemporalOffsetDays: intPtr(-1),
			SuggestedOffset:    "-1d",
			ChannelDefault:     models.CHANNEL_WHATSAPP,
			MessageV1:          "Oi [PrimeiroNome]! 👋\n\nAmanhã é o seu primeiro treino! Estou ansioso para te conhecer melhor.\n\nLembre-se de trazer roupa confortável e uma garrafa de água. Nos vemos em breve! 🏋️",
			Variables:          `["PrimeiroNome"]`,
		},
		{
			OrgID:              orgID,
			Code:               "FIRST_WEEK_CHECKIN",
			Title:              "Check-in Primeira Semana",
			Anchor:             models.ANCHOR_FIRST_WORKOUT,
			Active:             true,
			TemporalOffsetDays: intPtr(8),
			SuggestedOffset:    "+8d",
			ChannelDefault:     models.CHANNEL_WHATSAPP,
			MessageV1:          "Oi [PrimeiroNome]! 😊\n\nComo está sendo sua primeira semana de treinos? Estou aqui para te ajudar com qualquer dúvida ou ajuste que precisar.\n\nComo está se sentindo? 💪",
			Variables:          `["PrimeiroNome"]`,
		},
		{
			OrgID:              orgID,
			Code:               "BIRTHDAY_WISH",
			Title:              "Parabéns de Aniversário",
			Anchor:             models.ANCHOR_BIRTHDAY,
			Active:             true,
			TemporalOffsetDays: intPtr(0),
			SuggestedOffset:    "+0d",
			ChannelDefault:     models.CHANNEL_WHATSAPP,
			MessageV1:          "🎉 Feliz Aniversário, [PrimeiroNome]! 🎂\n\nQue este novo ano de vida seja repleto de saúde, felicidade e muitas conquistas!\n\nParabéns! 🎊",
			Variables:          `["PrimeiroNome"]`,
		},
		{
			OrgID:              orgID,
			Code:               "RENEWAL_REMINDER",
			Title:              "Lembrete de Renovação",
			Anchor:             models.ANCHOR_RENEWAL_WINDOW,
			Active:             true,
			TemporalOffsetDays: intPtr(-30),
			SuggestedOffset:    "-30d",
			ChannelDefault:     models.CHANNEL_WHATSAPP,
			MessageV1:          "Oi [PrimeiroNome]! 😊\n\nSeu plano vence em [DataVencimento]. Que tal continuarmos juntos nessa jornada?\n\nVou preparar uma proposta especial para você! 💪",
			Variables:          `["PrimeiroNome","DataVencimento"]`,
			AudienceFilter:     `{"statuses":["active"]}`,
		},
		{
			OrgID:              orgID,
			Code:               CODE_OCCURRENCE_FOLLOWUP,
			Title:              "Follow-up de Ocorrência",
			Anchor:             models.ANCHOR_OCCURRENCE_FOLLOWUP,
			Active:             true,
			// o envio é no próprio reminder_at informado pelo gatilho
			TemporalOffsetDays: intPtr(0),
			SuggestedOffset:    "+0d",
			ChannelDefault:     models.CHANNEL_WHATSAPP,
			MessageV1:          "[SaudacaoTemporal], [PrimeiroNome]! 👋\n\nPassando para saber como você está após: [DescricaoOcorrencia]\n\nEstou aqui para o que precisar! 💙",
			Variables:          `["SaudacaoTemporal","PrimeiroNome","TipoOcorrencia","DescricaoOcorrencia"]`,
		},
	}
}

// SeedDefaultTemplates insere os templates padrão que ainda não existem para
// a organização. Devolve quantos foram inseridos.
func SeedDefaultTemplates(db *gorm.DB, orgID string) (int, error) {
	inserted := 0
	for _, t := range DefaultTemplates(orgID) {
		var count int
		if err := db.Model(&models.Template{}).
			Where("org_id = ? AND code = ?", orgID, t.Code).
			Count(&count).Error; err != nil {
			return inserted, err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&t).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
