package tools

import "time"

// FormatDateBR formata uma data no padrão brasileiro (dd/mm/aaaa).
func FormatDateBR(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatTimeBR formata horário curto (hh:mm).
func FormatTimeBR(t time.Time) string {
	return t.Format("15:04")
}

// DaysBetween devolve a quantidade de dias de calendário entre duas datas,
// sempre >= 0, ignorando a hora do dia.
func DaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	d := int(b.Sub(a).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// AgeAt calcula a idade em anos completos na data de referência.
func AgeAt(birth, ref time.Time) int {
	age := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
