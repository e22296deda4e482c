package relationship

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"vinculo/models"
)

// Offset é o deslocamento em dias de calendário entre a âncora e o envio.
// A forma string ("+0d", "-1d") é legado; o inteiro é a representação canônica.
type Offset struct {
	Days int
}

// IsImmediate: "imediato" é estritamente offset resolvido igual a zero dias.
// Sufixos de hora/minuto/segundo não são aceitos; o resto do sistema trata
// offsets como dias inteiros.
func (o Offset) IsImmediate() bool {
	return o.Days == 0
}

var suggestedOffsetRe = regexp.MustCompile(`^([+-]?)(\d+)[dD]$`)

// ParseSuggestedOffset interpreta a mini-linguagem "+Nd"/"-Nd".
// Sinal ausente vale "+".
func ParseSuggestedOffset(s string) (Offset, error) {
	s = strings.TrimSpace(s)
	m := suggestedOffsetRe.FindStringSubmatch(s)
	if m == nil {
		return Offset{}, fmt.Errorf("invalid suggested_offset %q", s)
	}
	days, err := strconv.Atoi(m[2])
	if err != nil {
		return Offset{}, fmt.Errorf("invalid suggested_offset %q: %w", s, err)
	}
	if m[1] == "-" {
		days = -days
	}
	return Offset{Days: days}, nil
}

// ResolveOffset decide o offset de um template, em ordem de prioridade:
// 1. temporal_offset_days quando presente (inclusive 0);
// 2. suggested_offset parseável;
// 3. default +1 dia.
func ResolveOffset(t models.Template) Offset {
	if t.TemporalOffsetDays != nil {
		return Offset{Days: *t.TemporalOffsetDays}
	}
	if off, err := ParseSuggestedOffset(t.SuggestedOffset); err == nil {
		return off
	}
	return Offset{Days: 1}
}

// ResolveSchedule aplica o offset do template ao instante da âncora.
// Aritmética de dias de calendário; offset 0 devolve o instante da âncora
// exatamente (sem truncar para início do dia).
func ResolveSchedule(anchorAt time.Time, t models.Template) time.Time {
	off := ResolveOffset(t)
	if off.Days == 0 {
		return anchorAt
	}
	return anchorAt.AddDate(0, 0, off.Days)
}
