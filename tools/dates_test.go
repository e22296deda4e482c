package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDateBR(t *testing.T) {
	d := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "05/03/2026", FormatDateBR(d))
	assert.Equal(t, "14:30", FormatTimeBR(d))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	// dias de calendário, não períodos de 24h
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, 1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 35, AgeAt(birth, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 36, AgeAt(birth, time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, AgeAt(birth, time.Date(2026, 5, 19, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeAt(birth, time.Date(1989, 1, 1, 0, 0, 0, 0, time.UTC)))
}
