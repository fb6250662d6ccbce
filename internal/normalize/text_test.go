package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"MARTÍN PEÑA", "MARTIN PENA"},
		{"  martín peña ", "MARTIN PENA"},
		{"Ñandú", "NANDU"},
		{"JOÃO CONCEIÇÃO", "JOAO CONCEICAO"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Name(tc.in), tc.in)
	}
}

func TestStripAccentsKeepsCase(t *testing.T) {
	assert.Equal(t, "nandu Nandu", StripAccents("ñandú Ñandú"))
}

func TestDate(t *testing.T) {
	day := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, Date("2025-01-31"))
	assert.Equal(t, day, Date("2025-01-31T23:59:59"))
	assert.Equal(t, day, Date("2025-01-31T23:59:59-03:00"))
	assert.Equal(t, day, Date("01/31/2025"))
	assert.Equal(t, day, Date(time.Date(2025, 1, 31, 15, 0, 0, 0, time.UTC)))
	assert.Nil(t, Date("31/31/2025"))
	assert.Nil(t, Date(""))
	assert.Nil(t, Date(42))
	assert.Nil(t, Date(time.Time{}))
}

func TestRound2AndInt(t *testing.T) {
	assert.True(t, decimal.RequireFromString("10.13").Equal(Round2("10.125").(decimal.Decimal)))
	assert.True(t, decimal.RequireFromString("3.5").Equal(Round2("3,5").(decimal.Decimal)))
	assert.True(t, decimal.RequireFromString("7").Equal(Round2(7).(decimal.Decimal)))
	assert.Nil(t, Round2("abc"))
	assert.Nil(t, Round2(true))

	assert.Equal(t, int64(3), Int(2.5))
	assert.Equal(t, int64(1), Int("1.4"))
	assert.Nil(t, Int("dos"))
}

func TestNoBreakSpaces(t *testing.T) {
	assert.Equal(t, "U$D 0,00", NoBreakSpaces("U$D\u00a00,00"))
}
