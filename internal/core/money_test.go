package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out float64
	}{
		{"1.234,56", 1234.56},
		{"R$ 1.234,56", 1234.56},
		{"99,9", 99.9},
		{"10", 10},
		{" 2,50 ", 2.5},
		{"1.000.000,00", 1000000},
		{"0,005", 0.01},
		{"-15,00", -15},
		{"", 0},
		{"abc", 0},
		{"R$", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, ParseMoney(tc.in), "input %q", tc.in)
	}
}

func TestParseMoneyStrict(t *testing.T) {
	v, err := ParseMoneyStrict("1.234,56")
	require.NoError(t, err)
	assert.Equal(t, 1234.56, v)

	for _, in := range []string{"", "   ", "x", "-", "1,2,3"} {
		_, err := ParseMoneyStrict(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
	}
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{0, "0,00"},
		{1.5, "1,50"},
		{999.99, "999,99"},
		{1234.56, "1.234,56"},
		{1234567.8, "1.234.567,80"},
		{-42.1, "-42,10"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, FormatBRL(tc.in))
	}
	assert.Equal(t, "R$ 1.234,56", FormatCurrency(1234.56))
	assert.Equal(t, "-R$ 5,00", FormatCurrency(-5))
}

func TestAddMoneyAndCents(t *testing.T) {
	assert.Equal(t, 0.3, AddMoney(0.1, 0.2))
	assert.Equal(t, int64(15000), Cents(150))
	assert.Equal(t, int64(1999), Cents(19.99))
	assert.Equal(t, 10.01, RoundMoney(10.005))
}
