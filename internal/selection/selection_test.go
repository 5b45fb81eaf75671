package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  []int
	}{
		{"list", "1, 3, 5", 5, []int{1, 3, 5}},
		{"range", "1-5", 5, []int{1, 2, 3, 4, 5}},
		{"reversed range", "5-1", 5, []int{1, 2, 3, 4, 5}},
		{"mixed", "2-3,5, 3", 5, []int{2, 3, 5}},
		{"spaced range", " 2 - 4 ", 5, []int{2, 3, 4}},
		{"all", "all", 3, []int{1, 2, 3}},
		{"all uppercase", "ALL", 2, []int{1, 2}},
		{"empty", "", 5, []int{}},
		{"blank", "   ", 5, []int{}},
		{"none", "none", 5, []int{}},
		{"trailing comma", "1,", 5, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Parse(tt.input, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Indices())
		})
	}
}

func TestParseAllSentinel(t *testing.T) {
	sel, err := Parse("all", 4)
	require.NoError(t, err)
	assert.True(t, sel.All)
	assert.False(t, sel.Empty())

	sel, err = Parse("none", 4)
	require.NoError(t, err)
	assert.False(t, sel.All)
	assert.True(t, sel.Empty())
}

func TestParseOutOfRange(t *testing.T) {
	_, err := Parse("7", 5)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Contains(t, err.Error(), "7")
	assert.Contains(t, err.Error(), "[1,5]")

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "7", pe.Token)
	assert.Equal(t, 5, pe.N)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, input string
	}{
		{"zero", "0"},
		{"range past end", "3-9"},
		{"word", "first"},
		{"all with others", "all,1"},
		{"none with others", "1,none"},
		{"negative", "-3"},
		{"open range", "2-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, 5)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestParseEmptyCatalog(t *testing.T) {
	sel, err := Parse("all", 0)
	require.NoError(t, err)
	assert.Empty(t, sel.Indices())

	_, err = Parse("1", 0)
	assert.True(t, IsParseError(err))
}
