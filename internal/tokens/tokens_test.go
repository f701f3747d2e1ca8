package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace", " \n\t ", 0},
		{"short words", "a an the", 3},
		{"long word", "internationalization", 5},
		{"digits", "12345", 2},
		{"punctuation", "...!", 2},
		{"cjk", "你好", 2},
		{"mixed", "Hello, world!", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	text := "Write a bio for {{ name }} highlighting {{ traits }}."
	assert.Equal(t, Estimate(text), Estimate(text))
}

func TestEstimateFixed(t *testing.T) {
	template := "Write a bio for {{ name }} highlighting {{ traits }}."
	assert.LessOrEqual(t, EstimateFixed(template), Estimate(template))

	plain := "This prompt has no variables at all."
	assert.Equal(t, Estimate(plain), EstimateFixed(plain))

	assert.Equal(t, Estimate("Hello !"), EstimateFixed(`Hello {{ name | "World" }}!`))
	assert.Equal(t, 0, EstimateFixed(""))
}
