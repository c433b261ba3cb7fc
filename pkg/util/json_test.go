package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJsonFromText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"text":"hi"}`, `{"text":"hi"}`},
		{"fenced", "Sure:\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`},
		{"fenced without tag", "```\n[1,2]\n```", `[1,2]`},
		{"chatter around object", `Here you go {"result":[{"text":"a"}]} enjoy`, `{"result":[{"text":"a"}]}`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJsonFromText(tt.in))
		})
	}
}
