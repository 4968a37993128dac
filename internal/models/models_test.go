package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidName(t *testing.T) {
	valid := []string{"prod", "minha-api", "a", "ns-01", strings.Repeat("a", 63)}
	for _, name := range valid {
		assert.True(t, ValidName(name), name)
	}

	invalid := []string{"", "Prod", "meu_ns", "-inicio", "fim-", "com.ponto",
		strings.Repeat("a", 64)}
	for _, name := range invalid {
		assert.False(t, ValidName(name), name)
	}
}
