package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Next(t *testing.T) {
	tests := []struct {
		from     Status
		expected Status
		ok       bool
	}{
		{StatusPendente, StatusEmPreparo, true},
		{StatusEmPreparo, StatusEnviado, true},
		{StatusEnviado, StatusEntregue, true},
		{StatusEntregue, "", false},
		{Status("cancelado"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			next, ok := tt.from.Next()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusEntregue.IsTerminal())
	assert.False(t, StatusPendente.IsTerminal())
	assert.False(t, StatusEnviado.IsTerminal())
}
