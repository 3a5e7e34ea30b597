package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: -3, want: defaultListLimit},
		{in: 0, want: defaultListLimit},
		{in: 1, want: 1},
		{in: 200, want: 200},
		{in: maxListLimit, want: maxListLimit},
		{in: maxListLimit + 1, want: maxListLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}
