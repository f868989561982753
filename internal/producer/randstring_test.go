package producer

import (
	"math"
	"testing"

	"github.com/cuongbtq/queue-producer/internal/producer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomString_LengthWithinBounds(t *testing.T) {
	tests := []struct {
		name string
		min  int
		max  int
	}{
		{name: "fixed length", min: 5, max: 5},
		{name: "empty allowed", min: 0, max: 0},
		{name: "small range", min: 1, max: 3},
		{name: "wide range", min: 10, max: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				s, err := RandomString(tt.min, tt.max)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, len(s), tt.min)
				assert.LessOrEqual(t, len(s), tt.max)
			}
		})
	}
}

func TestRandomString_Alphabet(t *testing.T) {
	s, err := RandomString(500, 500)
	require.NoError(t, err)

	for _, r := range s {
		assert.Contains(t, alphanumeric, string(r))
	}
}

func TestRandomString_CoversWholeRange(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		s, err := RandomString(2, 4)
		require.NoError(t, err)
		seen[len(s)] = true
	}
	assert.Equal(t, map[int]bool{2: true, 3: true, 4: true}, seen)
}

func TestRandomString_InvalidRange(t *testing.T) {
	tests := []struct {
		name      string
		min       int
		max       int
		errString string
	}{
		{name: "min greater than max", min: 6, max: 5, errString: "min 6 is greater than max 5"},
		{name: "negative min", min: -1, max: 5, errString: "must not be negative"},
		{name: "max above limit", min: 0, max: domain.MaxStringLength + 1, errString: "exceeds the limit"},
		{name: "max int", min: 0, max: math.MaxInt, errString: "exceeds the limit"},
		{name: "min int to max int", min: math.MinInt, max: math.MaxInt, errString: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := RandomString(tt.min, tt.max)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRange)
			assert.Contains(t, err.Error(), tt.errString)
			assert.Empty(t, s)
		})
	}
}

func TestRandomString_AtLimit(t *testing.T) {
	s, err := RandomString(domain.MaxStringLength, domain.MaxStringLength)
	require.NoError(t, err)
	assert.Len(t, s, domain.MaxStringLength)
}
