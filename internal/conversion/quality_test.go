package conversion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuality_Weight(t *testing.T) {
	tests := []struct {
		quality Quality
		want    int
		valid   bool
	}{
		{Good, 1, true},
		{Bad, 2, true},
		{Quality(0), 0, false},
		{Quality(7), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.quality.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.quality.Weight())
			assert.Equal(t, tt.valid, tt.quality.Valid())
		})
	}
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality("GOOD")
	require.NoError(t, err)
	assert.Equal(t, Good, q)

	q, err = ParseQuality(" bad ")
	require.NoError(t, err)
	assert.Equal(t, Bad, q)

	_, err = ParseQuality("excellent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}
