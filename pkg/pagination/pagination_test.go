package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 7, NormalizeLimit(7))
}

func TestParseAndOffset(t *testing.T) {
	params, err := Parse("3", "10")
	require.NoError(t, err)
	assert.Equal(t, Params{Page: 3, Limit: 10}, params)
	assert.Equal(t, 20, params.Offset())

	params, err = Parse("", "")
	require.NoError(t, err)
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit}, params)
	assert.Equal(t, 0, params.Offset())

	_, err = Parse("0", "")
	assert.Error(t, err)
	_, err = Parse("", "abc")
	assert.Error(t, err)
}
