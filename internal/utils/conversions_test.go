package utils_test

import (
	"testing"

	"github.com/jrsteele09/nrf-quote/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestToStringSlice(t *testing.T) {
	require.Nil(t, utils.ToStringSlice(nil))
	require.Equal(t, []string{"housing"}, utils.ToStringSlice("housing"))
	require.Equal(t, []string{"housing", "other-residential"}, utils.ToStringSlice([]any{"housing", "other-residential"}))
	require.Equal(t, []string{"12"}, utils.ToStringSlice(float64(12)))
}

func TestToString(t *testing.T) {
	require.Equal(t, "6", utils.ToString(float64(6)))
	require.Equal(t, "6", utils.ToString(6))
	require.Equal(t, "a", utils.ToString([]string{"a", "b"}))
	require.Equal(t, "", utils.ToString(nil))
}

func TestValuePtr(t *testing.T) {
	require.Equal(t, int64(0), utils.Value[int64](nil))
	require.Equal(t, int64(42), utils.Value(utils.Ptr(int64(42))))
}
