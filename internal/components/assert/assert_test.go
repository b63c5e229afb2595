package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var typedNil *int
	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(typedNil) })
	require.NotPanics(t, func() { NotNil(1) })
	require.NotPanics(t, func() { NotNil(&struct{}{}) })
}

func TestTrue(t *testing.T) {
	require.PanicsWithValue(t, "boom", func() { True(false, "boom") })
	require.NotPanics(t, func() { True(true, "boom") })
}
