package errgroup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrsAccumulates(t *testing.T) {
	var e Errs
	require.False(t, e.Errored())
	require.NoError(t, e.Err())

	e.Add(nil)
	require.False(t, e.Errored())

	e.Add(errors.New("first"))
	require.True(t, e.Errored())
	require.EqualError(t, e.Err(), "first")

	e.Add(errors.New("second"))
	require.EqualError(t, e.Err(), "first; second")
}
