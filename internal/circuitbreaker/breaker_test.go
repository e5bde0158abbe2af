package circuitbreaker

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")
var errBenign = errors.New("not found")

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := New[int]("test", Config{ConsecutiveFailures: 2, Timeout: time.Minute}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}

	calls := 0
	_, err := cb.Execute(func() (int, error) {
		calls++
		return 1, nil
	})

	assert.True(t, IsOpen(err))
	assert.Equal(t, 0, calls)
}

func TestBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	cb := New[int]("test", Config{
		ConsecutiveFailures: 1,
		Timeout:             time.Minute,
		Ignore:              func(err error) bool { return errors.Is(err, errBenign) },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errBenign })
		require.ErrorIs(t, err, errBenign)
	}

	v, err := cb.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
