package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

func testPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		Timeout:      200 * time.Millisecond,
	}
}

func TestPresets(t *testing.T) {
	d := Default()
	assert.Equal(t, 3, d.MaxRetries)
	assert.Equal(t, time.Second, d.InitialDelay)
	assert.Equal(t, 10*time.Second, d.MaxDelay)
	assert.Equal(t, 2.0, d.Multiplier)
	assert.Equal(t, 10*time.Second, d.Timeout)

	assert.Equal(t, 15*time.Second, Notion().Timeout)

	f := Fast()
	assert.Equal(t, 2, f.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, f.InitialDelay)
	assert.Equal(t, time.Second, f.MaxDelay)
	assert.Equal(t, 5*time.Second, f.Timeout)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Default()
	assert.Equal(t, 1*time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, 8*time.Second, p.Backoff(4))
	assert.Equal(t, 10*time.Second, p.Backoff(5), "capped at MaxDelay")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", statusErr(503), true},
		{"rate limited", statusErr(429), true},
		{"request timeout", statusErr(408), true},
		{"bad request", statusErr(400), false},
		{"unauthorized", statusErr(401), false},
		{"not found", statusErr(404), false},
		{"attempt timeout", &TimeoutError{Timeout: time.Second}, true},
		{"wrapped status", fmt.Errorf("query: %w", statusErr(502)), true},
		{"classified network", apperr.New(apperr.KindNetwork, "op", nil), true},
		{"classified validation", apperr.New(apperr.KindValidation, "op", nil), false},
		{"context canceled", context.Canceled, false},
		{"unclassified", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	got, err := Do(context.Background(), testPolicy(), zap.NewNop(), "test", func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", statusErr(503)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), calls)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	var calls int32
	_, err := Do(context.Background(), testPolicy(), nil, "test", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, statusErr(400)
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, statusErr(400), err)
}

func TestDo_ExhaustsAndReturnsLastError(t *testing.T) {
	var calls int32
	_, err := Do(context.Background(), testPolicy(), zap.NewNop(), "test", func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		return 0, statusErr(500 + int(n))
	})

	require.Error(t, err)
	assert.Equal(t, int32(4), calls, "first attempt plus three retries")
	assert.Equal(t, statusErr(504), err)
}

func TestDo_AttemptTimeout(t *testing.T) {
	p := testPolicy()
	p.MaxRetries = 1
	p.Timeout = 20 * time.Millisecond

	var calls int32
	_, err := Do(context.Background(), p, zap.NewNop(), "test", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	p := testPolicy()
	p.InitialDelay = time.Second
	p.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, p, zap.NewNop(), "test", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, statusErr(503)
	})

	assert.Equal(t, statusErr(503), err)
	assert.Equal(t, int32(1), calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDo_CustomShouldRetry(t *testing.T) {
	p := testPolicy()
	p.ShouldRetry = func(err error) bool { return err.Error() == "again" }

	var calls int32
	_, err := Do(context.Background(), p, zap.NewNop(), "test", func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, errors.New("again")
		}
		return 0, errors.New("stop")
	})

	assert.EqualError(t, err, "stop")
	assert.Equal(t, int32(2), calls)
}
