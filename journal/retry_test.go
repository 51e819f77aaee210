package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTransientSQLiteErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", errors.New("SQLITE_BUSY: database is busy"), true},
		{"locked", errors.New("database is locked (5)"), true},
		{"table locked", errors.New("database table is locked"), true},
		{"short read", errors.New("disk I/O error (522)"), true},
		{"constraint", errors.New("UNIQUE constraint failed: notifications.id"), false},
		{"syntax", errors.New(`near "SELEC": syntax error`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransientSQLiteErr(tt.err))
		})
	}
}

func TestRetryOp(t *testing.T) {
	fast := retryConfig{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient errors", func(t *testing.T) {
		calls := 0
		err := retryOp(fast, func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		perm := errors.New("no such table: notifications")
		err := retryOp(fast, func() error {
			calls++
			return perm
		})
		assert.ErrorIs(t, err, perm)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := retryOp(fast, func() error {
			calls++
			return errors.New("SQLITE_BUSY")
		})
		assert.Error(t, err)
		assert.Equal(t, fast.maxRetries+1, calls)
	})
}

func TestBackoffDelay_Capped(t *testing.T) {
	cfg := retryConfig{maxRetries: 5, baseDelay: 10 * time.Millisecond, maxDelay: 40 * time.Millisecond}
	for attempt := 0; attempt < 6; attempt++ {
		d := backoffDelay(cfg, attempt)
		assert.LessOrEqual(t, d, cfg.maxDelay+cfg.baseDelay)
		assert.GreaterOrEqual(t, d, cfg.baseDelay)
	}
}
