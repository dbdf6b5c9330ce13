package postgres

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"translated gorm error", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm error", fmt.Errorf("failed to create question: %w", gorm.ErrDuplicatedKey), true},
		{"raw postgres message", errors.New(`duplicate key value violates unique constraint "idx_questions_human_id"`), true},
		{"other error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateKey(tt.err); got != tt.want {
				t.Errorf("isDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryOnMintedIDCollision(t *testing.T) {
	duplicate := gorm.ErrDuplicatedKey

	t.Run("remints until the insert lands", func(t *testing.T) {
		calls, resets := 0, 0
		err := retryOnMintedIDCollision(true, func() { resets++ }, func() error {
			calls++
			if calls < 3 {
				return duplicate
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if calls != 3 || resets != 2 {
			t.Errorf("calls = %d, resets = %d, want 3 and 2", calls, resets)
		}
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		calls := 0
		err := retryOnMintedIDCollision(true, func() {}, func() error {
			calls++
			return duplicate
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			t.Fatalf("expected duplicate error, got %v", err)
		}
		if calls != humanIDMintAttempts {
			t.Errorf("calls = %d, want %d", calls, humanIDMintAttempts)
		}
	})

	t.Run("caller-supplied id is never reminted", func(t *testing.T) {
		calls := 0
		err := retryOnMintedIDCollision(false, func() { t.Error("reset called for caller-supplied id") }, func() error {
			calls++
			return duplicate
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			t.Fatalf("expected duplicate error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("non-duplicate errors return immediately", func(t *testing.T) {
		broken := errors.New("connection refused")
		calls := 0
		err := retryOnMintedIDCollision(true, func() {}, func() error {
			calls++
			return broken
		})
		if !errors.Is(err, broken) {
			t.Fatalf("expected %v, got %v", broken, err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}
