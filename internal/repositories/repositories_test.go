package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsUniqueViolation(dup))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestInsufficientBalanceError_Is(t *testing.T) {
	err := fmt.Errorf("debit: %w", &InsufficientBalanceError{Available: 300, Requested: 700})

	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var ibe *InsufficientBalanceError
	assert.True(t, errors.As(err, &ibe))
	assert.Equal(t, int64(300), ibe.Available)
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantOffset, wantLim int
	}{
		{0, 0, 0, 20},
		{3, 10, 20, 10},
		{2, 500, 100, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tt.page, tt.limit), func(t *testing.T) {
			offset, limit := pageBounds(tt.page, tt.limit)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLim, limit)
		})
	}
}
