package repository

import (
	"testing"

	"github.com/booklend/lending-service/internal/errs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "open loan per book index -> book unavailable",
			err: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: openLoanPerBookIdx,
			},
			want: errs.ErrBookUnavailable,
		},
		{
			name: "open loan per user index -> user already borrowing",
			err: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: openLoanPerUserIdx,
			},
			want: errs.ErrUserAlreadyBorrowing,
		},
		{
			name: "wrapped violation is still recognized",
			err: errors.Wrap(&pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: openLoanPerBookIdx,
			}, "insert loan"),
			want: errs.ErrBookUnavailable,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, conflictError(tt.err), tt.want)
		})
	}

	t.Run("unrelated unique violation passes through", func(t *testing.T) {
		t.Parallel()
		err := &pgconn.PgError{
			Code:           pgerrcode.UniqueViolation,
			ConstraintName: "users_email_key",
		}
		require.Equal(t, err, conflictError(err))
	})

	t.Run("plain error passes through", func(t *testing.T) {
		t.Parallel()
		err := errors.New("db internal")
		require.Equal(t, err, conflictError(err))
	})
}
