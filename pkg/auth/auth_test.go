package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/booklend/lending-service/pkg/auth"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := auth.NewToken("a@gmail.com", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "a@gmail.com", claims.Profile.Username)
	require.Equal(t, "admin", claims.Profile.Role)
	require.NotEmpty(t, claims.ID)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	token, err := auth.NewToken("a@gmail.com", "admin", -time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := auth.ParseToken("not.a.token")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthContext(t *testing.T) {
	t.Parallel()

	ctx := auth.SetAuthContext(context.Background(), "u@gmail.com", "borrower")
	info, err := auth.FromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, "u@gmail.com", info.Username)
	require.Equal(t, "borrower", info.Role)

	_, err = auth.FromContext(context.Background())
	require.ErrorIs(t, err, auth.ErrNoAuth)
}
