package validate_test

import (
	"testing"

	"github.com/booklend/lending-service/pkg/validate"
	"github.com/stretchr/testify/require"
)

type registerPayload struct {
	Email    string `validate:"required,email,emaildomain"`
	Password string `validate:"required,password"`
}

func TestCustomValidator(t *testing.T) {
	t.Parallel()
	cv := validate.NewCustomValidator()

	tests := []struct {
		name    string
		payload registerPayload
		wantErr bool
	}{
		{
			name:    "ok",
			payload: registerPayload{Email: "user@gmail.com", Password: "Password1"},
		},
		{
			name:    "ok. outlook domain",
			payload: registerPayload{Email: "user@outlook.com", Password: "Abcdefg1"},
		},
		{
			name:    "err. unknown domain",
			payload: registerPayload{Email: "user@example.com", Password: "Password1"},
			wantErr: true,
		},
		{
			name:    "err. not an email",
			payload: registerPayload{Email: "gmail.com", Password: "Password1"},
			wantErr: true,
		},
		{
			name:    "err. password too short",
			payload: registerPayload{Email: "user@gmail.com", Password: "Pass1"},
			wantErr: true,
		},
		{
			name:    "err. password without uppercase",
			payload: registerPayload{Email: "user@gmail.com", Password: "password1"},
			wantErr: true,
		},
		{
			name:    "err. password with special characters",
			payload: registerPayload{Email: "user@gmail.com", Password: "Password1!"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := cv.Validate(&tt.payload)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
