package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// allowedEmailDomains mirrors the registration policy: only well-known mail
// providers are accepted.
var allowedEmailDomains = []string{"gmail.com", "hotmail.com", "yahoo.com", "outlook.com"}

var (
	upperRe = regexp.MustCompile(`[A-Z]`)
	alnumRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("emaildomain", validateEmailDomain)
	_ = v.RegisterValidation("password", validatePassword)
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func validateEmailDomain(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	for _, domain := range allowedEmailDomains {
		if strings.HasSuffix(email, "@"+domain) {
			return true
		}
	}
	return false
}

// validatePassword requires at least 8 characters, one uppercase letter and
// strictly alphanumeric content.
func validatePassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}
	if !upperRe.MatchString(password) {
		return false
	}
	return alnumRe.MatchString(password)
}
