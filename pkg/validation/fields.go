// Package validation provides input validation for operator-supplied
// installer settings.
//
// This package wraps go-playground/validator with the custom rules the
// installer needs (API credential shape, install path shape) and exposes
// per-field helpers the wizard uses for inline re-prompting. Validating here
// rather than at point of use prevents malformed values from reaching env
// files, compose manifests, or subprocess command lines.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// apiKeyPattern matches Tidegate API credentials: the fixed tgk_ prefix
// followed by exactly 32 alphanumerics. Shorter or empty values fail.
var apiKeyPattern = regexp.MustCompile(`^tgk_[a-zA-Z0-9]{32}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// tidegate_api_key: the exact credential shape.
	_ = v.RegisterValidation("tidegate_api_key", func(fl validator.FieldLevel) bool {
		return apiKeyPattern.MatchString(fl.Field().String())
	})

	// dir_path: an absolute path with no traversal segments. The directory
	// need not exist yet; the provisioner creates it.
	_ = v.RegisterValidation("dir_path", func(fl validator.FieldLevel) bool {
		return validDirPath(fl.Field().String())
	})

	return v
}

func validDirPath(p string) bool {
	if p == "" || !filepath.IsAbs(p) {
		return false
	}
	clean := filepath.Clean(p)
	if clean != p && clean+"/" != p {
		return false
	}
	for _, seg := range strings.Split(clean, string(filepath.Separator)) {
		if seg == ".." {
			return false
		}
	}
	return clean != "/"
}

// Struct validates a tagged struct, returning the validator's error verbatim
// so callers can inspect field-level failures.
func Struct(s any) error {
	return validate.Struct(s)
}

// FirstField extracts the first failing field name from a validator error,
// or "config" when the error carries no field detail.
func FirstField(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field()
	}
	return "config"
}

// Port validates a network port string from the wizard.
func Port(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// InstallDir validates an install path string from the wizard.
func InstallDir(s string) error {
	if !validDirPath(strings.TrimSpace(s)) {
		return fmt.Errorf("install directory must be an absolute path (not /)")
	}
	return nil
}

// APIKey validates a credential against the required shape. Empty input is
// allowed at the wizard level (it means "generate one").
func APIKey(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !apiKeyPattern.MatchString(s) {
		return fmt.Errorf("API key must look like tgk_ followed by 32 letters or digits")
	}
	return nil
}

// Password validates a service credential. Empty input is allowed at the
// wizard level (it means "generate one").
func Password(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// Domain validates a certificate subject name.
func Domain(s string) error {
	if err := validate.Var(strings.TrimSpace(s), "required,fqdn"); err != nil {
		return fmt.Errorf("enter a fully qualified domain name (e.g. api.example.com)")
	}
	return nil
}

// Email validates an issuance contact address.
func Email(s string) error {
	if err := validate.Var(strings.TrimSpace(s), "required,email"); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}
