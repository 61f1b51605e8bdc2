// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Registrations on v must happen before the first call to Struct.
var v = validator.New(validator.WithRequiredStructEnabled())

// IssueRequest is the body of a code request.
type IssueRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyRequest is the body of a code submission.
type VerifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// VerifiedRequest is the body of an explicit verification toggle.
type VerifiedRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

// Struct validates s using its validate tags. The returned error lists
// every failing field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
