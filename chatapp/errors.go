package chatapp

import (
	"errors"
	"fmt"
)

// MissingCredentialError is returned by collaborators when a delegated call
// is made for a user who never completed the authorization flow, or whose
// grant is no longer valid.
type MissingCredentialError struct {
	UserID string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing delegated credential for %s", e.UserID)
}

// IsMissingCredential reports whether any error in err's chain is a
// *MissingCredentialError.
func IsMissingCredential(err error) bool {
	var mc *MissingCredentialError
	return errors.As(err, &mc)
}

// PredictionError is returned when the generative backend fails or returns a
// response without usable text.
type PredictionError struct {
	Prompt string
	Err    error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("predict %s: %v", e.Prompt, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}
