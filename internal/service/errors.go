package service

import (
	"errors"
	"fmt"
)

var (
	// ErrCertificateExpired is returned when WSAA refuses a login because the
	// taxpayer's certificate expired.
	ErrCertificateExpired = errors.New("taxpayer certificate has expired")
	// ErrUntrustedCertificate is returned when WSAA refuses a certificate not
	// issued by its trusted CA, typically a production cert sent to the
	// sandbox or vice versa.
	ErrUntrustedCertificate = errors.New("taxpayer certificate is not trusted by this environment")
	// ErrCannotValidateTogether is returned when a batch mixes points of sale
	// or receipt types.
	ErrCannotValidateTogether = errors.New("receipts with different points of sale or receipt types cannot be validated together")
	// ErrInsideTransaction is returned when Validate is invoked under an
	// ambient database transaction.
	ErrInsideTransaction = errors.New("receipt validation must not run inside a transaction")
	// ErrNoTaxpayerAvailable is returned when no taxpayer can produce a
	// ticket for a requested service.
	ErrNoTaxpayerAvailable = errors.New("no taxpayer available to authenticate with")
)

// AuthenticationError is a WSAA login failure that is neither of the two
// well-known certificate faults.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("afip authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
