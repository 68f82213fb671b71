// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package appliance

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// ConnectionError indicates the appliance could not be reached at the
// transport level: refused, unroutable, or timed out.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to appliance at %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TLSError indicates the TLS handshake or certificate verification failed.
// Self-hosted appliances typically run self-signed certificates, so the
// message carries a hint about the verify toggle.
type TLSError struct {
	URL string
	Err error
}

func (e *TLSError) Error() string {
	return fmt.Sprintf("TLS error connecting to %s: %v (the appliance may use a self-signed certificate; consider disabling TLS verification for this target)", e.URL, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// AuthError indicates the appliance rejected the credential, including the
// case where a re-authentication retry was also rejected.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "appliance rejected the credential"
	}
	return fmt.Sprintf("appliance authentication failed: %s", e.Reason)
}

// ProtocolError indicates the appliance answered, but not in the expected
// shape: unexpected status code, malformed body, or a missing session token.
type ProtocolError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("appliance %s returned unexpected status %d: %s", e.Operation, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("appliance %s returned unexpected response: %s", e.Operation, e.Detail)
}

// classifyTransportError turns a raw transport failure into one of the
// client's error classes. TLS problems are distinguished from plain
// connectivity so the caller can surface the verify-toggle hint.
func classifyTransportError(baseURL string, err error) error {
	if err == nil {
		return nil
	}

	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownCA   x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	if errors.As(err, &certErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert) {
		return &TLSError{URL: baseURL, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ConnectionError{URL: baseURL, Err: errors.New("connection timed out")}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ConnectionError{URL: baseURL, Err: errors.New("connection timed out")}
	}

	return &ConnectionError{URL: baseURL, Err: err}
}
