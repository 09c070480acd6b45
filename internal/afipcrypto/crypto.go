// Package afipcrypto implements the signing primitives required by AFIP's
// WSAA protocol: PKCS#7 enveloped signatures over arbitrary payloads, plus
// certificate, key and CSR handling for taxpayer enrollment.
package afipcrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"

	"go.mozilla.org/pkcs7"
)

// CryptographicError wraps any failure caused by malformed or mismatched key
// and certificate material.
type CryptographicError struct {
	Op  string
	Err error
}

func (e *CryptographicError) Error() string {
	return fmt.Sprintf("afipcrypto: %s: %v", e.Op, e.Err)
}

func (e *CryptographicError) Unwrap() error { return e.Err }

// Sign produces a DER-encoded PKCS#7 SignedData structure with the payload
// embedded (not detached), signed with the given PEM certificate and private
// key. A verifier can both validate the signature and extract the original
// payload from the result. No state is retained between calls.
func Sign(payload, certPEM, keyPEM []byte) ([]byte, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	signed, err := pkcs7.NewSignedData(payload)
	if err != nil {
		return nil, &CryptographicError{Op: "init signed data", Err: err}
	}
	if err := signed.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, &CryptographicError{Op: "add signer", Err: err}
	}
	der, err := signed.Finish()
	if err != nil {
		return nil, &CryptographicError{Op: "encode signature", Err: err}
	}
	return der, nil
}

// Verify parses a PKCS#7 envelope produced by Sign, checks the signature and
// returns the embedded payload.
func Verify(der []byte) ([]byte, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, &CryptographicError{Op: "parse envelope", Err: err}
	}
	if err := p7.Verify(); err != nil {
		return nil, &CryptographicError{Op: "verify signature", Err: err}
	}
	return p7.Content, nil
}

// ParseCertificate decodes a PEM-encoded X.509 certificate.
func ParseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, &CryptographicError{Op: "decode certificate", Err: fmt.Errorf("no PEM block found")}
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, &CryptographicError{Op: "parse certificate", Err: err}
	}
	return cert, nil
}

// ParsePrivateKey decodes a PEM-encoded RSA private key in either PKCS#1 or
// PKCS#8 form.
func ParsePrivateKey(keyPEM []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, &CryptographicError{Op: "decode key", Err: fmt.Errorf("no PEM block found")}
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &CryptographicError{Op: "parse key", Err: err}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, &CryptographicError{Op: "parse key", Err: fmt.Errorf("not an RSA key")}
	}
	return key, nil
}

// CreateKey generates a new 2048-bit RSA private key, PEM-encoded.
func CreateKey() ([]byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, &CryptographicError{Op: "generate key", Err: err}
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

// CreateCSR builds a PEM-encoded certificate signing request for the given
// key, suitable for uploading to AFIP's certificate enrollment page.
func CreateCSR(keyPEM []byte, name, basename string, cuit int64) ([]byte, error) {
	key, err := ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}
	template := &x509.CertificateRequest{
		Subject: pkix.Name{
			Organization: []string{name},
			CommonName:   basename,
			SerialNumber: fmt.Sprintf("CUIT %d", cuit),
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, &CryptographicError{Op: "create CSR", Err: err}
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), nil
}
