package afipcrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSigned generates a fresh key and a matching self-signed certificate,
// both PEM-encoded.
func selfSigned(t *testing.T, notAfter time.Time) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Taxpayer"},
			CommonName:   "afipws-test",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func TestSignRoundTrip(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, time.Now().Add(24*time.Hour))
	payload := []byte("<loginTicketRequest version=\"1.0\"><service>wsfe</service></loginTicketRequest>")

	signed, err := Sign(payload, certPEM, keyPEM)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	// The envelope must verify AND yield back the exact original bytes.
	recovered, err := Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, payload, recovered)
}

func TestSignRejectsMismatchedKey(t *testing.T) {
	certPEM, _ := selfSigned(t, time.Now().Add(24*time.Hour))
	_, otherKey := selfSigned(t, time.Now().Add(24*time.Hour))

	signed, err := Sign([]byte("payload"), certPEM, otherKey)
	if err != nil {
		var cryptoErr *CryptographicError
		assert.ErrorAs(t, err, &cryptoErr)
		return
	}
	// Some PKCS#7 implementations only detect the mismatch on verification.
	_, err = Verify(signed)
	assert.Error(t, err)
}

func TestSignRejectsMalformedInput(t *testing.T) {
	_, err := Sign([]byte("payload"), []byte("not a cert"), []byte("not a key"))
	var cryptoErr *CryptographicError
	require.ErrorAs(t, err, &cryptoErr)
}

func TestParseCertificateExpiry(t *testing.T) {
	exp := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	certPEM, _ := selfSigned(t, exp)

	cert, err := ParseCertificate(certPEM)
	require.NoError(t, err)
	assert.WithinDuration(t, exp, cert.NotAfter, time.Second)
}

func TestCreateKeyAndCSR(t *testing.T) {
	keyPEM, err := CreateKey()
	require.NoError(t, err)

	csrPEM, err := CreateCSR(keyPEM, "Test Taxpayer", "afipws1700000000", 20123456789)
	require.NoError(t, err)

	block, _ := pem.Decode(csrPEM)
	require.NotNil(t, block)
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())
	assert.Equal(t, "CUIT 20123456789", csr.Subject.SerialNumber)
}
