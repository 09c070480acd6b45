package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afipws/internal/afip"
	"afipws/internal/model"
)

// testTaxpayer builds a sandboxed taxpayer with a freshly generated key and
// self-signed certificate, ready to sign login requests.
func testTaxpayer(t *testing.T) *model.Taxpayer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "afipws-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))

	return &model.Taxpayer{
		ID:          uuid.New(),
		Name:        "Test SA",
		CUIT:        20329642330,
		Key:         &keyPEM,
		Certificate: &certPEM,
		IsSandboxed: true,
	}
}

func TestAuthorizeIssuesAndPersistsTicket(t *testing.T) {
	taxpayer := testTaxpayer(t)
	tickets := &stubTicketRepo{}
	gateway := &stubGateway{
		loginFn: func(_ context.Context, env afip.Environment, cms string) (string, string, error) {
			assert.Equal(t, afip.Sandbox, env)
			assert.NotEmpty(t, cms)
			return "tok-abc", "sig-def", nil
		},
	}
	svc := NewTicketService(tickets, &stubTaxpayerRepo{}, gateway, nil)

	ticket, err := svc.Authorize(context.Background(), taxpayer, afip.ServiceWSFE)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", ticket.Token)
	assert.Equal(t, "sig-def", ticket.Signature)
	assert.Equal(t, taxpayer.ID, ticket.OwnerID)
	assert.Equal(t, afip.ServiceWSFE, ticket.Service)
	assert.True(t, ticket.Expires.After(time.Now()))
	require.Len(t, tickets.tickets, 1)
}

func TestAuthorizeMapsCertificateFaults(t *testing.T) {
	cases := []struct {
		name    string
		fault   error
		wantErr error
	}{
		{
			name:    "expired certificate",
			fault:   &afip.RemoteFault{Code: "cms.cert.expired", Message: "Certificado expirado"},
			wantErr: ErrCertificateExpired,
		},
		{
			name:    "untrusted certificate",
			fault:   &afip.RemoteFault{Code: "cms.cert.untrusted", Message: "Certificado no emitido por AC de confianza"},
			wantErr: ErrUntrustedCertificate,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := &stubGateway{
				loginFn: func(context.Context, afip.Environment, string) (string, string, error) {
					return "", "", tc.fault
				},
			}
			svc := NewTicketService(&stubTicketRepo{}, &stubTaxpayerRepo{}, gateway, nil)

			_, err := svc.Authorize(context.Background(), testTaxpayer(t), afip.ServiceWSFE)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAuthorizeWrapsUnknownFaults(t *testing.T) {
	gateway := &stubGateway{
		loginFn: func(context.Context, afip.Environment, string) (string, string, error) {
			return "", "", &afip.RemoteFault{Code: "wsaa.unavailable", Message: "El servicio no se encuentra disponible"}
		},
	}
	svc := NewTicketService(&stubTicketRepo{}, &stubTaxpayerRepo{}, gateway, nil)

	_, err := svc.Authorize(context.Background(), testTaxpayer(t), afip.ServiceWSFE)
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestAuthorizePassesTransportErrorsThrough(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	gateway := &stubGateway{
		loginFn: func(context.Context, afip.Environment, string) (string, string, error) {
			return "", "", netErr
		},
	}
	svc := NewTicketService(&stubTicketRepo{}, &stubTaxpayerRepo{}, gateway, nil)

	_, err := svc.Authorize(context.Background(), testTaxpayer(t), afip.ServiceWSFE)
	assert.ErrorIs(t, err, netErr)

	var authErr *AuthenticationError
	assert.False(t, errors.As(err, &authErr))
}

func TestGetOrCreateTicketReusesActive(t *testing.T) {
	taxpayer := testTaxpayer(t)
	existing := model.NewAuthTicket(taxpayer, afip.ServiceWSFE)
	existing.Token = "live-token"
	tickets := &stubTicketRepo{}
	require.NoError(t, tickets.Create(context.Background(), existing))

	gateway := &stubGateway{
		loginFn: func(context.Context, afip.Environment, string) (string, string, error) {
			t.Fatal("must not hit WSAA while a ticket is live")
			return "", "", nil
		},
	}
	svc := NewTicketService(tickets, &stubTaxpayerRepo{}, gateway, nil)

	ticket, err := svc.GetOrCreateTicket(context.Background(), taxpayer, afip.ServiceWSFE)
	require.NoError(t, err)
	assert.Equal(t, "live-token", ticket.Token)
}

func TestGetOrCreateTicketRefreshesExpired(t *testing.T) {
	taxpayer := testTaxpayer(t)
	stale := model.NewAuthTicket(taxpayer, afip.ServiceWSFE)
	stale.Expires = time.Now().Add(-time.Minute)
	tickets := &stubTicketRepo{}
	require.NoError(t, tickets.Create(context.Background(), stale))

	gateway := &stubGateway{
		loginFn: func(context.Context, afip.Environment, string) (string, string, error) {
			return "fresh-token", "fresh-sign", nil
		},
	}
	svc := NewTicketService(tickets, &stubTaxpayerRepo{}, gateway, nil)

	ticket, err := svc.GetOrCreateTicket(context.Background(), taxpayer, afip.ServiceWSFE)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", ticket.Token)
	assert.Len(t, tickets.tickets, 2)
}

func TestGetAnyActiveWithoutTaxpayers(t *testing.T) {
	svc := NewTicketService(&stubTicketRepo{}, &stubTaxpayerRepo{}, &stubGateway{}, nil)

	_, err := svc.GetAnyActive(context.Background(), afip.ServiceWSFE)
	assert.ErrorIs(t, err, ErrNoTaxpayerAvailable)
}

func TestGetAnyActivePrefersExistingTicket(t *testing.T) {
	first := testTaxpayer(t)
	second := testTaxpayer(t)
	second.Name = "Ticketed SRL"

	taxpayers := &stubTaxpayerRepo{}
	require.NoError(t, taxpayers.Create(context.Background(), first))
	require.NoError(t, taxpayers.Create(context.Background(), second))

	tickets := &stubTicketRepo{}
	existing := model.NewAuthTicket(second, afip.ServiceWSFE)
	existing.Token = "second-token"
	require.NoError(t, tickets.Create(context.Background(), existing))

	gateway := &stubGateway{
		loginFn: func(context.Context, afip.Environment, string) (string, string, error) {
			t.Fatal("must reuse the live ticket instead of authorizing")
			return "", "", nil
		},
	}
	svc := NewTicketService(tickets, taxpayers, gateway, nil)

	ticket, err := svc.GetAnyActive(context.Background(), afip.ServiceWSFE)
	require.NoError(t, err)
	assert.Equal(t, "second-token", ticket.Token)
}

func TestGetOrCreateTicketRestoresOwner(t *testing.T) {
	taxpayer := testTaxpayer(t)
	existing := model.NewAuthTicket(taxpayer, afip.ServiceWSFE)
	existing.Token = "live-token"
	// Lookups that skip the association hand back the ticket like this.
	existing.Owner = nil
	tickets := &stubTicketRepo{}
	require.NoError(t, tickets.Create(context.Background(), existing))

	svc := NewTicketService(tickets, &stubTaxpayerRepo{}, &stubGateway{}, nil)

	ticket, err := svc.GetOrCreateTicket(context.Background(), taxpayer, afip.ServiceWSFE)
	require.NoError(t, err)
	assert.Equal(t, "live-token", ticket.Token)
	require.NotNil(t, ticket.Owner)
	assert.Equal(t, taxpayer.CUIT, ticket.Owner.CUIT)
}

func TestGetAnyActiveRestoresOwner(t *testing.T) {
	taxpayer := testTaxpayer(t)
	existing := model.NewAuthTicket(taxpayer, afip.ServiceWSFE)
	existing.Owner = nil
	tickets := &stubTicketRepo{}
	require.NoError(t, tickets.Create(context.Background(), existing))
	taxpayers := &stubTaxpayerRepo{}
	require.NoError(t, taxpayers.Create(context.Background(), taxpayer))

	svc := NewTicketService(tickets, taxpayers, &stubGateway{}, nil)

	ticket, err := svc.GetAnyActive(context.Background(), afip.ServiceWSFE)
	require.NoError(t, err)
	require.NotNil(t, ticket.Owner)
	assert.Equal(t, taxpayer.CUIT, ticket.Owner.CUIT)
}
