package afip

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Gateway is the remote service channel the core calls. Responses are decoded
// into typed structures at this boundary; business-level errors surface as
// *RemoteFault / *RemoteError, while transport failures pass through
// unwrapped so callers can tell "authority rejected" from "could not reach
// authority".
type Gateway interface {
	// LoginCms exchanges a base64-encoded signed login request for a
	// token/signature pair.
	LoginCms(ctx context.Context, env Environment, cms string) (token, sign string, err error)
	// AuthorizeReceipts submits a receipt batch for CAE authorization.
	AuthorizeReceipts(ctx context.Context, env Environment, auth Auth, req FECAERequest) (*FECAEResponse, error)
	// LastAuthorized returns the last receipt number AFIP authorized for a
	// (point of sale, receipt type) pair.
	LastAuthorized(ctx context.Context, env Environment, auth Auth, posNumber, receiptType int) (int64, error)
	// QueryReceipt fetches the remote state of one submitted receipt.
	QueryReceipt(ctx context.Context, env Environment, auth Auth, q ReceiptQuery) (*ReceiptInfo, error)
	// FetchPointsOfSales lists the taxpayer's registered emission points.
	FetchPointsOfSales(ctx context.Context, env Environment, auth Auth) ([]PointOfSaleRecord, error)
	// FetchParams runs one of the FEParamGet* metadata operations.
	FetchParams(ctx context.Context, env Environment, auth Auth, operation string) ([]ParamRecord, error)
	// FetchClientVatConditions lists the recipient VAT condition table.
	FetchClientVatConditions(ctx context.Context, env Environment, auth Auth) ([]ClientVatRecord, error)
}

// Client talks SOAP 1.1 to AFIP's WSAA and WSFEv1 endpoints.
type Client struct {
	http     *http.Client
	endpoint func(service string, env Environment) string
}

// NewClient builds a gateway with the given per-call timeout ceiling. Callers
// can impose tighter deadlines through ctx.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: Endpoint,
	}
}

var _ Gateway = (*Client)(nil)

const (
	envelopeOpen  = `<?xml version="1.0" encoding="utf-8"?><soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body>`
	envelopeClose = `</soapenv:Body></soapenv:Envelope>`
)

type faultEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *struct {
			Code    string `xml:"faultcode"`
			Message string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

// call posts one SOAP request and decodes the response body into out.
func (c *Client) call(ctx context.Context, service string, env Environment, action string, payload, out any) error {
	body, err := xml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("afip: encode request: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(envelopeOpen)
	buf.Write(body)
	buf.WriteString(envelopeClose)

	url := c.endpoint(service, env)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("afip: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failure — propagate as-is.
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	log.Debug().
		Str("service", service).
		Str("env", env.String()).
		Str("action", action).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("afip call")

	// Faults come back with a 500 status; decode them before anything else.
	var fault faultEnvelope
	if err := xml.Unmarshal(raw, &fault); err == nil && fault.Body.Fault != nil {
		return &RemoteFault{Code: fault.Body.Fault.Code, Message: fault.Body.Fault.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("afip: %s returned status %d", url, resp.StatusCode)
	}

	if err := xml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("afip: decode response: %w", err)
	}
	return nil
}

func wsfeAction(operation string) string { return wsfeNamespace + operation }

func (c *Client) LoginCms(ctx context.Context, env Environment, cms string) (string, string, error) {
	var envl loginCmsEnvelope
	err := c.call(ctx, ServiceWSAA, env, "", loginCmsRequest{In0: cms}, &envl)
	if err != nil {
		return "", "", err
	}

	// loginCmsReturn holds an escaped XML document with the credentials.
	var ticket loginTicketResponse
	if err := xml.Unmarshal([]byte(envl.Body.Response.Return), &ticket); err != nil {
		return "", "", fmt.Errorf("afip: decode login ticket response: %w", err)
	}
	return ticket.Credentials.Token, ticket.Credentials.Sign, nil
}

func (c *Client) AuthorizeReceipts(ctx context.Context, env Environment, auth Auth, req FECAERequest) (*FECAEResponse, error) {
	var envl feCAESolicitarEnvelope
	payload := feCAESolicitarRequest{Auth: auth, Req: req}
	if err := c.call(ctx, ServiceWSFE, env, wsfeAction("FECAESolicitar"), payload, &envl); err != nil {
		return nil, err
	}
	result := envl.Body.Response.Result
	if err := checkErrors(result.Errors); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) LastAuthorized(ctx context.Context, env Environment, auth Auth, posNumber, receiptType int) (int64, error) {
	var envl feCompUltimoEnvelope
	payload := feCompUltimoRequest{Auth: auth, PtoVta: posNumber, CbteTipo: receiptType}
	if err := c.call(ctx, ServiceWSFE, env, wsfeAction("FECompUltimoAutorizado"), payload, &envl); err != nil {
		return 0, err
	}
	result := envl.Body.Response.Result
	if err := checkErrors(result.Errors); err != nil {
		return 0, err
	}
	return result.CbteNro, nil
}

func (c *Client) QueryReceipt(ctx context.Context, env Environment, auth Auth, q ReceiptQuery) (*ReceiptInfo, error) {
	payload := feCompConsultarRequest{Auth: auth}
	payload.Query.CbteTipo = q.ReceiptType
	payload.Query.CbteNro = q.ReceiptNumber
	payload.Query.PtoVta = q.PointOfSales

	var envl feCompConsultarEnvelope
	if err := c.call(ctx, ServiceWSFE, env, wsfeAction("FECompConsultar"), payload, &envl); err != nil {
		return nil, err
	}
	result := envl.Body.Response.Result
	if err := checkErrors(result.Errors); err != nil {
		return nil, err
	}
	info := result.ResultGet
	return &info, nil
}

func (c *Client) FetchPointsOfSales(ctx context.Context, env Environment, auth Auth) ([]PointOfSaleRecord, error) {
	var envl feParamPtosVentaEnvelope
	if err := c.call(ctx, ServiceWSFE, env, wsfeAction("FEParamGetPtosVenta"), feParamPtosVentaRequest{Auth: auth}, &envl); err != nil {
		return nil, err
	}
	result := envl.Body.Response.Result
	if err := checkErrors(result.Errors); err != nil {
		return nil, err
	}
	return result.Records, nil
}

// feParamGenericRequest marshals any FEParamGet* operation; the element name
// comes from the variant descriptor, everything else is identical.
type feParamGenericRequest struct {
	XMLName xml.Name
	Auth    Auth `xml:"Auth"`
}

func (c *Client) FetchParams(ctx context.Context, env Environment, auth Auth, operation string) ([]ParamRecord, error) {
	payload := feParamGenericRequest{
		XMLName: xml.Name{Space: wsfeNamespace, Local: operation},
		Auth:    auth,
	}
	var envl feParamGenericEnvelope
	if err := c.call(ctx, ServiceWSFE, env, wsfeAction(operation), payload, &envl); err != nil {
		return nil, err
	}
	result := envl.Body.Response.Result
	if err := checkErrors(result.Errors); err != nil {
		return nil, err
	}
	return result.ResultGet.Records, nil
}

func (c *Client) FetchClientVatConditions(ctx context.Context, env Environment, auth Auth) ([]ClientVatRecord, error) {
	var envl feParamCondicionIvaEnvelope
	payload := feParamCondicionIvaRequest{Auth: auth}
	if err := c.call(ctx, ServiceWSFE, env, wsfeAction("FEParamGetCondicionIvaReceptor"), payload, &envl); err != nil {
		return nil, err
	}
	result := envl.Body.Response.Result
	if err := checkErrors(result.Errors); err != nil {
		return nil, err
	}
	return result.Records, nil
}
