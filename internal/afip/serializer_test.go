package afip

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afipws/internal/model"
)

func TestSerializeLoginTicketRequest(t *testing.T) {
	generated := time.Date(2024, 3, 20, 10, 30, 0, 0, model.ArgentinaTZ)
	ticket := &model.AuthTicket{
		UniqueID:  1234567,
		Generated: generated,
		Expires:   generated.Add(model.TicketDuration),
		Service:   ServiceWSFE,
	}

	out, err := SerializeLoginTicketRequest(ticket)
	require.NoError(t, err)

	want := `<loginTicketRequest version="1.0">
  <header>
    <uniqueId>1234567</uniqueId>
    <generationTime>2024-03-20T10:30:00-03:00</generationTime>
    <expirationTime>2024-03-20T22:30:00-03:00</expirationTime>
  </header>
  <service>wsfe</service>
</loginTicketRequest>
`
	assert.Equal(t, want, string(out))
}

func TestDateCodecs(t *testing.T) {
	day := time.Date(2024, 3, 20, 0, 0, 0, 0, model.ArgentinaTZ)

	assert.Equal(t, "20240320", FormatDate(day))

	parsed, err := ParseDate("20240320")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(day))

	none, err := ParseDateMaybe("")
	require.NoError(t, err)
	assert.Nil(t, none)

	some, err := ParseDateMaybe("20240330")
	require.NoError(t, err)
	require.NotNil(t, some)
	assert.Equal(t, 30, some.Day())

	stamp, err := ParseDatetime("20240320104523")
	require.NoError(t, err)
	assert.Equal(t, 10, stamp.Hour())
	assert.Equal(t, 45, stamp.Minute())
}

func TestParamOperationCoversEveryKind(t *testing.T) {
	for _, kind := range model.ParamKinds() {
		op, err := ParamOperation(kind)
		require.NoError(t, err, "kind %s", kind)
		assert.Contains(t, op, "FEParamGet")
	}

	_, err := ParamOperation(model.ParamKind("no_such_kind"))
	assert.Error(t, err)
}

func paramType(kind model.ParamKind, code string) *model.ParamType {
	return &model.ParamType{Kind: kind, Code: code}
}

func numberedReceipt(number int64) *model.Receipt {
	n := number
	return &model.Receipt{
		PointOfSales:   &model.PointOfSales{Number: 1},
		ReceiptType:    paramType(model.KindReceiptType, "6"),
		Concept:        paramType(model.KindConceptType, "1"),
		DocumentType:   paramType(model.KindDocumentType, "96"),
		DocumentNumber: 12345678,
		ReceiptNumber:  &n,
		IssuedDate:     time.Date(2024, 3, 20, 0, 0, 0, 0, model.ArgentinaTZ),
		TotalAmount:    decimal.RequireFromString("121.00"),
		NetUntaxed:     decimal.Zero,
		NetTaxed:       decimal.RequireFromString("100.00"),
		ExemptAmount:   decimal.Zero,
		Currency:       paramType(model.KindCurrencyType, "PES"),
		CurrencyQuote:  decimal.NewFromInt(1),
		Vats: []model.Vat{{
			VatType:    paramType(model.KindVatType, "5"),
			BaseAmount: decimal.RequireFromString("100.00"),
			Amount:     decimal.RequireFromString("21.00"),
		}},
	}
}

func TestSerializeReceiptBatch(t *testing.T) {
	req, err := SerializeReceiptBatch([]*model.Receipt{numberedReceipt(11), numberedReceipt(12)})
	require.NoError(t, err)

	assert.Equal(t, 2, req.Header.CantReg)
	assert.Equal(t, 1, req.Header.PtoVta)
	assert.Equal(t, 6, req.Header.CbteTipo)

	require.Len(t, req.Details, 2)
	d := req.Details[0]
	assert.Equal(t, int64(11), d.CbteDesde)
	assert.Equal(t, int64(11), d.CbteHasta)
	assert.Equal(t, "20240320", d.CbteFch)
	assert.Equal(t, "121.00", d.ImpTotal)
	assert.Equal(t, "100.00", d.ImpNeto)
	assert.Equal(t, "21.00", d.ImpIVA)
	assert.Equal(t, "0.00", d.ImpTrib)
	assert.Equal(t, "PES", d.MonId)
	assert.Equal(t, "1", d.MonCotiz)
	require.Len(t, d.Iva, 1)
	assert.Equal(t, "5", d.Iva[0].Id)

	// Product concept: no service date range on the wire.
	assert.Empty(t, d.FchServDesde)
	assert.Empty(t, d.FchServHasta)
	assert.Empty(t, d.FchVtoPago)
}

func TestSerializeReceiptBatchServiceDates(t *testing.T) {
	r := numberedReceipt(11)
	r.Concept = paramType(model.KindConceptType, "2")
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, model.ArgentinaTZ)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, model.ArgentinaTZ)
	due := time.Date(2024, 4, 10, 0, 0, 0, 0, model.ArgentinaTZ)
	r.ServiceStart, r.ServiceEnd, r.ExpirationDate = &start, &end, &due

	req, err := SerializeReceiptBatch([]*model.Receipt{r})
	require.NoError(t, err)

	d := req.Details[0]
	assert.Equal(t, "20240301", d.FchServDesde)
	assert.Equal(t, "20240331", d.FchServHasta)
	assert.Equal(t, "20240410", d.FchVtoPago)
}

func TestSerializeReceiptBatchRelatedAndExtras(t *testing.T) {
	related := numberedReceipt(7)
	related.ReceiptType = paramType(model.KindReceiptType, "1")

	r := numberedReceipt(11)
	r.RelatedReceipts = []*model.Receipt{related}
	r.ClientVatCondition = &model.ClientVatCondition{Code: "5"}
	r.Taxes = []model.Tax{{
		TaxType:     paramType(model.KindTaxType, "2"),
		Description: "Impuestos nacionales",
		BaseAmount:  decimal.RequireFromString("100.00"),
		Aliquot:     decimal.RequireFromString("3.00"),
		Amount:      decimal.RequireFromString("3.00"),
	}}
	r.Optionals = []model.Optional{{
		OptionalType: paramType(model.KindOptionalType, "2101"),
		Value:        "0000000000000000000000",
	}}

	req, err := SerializeReceiptBatch([]*model.Receipt{r})
	require.NoError(t, err)

	d := req.Details[0]
	assert.Equal(t, "5", d.CondicionIVAReceptorId)

	require.Len(t, d.CbtesAsoc, 1)
	assert.Equal(t, 1, d.CbtesAsoc[0].Tipo)
	assert.Equal(t, int64(7), d.CbtesAsoc[0].Nro)

	require.Len(t, d.Tributos, 1)
	assert.Equal(t, "2", d.Tributos[0].Id)
	assert.Equal(t, "3.00", d.Tributos[0].Importe)
	assert.Equal(t, "3.00", d.ImpTrib)

	require.Len(t, d.Opcional, 1)
	assert.Equal(t, "2101", d.Opcional[0].Id)
}

func TestSerializeReceiptBatchRejectsUnnumbered(t *testing.T) {
	r := numberedReceipt(11)
	r.ReceiptNumber = nil

	_, err := SerializeReceiptBatch([]*model.Receipt{r})
	assert.ErrorContains(t, err, "no number assigned")
}

func TestSerializeReceiptBatchRejectsEmpty(t *testing.T) {
	_, err := SerializeReceiptBatch(nil)
	assert.Error(t, err)
}
