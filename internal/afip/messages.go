package afip

import "encoding/xml"

// Auth is the credential block every authenticated WSFE operation carries.
type Auth struct {
	Token string `xml:"Token"`
	Sign  string `xml:"Sign"`
	Cuit  int64  `xml:"Cuit"`
}

// ── WSAA ─────────────────────────────────────────────────────────────────────

type loginCmsRequest struct {
	XMLName xml.Name `xml:"http://wsaa.view.sua.dvadac.desein.afip.gov loginCms"`
	In0     string   `xml:"in0"`
}

type loginCmsEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Return string `xml:"loginCmsReturn"`
		} `xml:"loginCmsResponse"`
	} `xml:"Body"`
}

// loginTicketResponse is the XML document WSAA returns inside loginCmsReturn.
type loginTicketResponse struct {
	XMLName     xml.Name `xml:"loginTicketResponse"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

// ── FECAESolicitar ───────────────────────────────────────────────────────────

type feCAESolicitarRequest struct {
	XMLName xml.Name     `xml:"http://ar.gov.afip.dif.FEV1/ FECAESolicitar"`
	Auth    Auth         `xml:"Auth"`
	Req     FECAERequest `xml:"FeCAEReq"`
}

// FECAERequest is the batch submission block: one header for the whole group
// plus one detail per receipt. Field order matters; AFIP's asmx endpoint is
// document/literal.
type FECAERequest struct {
	Header  FECAEHeader   `xml:"FeCabReq"`
	Details []FECAEDetail `xml:"FeDetReq>FECAEDetRequest"`
}

type FECAEHeader struct {
	CantReg  int `xml:"CantReg"`
	PtoVta   int `xml:"PtoVta"`
	CbteTipo int `xml:"CbteTipo"`
}

type FECAEDetail struct {
	Concepto     int    `xml:"Concepto"`
	DocTipo      int    `xml:"DocTipo"`
	DocNro       int64  `xml:"DocNro"`
	CbteDesde    int64  `xml:"CbteDesde"`
	CbteHasta    int64  `xml:"CbteHasta"`
	CbteFch      string `xml:"CbteFch"`
	ImpTotal     string `xml:"ImpTotal"`
	ImpTotConc   string `xml:"ImpTotConc"`
	ImpNeto      string `xml:"ImpNeto"`
	ImpOpEx      string `xml:"ImpOpEx"`
	ImpTrib      string `xml:"ImpTrib"`
	ImpIVA       string `xml:"ImpIVA"`
	FchServDesde string `xml:"FchServDesde,omitempty"`
	FchServHasta string `xml:"FchServHasta,omitempty"`
	FchVtoPago   string `xml:"FchVtoPago,omitempty"`
	MonId        string `xml:"MonId"`
	MonCotiz     string `xml:"MonCotiz"`

	CondicionIVAReceptorId string `xml:"CondicionIVAReceptorId,omitempty"`

	CbtesAsoc []AssociatedReceipt `xml:"CbtesAsoc>CbteAsoc"`
	Tributos  []TributoEntry      `xml:"Tributos>Tributo"`
	Iva       []AlicIvaEntry      `xml:"Iva>AlicIva"`
	Opcional  []OpcionalEntry     `xml:"Opcionales>Opcional"`
}

// AssociatedReceipt links a credit/debit note to the receipt it amends.
type AssociatedReceipt struct {
	Tipo   int   `xml:"Tipo"`
	PtoVta int   `xml:"PtoVta"`
	Nro    int64 `xml:"Nro"`
}

type TributoEntry struct {
	Id      string `xml:"Id"`
	Desc    string `xml:"Desc"`
	BaseImp string `xml:"BaseImp"`
	Alic    string `xml:"Alic"`
	Importe string `xml:"Importe"`
}

type AlicIvaEntry struct {
	Id      string `xml:"Id"`
	BaseImp string `xml:"BaseImp"`
	Importe string `xml:"Importe"`
}

type OpcionalEntry struct {
	Id    string `xml:"Id"`
	Valor string `xml:"Valor"`
}

type feCAESolicitarEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result FECAEResponse `xml:"FECAESolicitarResult"`
		} `xml:"FECAESolicitarResponse"`
	} `xml:"Body"`
}

// FECAEResponse is the authoritative outcome of a batch submission.
type FECAEResponse struct {
	Header  FECAEResponseHeader   `xml:"FeCabResp"`
	Details []FECAEDetailResponse `xml:"FeDetResp>FECAEDetResponse"`
	Errors  []Err                 `xml:"Errors>Err"`
}

type FECAEResponseHeader struct {
	Cuit       int64  `xml:"Cuit"`
	PtoVta     int    `xml:"PtoVta"`
	CbteTipo   int    `xml:"CbteTipo"`
	FchProceso string `xml:"FchProceso"`
	CantReg    int    `xml:"CantReg"`
	Resultado  string `xml:"Resultado"`
}

type FECAEDetailResponse struct {
	Concepto     int    `xml:"Concepto"`
	DocTipo      int    `xml:"DocTipo"`
	DocNro       int64  `xml:"DocNro"`
	CbteDesde    int64  `xml:"CbteDesde"`
	CbteHasta    int64  `xml:"CbteHasta"`
	CbteFch      string `xml:"CbteFch"`
	Resultado    string `xml:"Resultado"`
	Observations []Obs  `xml:"Observaciones>Obs"`
	CAE          string `xml:"CAE"`
	CAEFchVto    string `xml:"CAEFchVto"`
}

// Obs is an authority-supplied diagnostic attached to a detail result.
type Obs struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

// ── FECompUltimoAutorizado ───────────────────────────────────────────────────

type feCompUltimoRequest struct {
	XMLName  xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECompUltimoAutorizado"`
	Auth     Auth     `xml:"Auth"`
	PtoVta   int      `xml:"PtoVta"`
	CbteTipo int      `xml:"CbteTipo"`
}

type feCompUltimoEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				PtoVta   int   `xml:"PtoVta"`
				CbteTipo int   `xml:"CbteTipo"`
				CbteNro  int64 `xml:"CbteNro"`
				Errors   []Err `xml:"Errors>Err"`
			} `xml:"FECompUltimoAutorizadoResult"`
		} `xml:"FECompUltimoAutorizadoResponse"`
	} `xml:"Body"`
}

// ── FECompConsultar ──────────────────────────────────────────────────────────

// ReceiptQuery identifies one receipt on AFIP's side.
type ReceiptQuery struct {
	ReceiptType   int
	ReceiptNumber int64
	PointOfSales  int
}

type feCompConsultarRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECompConsultar"`
	Auth    Auth     `xml:"Auth"`
	Query   struct {
		CbteTipo int   `xml:"CbteTipo"`
		CbteNro  int64 `xml:"CbteNro"`
		PtoVta   int   `xml:"PtoVta"`
	} `xml:"FeCompConsReq"`
}

type feCompConsultarEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				ResultGet ReceiptInfo `xml:"ResultGet"`
				Errors    []Err       `xml:"Errors>Err"`
			} `xml:"FECompConsultarResult"`
		} `xml:"FECompConsultarResponse"`
	} `xml:"Body"`
}

// ReceiptInfo is the remote state of an already-submitted receipt.
type ReceiptInfo struct {
	Concepto        int    `xml:"Concepto"`
	DocTipo         int    `xml:"DocTipo"`
	DocNro          int64  `xml:"DocNro"`
	CbteDesde       int64  `xml:"CbteDesde"`
	CbteHasta       int64  `xml:"CbteHasta"`
	CbteFch         string `xml:"CbteFch"`
	Resultado       string `xml:"Resultado"`
	CodAutorizacion string `xml:"CodAutorizacion"`
	EmisionTipo     string `xml:"EmisionTipo"`
	FchVto          string `xml:"FchVto"`
	FchProceso      string `xml:"FchProceso"`
	Observations    []Obs  `xml:"Observaciones>Obs"`
}

// ── FEParamGetPtosVenta ──────────────────────────────────────────────────────

type feParamPtosVentaRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetPtosVenta"`
	Auth    Auth     `xml:"Auth"`
}

type feParamPtosVentaEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				Records []PointOfSaleRecord `xml:"ResultGet>PtoVenta"`
				Errors  []Err               `xml:"Errors>Err"`
			} `xml:"FEParamGetPtosVentaResult"`
		} `xml:"FEParamGetPtosVentaResponse"`
	} `xml:"Body"`
}

// PointOfSaleRecord is one registered emission point as reported by AFIP.
type PointOfSaleRecord struct {
	Nro         int    `xml:"Nro"`
	EmisionTipo string `xml:"EmisionTipo"`
	Bloqueado   string `xml:"Bloqueado"` // "S" / "N"
	FchBaja     string `xml:"FchBaja"`
}

// Blocked reports whether AFIP marks this point of sale as blocked.
func (r PointOfSaleRecord) Blocked() bool { return r.Bloqueado == "S" }

// ── Generic FEParamGet* ──────────────────────────────────────────────────────

// ParamRecord is one row of any FEParamGet* metadata table. All of those
// operations share this exact shape under differently-named elements, which
// the `,any` decoding below absorbs.
type ParamRecord struct {
	Id       string `xml:"Id"`
	Desc     string `xml:"Desc"`
	FchDesde string `xml:"FchDesde"`
	FchHasta string `xml:"FchHasta"`
}

type feParamGenericEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				ResultGet struct {
					Records []ParamRecord `xml:",any"`
				} `xml:"ResultGet"`
				Errors []Err `xml:"Errors>Err"`
			} `xml:",any"`
		} `xml:",any"`
	} `xml:"Body"`
}

// ── FEParamGetCondicionIvaReceptor ───────────────────────────────────────────

type feParamCondicionIvaRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetCondicionIvaReceptor"`
	Auth    Auth     `xml:"Auth"`
}

type feParamCondicionIvaEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				Records []ClientVatRecord `xml:"ResultGet>CondicionIvaReceptor"`
				Errors  []Err             `xml:"Errors>Err"`
			} `xml:"FEParamGetCondicionIvaReceptorResult"`
		} `xml:"FEParamGetCondicionIvaReceptorResponse"`
	} `xml:"Body"`
}

// ClientVatRecord is one recipient VAT condition as reported by AFIP.
type ClientVatRecord struct {
	Id       string `xml:"Id"`
	Desc     string `xml:"Desc"`
	CmpClase string `xml:"Cmp_Clase"`
}
