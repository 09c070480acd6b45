package handler

import (
	"net/http"

	"afipws/internal/apierror"
	"afipws/internal/dto"
	"afipws/internal/model"
	"afipws/internal/repository"
	"afipws/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaxpayersHandler struct {
	svc       service.TaxpayerService
	metadata  service.MetadataService
	taxpayers repository.TaxpayerRepository
	pos       repository.PointOfSalesRepository
}

func NewTaxpayersHandler(
	svc service.TaxpayerService,
	metadata service.MetadataService,
	taxpayers repository.TaxpayerRepository,
	pos repository.PointOfSalesRepository,
) *TaxpayersHandler {
	return &TaxpayersHandler{svc: svc, metadata: metadata, taxpayers: taxpayers, pos: pos}
}

// Create godoc
// @Summary      Register a taxpayer
// @Tags         taxpayers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateTaxpayerRequest true "Fiscal identity"
// @Success      201  {object} dto.TaxpayerResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/taxpayers [post]
func (h *TaxpayersHandler) Create(c *gin.Context) {
	var req dto.CreateTaxpayerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TaxpayersHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("could not list taxpayers"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TaxpayersHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("taxpayer not found"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GenerateKey godoc
// @Summary      Generate a private key
// @Description  Creates an RSA key for the taxpayer unless one already exists.
// @Tags         taxpayers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Taxpayer UUID"
// @Success      200 {object} map[string]bool
// @Router       /v1/taxpayers/{id}/generate-key [post]
func (h *TaxpayersHandler) GenerateKey(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	created, err := h.svc.GenerateKey(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// GenerateCSR godoc
// @Summary      Generate a certificate signing request
// @Description  Returns a PEM CSR to upload on AFIP's certificate management page.
// @Tags         taxpayers
// @Accept       json
// @Produce      plain
// @Security     BearerAuth
// @Param        id   path string          true "Taxpayer UUID"
// @Param        body body dto.CSRRequest true "CSR options"
// @Success      200 {string} string "PEM-encoded CSR"
// @Failure      400 {object} apierror.APIError
// @Router       /v1/taxpayers/{id}/csr [post]
func (h *TaxpayersHandler) GenerateCSR(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	var req dto.CSRRequest
	if !bindAndValidate(c, &req) {
		return
	}
	csr, err := h.svc.GenerateCSR(c.Request.Context(), id, req.Basename)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.Data(http.StatusOK, "application/x-pem-file", csr)
}

// SyncPointsOfSales godoc
// @Summary      Sync points of sale from AFIP
// @Description  Fetches the taxpayer's registered emission points and mirrors them locally. Blocked points of sale unknown locally are not created.
// @Tags         taxpayers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Taxpayer UUID"
// @Success      200 {object} dto.SyncPointsOfSalesResponse
// @Failure      502 {object} apierror.APIError
// @Router       /v1/taxpayers/{id}/points-of-sales/sync [post]
func (h *TaxpayersHandler) SyncPointsOfSales(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	taxpayer, err := h.taxpayers.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("taxpayer not found"))
		return
	}

	synced, created, err := h.metadata.FetchPointsOfSales(c.Request.Context(), taxpayer, nil)
	if err != nil {
		c.JSON(http.StatusBadGateway, apierror.New(err.Error()))
		return
	}

	resp := dto.SyncPointsOfSalesResponse{Created: created, PointsOfSales: []dto.PointOfSalesResponse{}}
	for i := range synced {
		resp.PointsOfSales = append(resp.PointsOfSales, posToResponse(&synced[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TaxpayersHandler) ListPointsOfSales(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}
	points, err := h.pos.ListByOwner(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("could not list points of sale"))
		return
	}
	resp := make([]dto.PointOfSalesResponse, 0, len(points))
	for i := range points {
		resp = append(resp, posToResponse(&points[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func posToResponse(pos *model.PointOfSales) dto.PointOfSalesResponse {
	resp := dto.PointOfSalesResponse{
		ID:           pos.ID.String(),
		Number:       pos.Number,
		IssuanceType: pos.IssuanceType,
		Blocked:      pos.Blocked,
	}
	if pos.DropDate != nil {
		d := pos.DropDate.Format("2006-01-02")
		resp.DropDate = &d
	}
	return resp
}

func pathUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
