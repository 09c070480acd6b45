package handler

import (
	"errors"
	"net/http"

	"afipws/internal/apierror"
	"afipws/internal/dto"
	"afipws/internal/model"
	"afipws/internal/repository"
	"afipws/internal/service"
	"afipws/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReceiptsHandler struct {
	svc         service.ReceiptService
	validations service.ValidationService
	receipts    repository.ReceiptRepository
	dispatcher  *worker.Dispatcher
}

func NewReceiptsHandler(
	svc service.ReceiptService,
	validations service.ValidationService,
	receipts repository.ReceiptRepository,
	dispatcher *worker.Dispatcher,
) *ReceiptsHandler {
	return &ReceiptsHandler{svc: svc, validations: validations, receipts: receipts, dispatcher: dispatcher}
}

// Create godoc
// @Summary      Create a receipt
// @Description  Stores an unvalidated receipt. Numbering and CAE authorization happen at validation time.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateReceiptRequest true "Receipt detail"
// @Success      201  {object} dto.ReceiptResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/receipts [post]
func (h *ReceiptsHandler) Create(c *gin.Context) {
	var req dto.CreateReceiptRequest
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

func (h *ReceiptsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid receipt id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("receipt not found"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary      List receipts
// @Tags         receipts
// @Produce      json
// @Security     BearerAuth
// @Param        point_of_sales_id query string false "Point of sale UUID"
// @Param        receipt_type      query string false "AFIP receipt type code"
// @Param        validated         query bool   false "Filter by validation state"
// @Param        page              query int    false "Page (default 1)"
// @Param        limit             query int    false "Rows per page (default 50)"
// @Success      200 {object} dto.ReceiptListResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/receipts [get]
func (h *ReceiptsHandler) List(c *gin.Context) {
	var filter dto.ReceiptFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("could not list receipts"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Validate godoc
// @Summary      Validate receipts synchronously
// @Description  Numbers the batch and submits it to AFIP for CAE authorization in one call. The batch must share one point of sale and receipt type.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ValidateReceiptsRequest true "Receipt IDs"
// @Success      200  {object} dto.ValidateReceiptsResponse
// @Failure      400  {object} apierror.APIError
// @Failure      502  {object} apierror.APIError
// @Router       /v1/receipts/validate [post]
func (h *ReceiptsHandler) Validate(c *gin.Context) {
	var req dto.ValidateReceiptsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ids, ok := parseUUIDs(c, req.ReceiptIDs)
	if !ok {
		return
	}

	rejections, err := h.validations.Validate(c.Request.Context(), ids, nil)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, service.ErrCannotValidateTogether) || errors.Is(err, service.ErrInsideTransaction) {
			status = http.StatusBadRequest
		}
		c.JSON(status, apierror.New(err.Error()))
		return
	}
	if rejections == nil {
		rejections = []string{}
	}
	c.JSON(http.StatusOK, dto.ValidateReceiptsResponse{Rejections: rejections})
}

// ValidateAsync godoc
// @Summary      Validate receipts in the background
// @Description  Enqueues the batch for the worker pool and returns immediately.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ValidateReceiptsRequest true "Receipt IDs"
// @Success      202  {object} dto.AsyncAcceptedResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/receipts/validate-async [post]
func (h *ReceiptsHandler) ValidateAsync(c *gin.Context) {
	var req dto.ValidateReceiptsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, ok := parseUUIDs(c, req.ReceiptIDs); !ok {
		return
	}

	payload := worker.ValidationJobPayload{ReceiptIDs: req.ReceiptIDs}
	if err := h.dispatcher.EnqueueValidation(c.Request.Context(), payload); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("could not enqueue validation"))
		return
	}
	c.JSON(http.StatusAccepted, dto.AsyncAcceptedResponse{JobID: uuid.NewString()})
}

// Revalidate godoc
// @Summary      Reconcile a receipt against AFIP
// @Description  Fetches the remote state of a numbered receipt and persists its validation if AFIP approved it.
// @Tags         receipts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Receipt UUID"
// @Success      200 {object} dto.ValidationResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/receipts/{id}/revalidate [post]
func (h *ReceiptsHandler) Revalidate(c *gin.Context) {
	receipt, ok := h.loadReceipt(c)
	if !ok {
		return
	}

	validation, err := h.validations.Revalidate(c.Request.Context(), receipt)
	if err != nil {
		c.JSON(http.StatusBadGateway, apierror.New(err.Error()))
		return
	}
	if validation == nil {
		c.JSON(http.StatusNotFound, apierror.New("AFIP holds no approved record for this receipt"))
		return
	}

	resp := dto.ValidationResponse{
		Result:        validation.Result,
		CAE:           validation.CAE,
		CAEExpiration: validation.CAEExpiration.Format("2006-01-02"),
		ProcessedDate: validation.ProcessedDate.Format("2006-01-02"),
	}
	for _, obs := range validation.Observations {
		resp.Observations = append(resp.Observations, obs.Message)
	}
	c.JSON(http.StatusOK, resp)
}

// ApproximateDate godoc
// @Summary      Move a stale issued date into AFIP's acceptance window
// @Tags         receipts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Receipt UUID"
// @Success      200 {object} dto.ApproximateDateResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/receipts/{id}/approximate-date [post]
func (h *ReceiptsHandler) ApproximateDate(c *gin.Context) {
	receipt, ok := h.loadReceipt(c)
	if !ok {
		return
	}

	changed, err := h.validations.ApproximateDate(c.Request.Context(), receipt)
	if err != nil {
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.ApproximateDateResponse{
		Changed:    changed,
		IssuedDate: receipt.IssuedDate.Format("2006-01-02"),
	})
}

func (h *ReceiptsHandler) loadReceipt(c *gin.Context) (*model.Receipt, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid receipt id"))
		return nil, false
	}
	receipt, err := h.receipts.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("receipt not found"))
		return nil, false
	}
	return receipt, true
}

func parseUUIDs(c *gin.Context, raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid receipt id: "+s))
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
