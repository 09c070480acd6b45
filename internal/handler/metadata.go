package handler

import (
	"net/http"

	"afipws/internal/apierror"
	"afipws/internal/dto"
	"afipws/internal/model"
	"afipws/internal/repository"
	"afipws/internal/service"

	"github.com/gin-gonic/gin"
)

type MetadataHandler struct {
	svc    service.MetadataService
	params repository.ParamTypeRepository
}

func NewMetadataHandler(svc service.MetadataService, params repository.ParamTypeRepository) *MetadataHandler {
	return &MetadataHandler{svc: svc, params: params}
}

// Populate godoc
// @Summary      Sync AFIP metadata tables
// @Description  Loads receipt types, concepts, document types, VAT and tax types, currencies and optionals from AFIP. An empty body syncs everything, including client VAT conditions.
// @Tags         metadata
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.PopulateRequest false "Table selection"
// @Success      200  {object} dto.PopulateResponse
// @Failure      502  {object} apierror.APIError
// @Router       /v1/metadata/populate [post]
func (h *MetadataHandler) Populate(c *gin.Context) {
	var req dto.PopulateRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}

	if len(req.Kinds) == 0 {
		if err := h.svc.PopulateAll(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, apierror.New(err.Error()))
			return
		}
		c.JSON(http.StatusOK, dto.PopulateResponse{Created: map[string]int{}})
		return
	}

	created := make(map[string]int, len(req.Kinds))
	for _, kind := range req.Kinds {
		n, err := h.svc.PopulateParamType(c.Request.Context(), model.ParamKind(kind), nil)
		if err != nil {
			c.JSON(http.StatusBadGateway, apierror.New(err.Error()))
			return
		}
		created[kind] = n
	}
	c.JSON(http.StatusOK, dto.PopulateResponse{Created: created})
}

// ListKind returns the locally synced rows of one metadata table.
func (h *MetadataHandler) ListKind(c *gin.Context) {
	kind := model.ParamKind(c.Param("kind"))

	valid := false
	for _, k := range model.ParamKinds() {
		if k == kind {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, apierror.New("unknown metadata kind"))
		return
	}

	rows, err := h.params.ListByKind(c.Request.Context(), kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("could not list metadata"))
		return
	}

	resp := make([]dto.ParamTypeResponse, 0, len(rows))
	for _, row := range rows {
		item := dto.ParamTypeResponse{Code: row.Code, Description: row.Description}
		if row.ValidFrom != nil {
			s := row.ValidFrom.Format("2006-01-02")
			item.ValidFrom = &s
		}
		if row.ValidTo != nil {
			s := row.ValidTo.Format("2006-01-02")
			item.ValidTo = &s
		}
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, resp)
}
