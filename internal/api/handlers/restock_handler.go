package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelfplan/backend-go/internal/catalog"
	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/andresuchdata/shelfplan/backend-go/internal/service"
)

type RestockHandler struct {
	service *service.RestockService
}

func NewRestockHandler(service *service.RestockService) *RestockHandler {
	return &RestockHandler{service: service}
}

// Strategy handles POST /restock/strategy.
func (h *RestockHandler) Strategy(c *gin.Context) {
	var req domain.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.Strategy(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "failed to calculate restocking strategy")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RestockHandler) StrategyBatch(c *gin.Context) {
	var req domain.BatchRestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	results, err := h.service.StrategyBatch(c.Request.Context(), req.Requests)
	if err != nil {
		h.fail(c, err, "failed to calculate restocking strategy")
		return
	}
	c.JSON(http.StatusOK, domain.BatchRestockResponse{Results: results})
}

func (h *RestockHandler) SaveCatalog(c *gin.Context) {
	var req domain.CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	snapshot, err := h.service.SaveCatalog(c.Request.Context(), c.Param("shop"), req.Products)
	if err != nil {
		h.fail(c, err, "failed to save catalog")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// UploadCatalog accepts a multipart "file" field holding a CSV or XLSX catalog.
func (h *RestockHandler) UploadCatalog(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, catalog.MaxFileBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "details": err.Error()})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file", "details": err.Error()})
		return
	}
	defer file.Close()

	snapshot, err := h.service.ImportCatalog(c.Request.Context(), c.Param("shop"), header.Filename, file)
	if err != nil {
		h.fail(c, err, "failed to import catalog")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RestockHandler) GetCatalog(c *gin.Context) {
	snapshot, err := h.service.GetCatalog(c.Request.Context(), c.Param("shop"))
	if err != nil {
		h.fail(c, err, "failed to fetch catalog")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RestockHandler) ShopStrategy(c *gin.Context) {
	var req domain.ShopStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.StrategyForShop(c.Request.Context(), c.Param("shop"), req)
	if err != nil {
		h.fail(c, err, "failed to calculate restocking strategy")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RestockHandler) ListPlans(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	plans, err := h.service.ListPlans(c.Request.Context(), c.Param("shop"), limit)
	if err != nil {
		h.fail(c, err, "failed to fetch plans")
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *RestockHandler) GetPlan(c *gin.Context) {
	plan, err := h.service.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to fetch plan")
		return
	}
	c.JSON(http.StatusOK, plan)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request",
		"details": domain.ValidationDetails(err),
	})
}

func (h *RestockHandler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		badRequest(c, err)
	case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrCatalogNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
