package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/romangod6/sitemap-harvester/internal/harvester"
	"github.com/romangod6/sitemap-harvester/internal/models"
	"github.com/romangod6/sitemap-harvester/internal/storage"
	"github.com/romangod6/sitemap-harvester/internal/utils"
)

type Handler struct {
	store     storage.Store
	harvester *harvester.Harvester
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaginationResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalCount int         `json:"total_count,omitempty"`
}

func NewHandler(store storage.Store, h *harvester.Harvester) *Handler {
	return &Handler{store: store, harvester: h}
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.store.ListSources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch sources"})
		return
	}

	if sources == nil {
		sources = []*models.SitemapSource{}
	}

	c.JSON(http.StatusOK, sources)
}

func (h *Handler) GetSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source ID"})
		return
	}

	source, err := h.store.GetSource(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch source"})
		return
	}

	if source == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Source not found"})
		return
	}

	c.JSON(http.StatusOK, source)
}

func (h *Handler) CreateSource(c *gin.Context) {
	var source models.SitemapSource
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source data"})
		return
	}

	if source.SitemapURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Sitemap URL is required"})
		return
	}

	// Generate new UUID if not provided
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	now := time.Now()
	source.CreatedAt = now
	source.UpdatedAt = now
	if source.Status == "" {
		source.Status = "Idle"
	}

	if err := h.store.CreateSource(c.Request.Context(), &source); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create source"})
		return
	}

	c.JSON(http.StatusCreated, source)
}

func (h *Handler) UpdateSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source ID"})
		return
	}

	existing, err := h.store.GetSource(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch source"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Source not found"})
		return
	}

	var source models.SitemapSource
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source data"})
		return
	}

	source.ID = id
	source.CreatedAt = existing.CreatedAt
	source.UpdatedAt = time.Now()

	if err := h.store.UpdateSource(c.Request.Context(), &source); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update source"})
		return
	}

	c.JSON(http.StatusOK, source)
}

func (h *Handler) DeleteSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source ID"})
		return
	}

	if err := h.store.DeleteSource(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete source"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListURLs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source ID"})
		return
	}

	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	urls, err := h.store.ListURLs(c.Request.Context(), id, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch URLs"})
		return
	}

	count, err := h.store.CountURLs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to count URLs"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:       urls,
		Page:       page,
		Limit:      limit,
		TotalCount: count,
	})
}

func (h *Handler) SearchURLs(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Search query is required"})
		return
	}

	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	urls, err := h.store.SearchURLs(c.Request.Context(), query, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to search URLs"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  urls,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) ListHarvestRuns(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source ID"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := h.store.ListHarvestRuns(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch harvest runs"})
		return
	}

	if runs == nil {
		runs = []*models.HarvestRun{}
	}

	c.JSON(http.StatusOK, runs)
}

func (h *Handler) RunHarvest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid source ID"})
		return
	}

	source, err := h.store.GetSource(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch source"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Source not found"})
		return
	}
	if source.Status == "Running" {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Harvest already running for this source"})
		return
	}

	go h.runHarvest(*source)

	c.JSON(http.StatusAccepted, source)
}

func (h *Handler) runHarvest(source models.SitemapSource) {
	logger, err := utils.NewHarvestLogger(source.Name)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return
	}
	defer logger.Close()

	logger.LogInfo("Starting harvest for %s (ID: %s)", source.Name, source.ID)
	logger.LogInfo("  Sitemap URL: %s", source.SitemapURL)
	logger.LogInfo("  Max Depth: %d", source.MaxDepth)
	logger.LogInfo("  Max Documents: %d", source.MaxDocuments)
	logger.LogInfo("  Failure Policy: %s", source.FailurePolicy)

	source.Status = "Running"
	if err := h.store.UpdateSource(context.Background(), &source); err != nil {
		logger.LogError("Failed to update source status: %v", err)
		return
	}

	run, err := h.harvester.Harvest(context.Background(), &source)
	now := time.Now()

	if err != nil {
		source.Status = "Error"
		source.Errors = append(source.Errors, err.Error())
		logger.LogError("Harvest failed with error: %v", err)
	} else {
		source.Status = "Completed"
		source.LastRun = &now

		if interval, parseErr := time.ParseDuration(source.FetchInterval); parseErr == nil {
			nextRun := now.Add(interval)
			source.NextRun = &nextRun
			logger.LogInfo("Next scheduled run: %v", nextRun)
		}
		logger.LogInfo("Harvest completed: %d URLs from %d documents (%d records skipped, %d errors)",
			run.URLsFound, run.DocumentsFetched, run.SkippedRecords, run.ErrorCount)
	}

	source.UpdatedAt = now
	if updateErr := h.store.UpdateSource(context.Background(), &source); updateErr != nil {
		logger.LogError("Error updating source status: %v", updateErr)
	}

	if run != nil && len(run.Errors) > 0 {
		logger.LogError("Errors encountered during harvest:")
		for _, e := range run.Errors {
			logger.LogError("  - %s", e)
		}
	}

	logger.LogInfo("Harvest execution finished. Status: %s", source.Status)
}

func getPaginationParams(c *gin.Context) (int, int) {
	page := 1
	limit := 50

	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	return page, limit
}
