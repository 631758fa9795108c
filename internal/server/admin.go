package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/knoxfield/corpusflow/internal/data/repos"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

// NewAdminRouter exposes health and record-status lookups for operators
// and dashboards. It is internal-only; the coordinator itself has no
// request/response surface.
func NewAdminRouter(repo repos.RecordRepo, baseLog *logger.Logger) *gin.Engine {
	log := baseLog.With("component", "AdminServer")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(otelgin.Middleware("corpusflow-admin"))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/v1/records/:id/status", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
			return
		}
		rec, err := repo.GetByID(c.Request.Context(), nil, id)
		if err != nil {
			if errors.Is(err, repos.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			log.Error("record status lookup failed", "record_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"record_id":         rec.ID,
			"indexing_status":   rec.IndexingStatus,
			"virtual_record_id": rec.VirtualRecordID,
			"version":           rec.Version,
		})
	})

	return r
}
