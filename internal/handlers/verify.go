package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/loanverify/docverify/internal/config"
	"github.com/loanverify/docverify/internal/metrics"
	"github.com/loanverify/docverify/internal/middleware"
	"github.com/loanverify/docverify/internal/verify/model"
	"github.com/loanverify/docverify/internal/verify/orchestrator"
)

// verifyRequest is the POST /api/v1/verify body: a path to a PDF already on
// the server's filesystem (documents arrive from the upstream loan
// workflow's own storage, not a browser upload) plus the case model and
// field specs to check.
type verifyRequest struct {
	DocumentPath string                 `json:"documentPath"`
	CaseID       string                 `json:"caseId"`
	CaseModel    map[string]interface{} `json:"caseModel"`
	Fields       []fieldSpecDTO         `json:"fields"`
}

type fieldSpecDTO struct {
	Name           string   `json:"name"`
	Labels         []string `json:"labels"`
	Type           string   `json:"type"`
	Required       bool     `json:"required"`
	SearchStrategy string   `json:"searchStrategy"`
}

// RegisterVerifyRoutes wires the document-verification API onto router:
// the verify/manifest endpoints plus read-only diagnostic routes over the
// underlying PDF page-analysis machinery.
func RegisterVerifyRoutes(router *gin.Engine, cfg config.Config) {
	v1 := router.Group("/api/v1")
	v1.Use(middleware.CORSMiddleware())
	v1.Use(middleware.GoogleAuthMiddleware())
	{
		v1.POST("/verify", handleVerify(cfg))
		v1.GET("/verify/:caseId/manifest", handleManifest(cfg))

		// Diagnostic endpoints onto the same redact.Redactor acquisition is
		// built on, useful for inspecting why a document took the scanned
		// path or why a page's digital extraction came back empty.
		v1.POST("/debug/pdf/page-info", HandleRedactPageInfo)
		v1.POST("/debug/pdf/capabilities", HandleRedactCapabilities)
		v1.POST("/debug/pdf/text-positions", HandleRedactTextPositions)
		v1.POST("/debug/pdf/search", HandleRedactSearch)
	}

	router.GET("/healthz", handleHealthz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func handleVerify(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.LogAuthInfo(c)

		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.DocumentPath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "documentPath is required"})
			return
		}
		if _, err := os.Stat(req.DocumentPath); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "document not found: " + req.DocumentPath})
			return
		}

		caseModel := model.CaseModel{CaseID: req.CaseID, Fields: req.CaseModel}
		fields := make([]model.FieldSpec, len(req.Fields))
		for i, f := range req.Fields {
			fields[i] = model.FieldSpec{
				Name:           f.Name,
				Labels:         f.Labels,
				Type:           model.FieldType(f.Type),
				Required:       f.Required,
				SearchStrategy: model.SearchStrategy(f.SearchStrategy),
			}
		}

		report, _, err := orchestrator.Run(c.Request.Context(), cfg, req.DocumentPath, caseModel, fields)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("X-Verification-Report", string(report.Status))
		c.JSON(http.StatusOK, report)
	}
}

func handleManifest(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		caseID := c.Param("caseId")
		path := filepath.Join(cfg.ExtractDir, caseID, "manifest.json")
		data, err := os.ReadFile(path)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "manifest not found for case " + caseID})
			return
		}
		var m orchestrator.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "corrupt manifest: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
