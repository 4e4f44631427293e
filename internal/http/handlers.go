package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rarediag/internal/core"
	"rarediag/pkg"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// HealthChecker is satisfied by the store; nil disables the readiness check.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to an http.Server.
type Server struct {
	Diseases  *core.DiseaseService
	Drugs     *core.DrugService
	Diagnosis *core.DiagnosisService
	Health    HealthChecker
	Logger    zerolog.Logger

	router *gin.Engine
}

// NewServer constructs a Server and registers its routes.
func NewServer(diseases *core.DiseaseService, drugs *core.DrugService, diagnosis *core.DiagnosisService, health HealthChecker, logger zerolog.Logger, corsOrigins []string) *Server {
	s := &Server{
		Diseases:  diseases,
		Drugs:     drugs,
		Diagnosis: diagnosis,
		Health:    health,
		Logger:    logger,
	}
	s.router = s.routes(corsOrigins)
	return s
}

// ServeHTTP hands the request to the gin router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(corsOrigins []string) *gin.Engine {
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(corsOrigins) == 0 || (len(corsOrigins) == 1 && corsOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}

	router := gin.New()
	router.Use(
		requestLogger(s.Logger),
		gin.Recovery(),
		limitBodySize(MaxBodyBytes),
		cors.New(corsCfg),
	)

	router.GET("/", s.handleRoot)
	router.GET("/healthz", s.handleHealthz)
	router.GET("/readyz", s.handleReadyz)

	api := router.Group("/api")
	api.GET("/disease-description", s.handleDiseaseSuggestions)
	api.POST("/disease-description", s.handleDiseaseDescription)
	api.GET("/drug-info", s.handleDrugSuggestions)
	api.POST("/drug-info", s.handleDrugInfo)
	api.POST("/diagnose", s.handleDiagnose)

	return router
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Medical API is running"})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadyz(c *gin.Context) {
	if s.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.Health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"db":     "unhealthy: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
}

// handleDiseaseSuggestions: GET /api/disease-description?q=
func (s *Server) handleDiseaseSuggestions(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	names, err := s.Diseases.Suggest(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err, "Failed to load suggestions", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": names})
}

type diseaseRequest struct {
	DiseaseName string `json:"disease_name"`
}

// handleDiseaseDescription: POST /api/disease-description
func (s *Server) handleDiseaseDescription(c *gin.Context) {
	var req diseaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.DiseaseName)

	res, err := s.Diseases.Describe(c.Request.Context(), name)
	if err != nil {
		s.fail(c, err, "Something went wrong", "Disease not found in the database.")
		return
	}

	message := "Description already in database."
	if res.Source == core.SourceGenerated {
		message = "Description fetched and stored successfully."
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     message,
		"disease":     name,
		"description": res.Disease.Description,
	})
}

// handleDrugSuggestions: GET /api/drug-info?q=
func (s *Server) handleDrugSuggestions(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	names, err := s.Drugs.Suggest(c.Request.Context(), strings.ToUpper(q))
	if err != nil {
		s.fail(c, err, "Failed to load suggestions", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": names})
}

type drugRequest struct {
	DrugName string `json:"drug_name"`
}

// handleDrugInfo: POST /api/drug-info
func (s *Server) handleDrugInfo(c *gin.Context) {
	var req drugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	name := strings.ToUpper(strings.TrimSpace(req.DrugName))

	info, err := s.Drugs.Lookup(c.Request.Context(), name)
	if err != nil {
		s.fail(c, err, "Server error", "Drug '"+name+"' not found in local database.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"drug_name":     info.DrugName,
		"manufacturers": info.Manufacturers,
		"description":   info.Description,
	})
}

// handleDiagnose: POST /api/diagnose.  The body is any non-empty JSON object.
func (s *Server) handleDiagnose(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "Patient data too large"})
			return
		}
		badRequest(c, "Could not read request body")
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		badRequest(c, "No patient data provided")
		return
	}

	var record pkg.PatientRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		badRequest(c, "Patient data must be a JSON object")
		return
	}
	if len(bytes.TrimSpace(raw[dec.InputOffset():])) != 0 {
		badRequest(c, "Patient data must be a single JSON object")
		return
	}

	result, err := s.Diagnosis.Diagnose(c.Request.Context(), record)
	if err != nil {
		s.fail(c, err, "Diagnosis failed", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// fail maps a service error to a status code and body.  notFound is the
// message used for pkg.ErrNotFound; invalid input is reported with its own
// message.
func (s *Server) fail(c *gin.Context, err error, message, notFound string) {
	if errors.Is(err, core.ErrInvalidInput) {
		badRequest(c, err.Error())
		return
	}
	if errors.Is(err, pkg.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": notFound})
		return
	}

	_ = c.Error(err)

	var extraction *core.ExtractionError
	if errors.As(err, &extraction) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":      false,
			"message":      message,
			"error":        "Failed to parse AI response",
			"raw_response": extraction.Raw,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}
