// Package httpapi is the demo JSON HTTP surface for the generator
// host service: a thin gin router exposing health and
// sequence-generation endpoints, the caller spec.md's own Non-goals
// say the core module itself does not provide.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/obsseq/internal/historystore"
	"github.com/codeready-toolchain/obsseq/internal/obsrun"
	"github.com/codeready-toolchain/obsseq/pkg/config"
	"github.com/codeready-toolchain/obsseq/pkg/sequence"
	"github.com/codeready-toolchain/obsseq/pkg/version"
)

// defaultPageSize bounds how many atoms one GET /sequence pull drains
// from each stream. It exists because the acquisition stream is
// deliberately unbounded (the repeating "Acquisition - Slit" atom
// never signals exhaustion on its own, spec §4.5/§6) — a page size is
// this handler's own substitute for obsrun.Run's full-drain model,
// which only fits a stream that terminates.
const defaultPageSize = 20

// Server wires the host service's dependencies into a gin engine.
type Server struct {
	store    *historystore.Store
	registry *obsrun.Registry
	engine   *gin.Engine

	mu        sync.Mutex
	sequences map[string]sequence.Handle
}

// NewServer builds a Server with routes registered.
func NewServer(store *historystore.Store, registry *obsrun.Registry) *Server {
	s := &Server{store: store, registry: registry, engine: gin.Default(), sequences: make(map[string]sequence.Handle)}
	s.routes()
	return s
}

// Engine exposes the underlying gin.Engine (for Run/tests).
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/observations/active", s.activeObservationsHandler)
	s.engine.POST("/observations/:id/cancel", s.cancelObservationHandler)
	s.engine.POST("/observations/:id/steps", s.postStepsHandler)
	s.engine.POST("/observations/:id/visits", s.postVisitHandler)
	s.engine.GET("/observations/:id/sequence", s.getSequenceHandler)
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthCheck is one named component's status (spec's ambient
// observability surface, not part of the core sequence-generation
// contract).
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := statusHealthy

	if _, err := historystore.Health(ctx, s.store.DB()); err != nil {
		status = statusUnhealthy
		checks["database"] = HealthCheck{Status: statusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: statusHealthy}
	}

	checks["obsrun"] = HealthCheck{Status: statusHealthy}

	httpStatus := http.StatusOK
	switch status {
	case statusUnhealthy:
		httpStatus = http.StatusServiceUnavailable
	case statusDegraded:
		httpStatus = http.StatusOK
	}

	c.JSON(httpStatus, HealthResponse{Status: status, Version: version.Full(), Checks: checks})
}

func (s *Server) activeObservationsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Health())
}

func (s *Server) cancelObservationHandler(c *gin.Context) {
	id := c.Param("id")
	if s.registry.Cancel(id) {
		c.JSON(http.StatusOK, gin.H{"cancelled": true, "observation_id": id})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"cancelled": false, "observation_id": id})
}

// VisitRequest is the POST /observations/{id}/visits body (spec
// §4.9): the visit beginning, plus the GeneratorParams to build (or
// rebuild) the observation's sequence against the first time this
// observation is seen.
type VisitRequest struct {
	VisitID uuid.UUID              `json:"visit_id"`
	Params  config.GeneratorParams `json:"params"`
}

// postVisitHandler folds a new visit into an observation's sequence
// (spec §4.9): a first-seen observation is built fresh; a known one
// just has its completion matchers reset against the new visit id
// (spec §4.3).
func (s *Server) postVisitHandler(c *gin.Context) {
	id := c.Param("id")
	var req VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.sequences[id]
	if !ok {
		req.Params.ObservationID = id
		built, buildErr := sequence.Build(req.Params, version.CommitHash(), req.VisitID)
		if buildErr != nil {
			writeSequenceError(c, buildErr)
			return
		}
		s.sequences[id] = built
		c.JSON(http.StatusCreated, gin.H{"observation_id": id, "visit_id": req.VisitID})
		return
	}

	h.ResetVisit(req.VisitID)
	c.JSON(http.StatusOK, gin.H{"observation_id": id, "visit_id": req.VisitID})
}

// postStepsHandler folds one executed atom's worth of recorded steps
// into an observation's completion state (spec §4.3, §4.9).
func (s *Server) postStepsHandler(c *gin.Context) {
	id := c.Param("id")
	var batch sequence.StepBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	h, ok := s.sequences[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no sequence for observation %s", id)})
		return
	}

	if err := h.FoldSteps(batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"folded": len(batch.Steps)})
}

// SequenceResponse is the GET /observations/{id}/sequence payload
// (spec §4.9): the next page of each stream, plus the GeneratorParams
// fingerprint as a cache-key the caller can compare across pulls.
type SequenceResponse struct {
	Fingerprint string              `json:"fingerprint"`
	Acquisition []sequence.AtomJSON `json:"acquisition"`
	Science     []sequence.AtomJSON `json:"science"`
}

// getSequenceHandler drains the next page of acquisition and science
// atoms for an observation (spec §4.9), returning the GeneratorParams
// fingerprint as an ETag-style cache key (spec §4.8).
func (s *Server) getSequenceHandler(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	h, ok := s.sequences[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no sequence for observation %s", id)})
		return
	}

	acq, err := h.NextAcquisitionPage(defaultPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sci, err := h.NextSciencePage(defaultPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fp := h.Fingerprint()
	resp := SequenceResponse{
		Fingerprint: fmt.Sprintf("%x", fp),
		Acquisition: acq,
		Science:     sci,
	}
	c.Header("ETag", resp.Fingerprint)
	c.JSON(http.StatusOK, resp)
}

// writeSequenceError maps a *sequence.Error to the matching HTTP
// status (spec §7's error variants surfaced over the wire).
func writeSequenceError(c *gin.Context, err *sequence.Error) {
	status := http.StatusInternalServerError
	switch err.Code {
	case sequence.ErrorCodeInvalidData:
		status = http.StatusBadRequest
	case sequence.ErrorCodeSequenceUnavailable:
		status = http.StatusUnprocessableEntity
	case sequence.ErrorCodeItcService:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": err.Code})
}
