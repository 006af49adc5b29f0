package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/dapo/internal/application/orchestrator"
	"github.com/aescanero/dapo/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PipelineSubmitRequest represents a pipeline submission request
type PipelineSubmitRequest struct {
	Stages   []string    `json:"stages" binding:"required"`
	Input    interface{} `json:"input"`
	Source   string      `json:"source" binding:"required"`
	Priority string      `json:"priority"`
}

// PipelineSubmitResponse represents a pipeline submission response
type PipelineSubmitResponse struct {
	PipelineID  string `json:"pipeline_id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// CancelRequest carries the operator's audit reason
type CancelRequest struct {
	Reason string `json:"reason"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"orchestrator": "ok",
		},
	})
}

// handleSubmitPipeline handles pipeline submission
func (s *Server) handleSubmitPipeline(c *gin.Context) {
	var req PipelineSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_PRIORITY",
				Message: err.Error(),
			},
		})
		return
	}

	pipelineID, err := s.manager.Submit(c.Request.Context(), orchestrator.SubmitRequest{
		Stages:   req.Stages,
		Input:    req.Input,
		Source:   req.Source,
		Priority: priority,
	})
	if err != nil {
		var full *domain.QueueFullError
		if errors.As(err, &full) {
			// Backpressure: tell the caller to retry upstream
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: ErrorDetail{
					Code:    "QUEUE_FULL",
					Message: err.Error(),
				},
			})
			return
		}
		s.logger.Error("failed to submit pipeline", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SUBMISSION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, PipelineSubmitResponse{
		PipelineID:  pipelineID,
		Status:      string(domain.ExecutionStatusPending),
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListPipelines handles listing recorded pipeline runs
func (s *Server) handleListPipelines(c *gin.Context) {
	ids, err := s.manager.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "LIST_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pipelines": ids,
		"total":     len(ids),
	})
}

// handleGetPipeline handles getting a pipeline run record
func (s *Server) handleGetPipeline(c *gin.Context) {
	pipelineID := c.Param("id")

	record, err := s.manager.Status(c.Request.Context(), pipelineID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Pipeline not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleGetPartials returns the completed stage outputs for a pipeline
func (s *Server) handleGetPartials(c *gin.Context) {
	pipelineID := c.Param("id")

	partials, err := s.manager.Partials(c.Request.Context(), pipelineID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Pipeline not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pipeline_id": pipelineID,
		"partials":    partials,
	})
}

// handleCancelPipeline aborts a running pipeline on operator demand
func (s *Server) handleCancelPipeline(c *gin.Context) {
	pipelineID := c.Param("id")

	var req CancelRequest
	// Body is optional; an empty reason gets a default downstream
	_ = c.ShouldBindJSON(&req)

	if err := s.manager.Cancel(c.Request.Context(), pipelineID, req.Reason); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "CANCEL_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"pipeline_id": pipelineID,
		"status":      "cancelling",
	})
}

// handleListNodes returns a snapshot of the routing targets
func (s *Server) handleListNodes(c *gin.Context) {
	nodes := s.nodes.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"nodes": nodes,
		"total": len(nodes),
	})
}
