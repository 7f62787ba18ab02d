package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/originflow/sentinel/internal/incident"
	"github.com/originflow/sentinel/internal/validator"
)

// Operation is the typed dispatch key of the operations endpoint. Requests
// with any other value are rejected at the boundary.
type Operation string

const (
	OpComprehensiveScan  Operation = "comprehensive_scan"
	OpThreatAnalysis     Operation = "threat_analysis"
	OpSecurityValidation Operation = "security_validation"
	OpIncidentResponse   Operation = "incident_response"
)

func parseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpComprehensiveScan, OpThreatAnalysis, OpSecurityValidation, OpIncidentResponse:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("unknown operation: %q", s)
	}
}

// operationRequest is the superset envelope of all four operations. Fields
// irrelevant to the dispatched operation are ignored.
type operationRequest struct {
	Operation string `json:"operation"`
	ActorID   string `json:"actor_id"`

	// threat_analysis
	Input string `json:"input,omitempty"`

	// security_validation
	SessionToken       string `json:"session_token,omitempty"`
	RequiredPermission string `json:"required_permission,omitempty"`
	Action             string `json:"action,omitempty"`

	// incident_response
	IncidentType    string `json:"incident_type,omitempty"`
	Severity        string `json:"severity,omitempty"`
	Description     string `json:"description,omitempty"`
	NetworkOrigin   string `json:"network_origin,omitempty"`
	ClientSignature string `json:"client_signature,omitempty"`
}

func (s *Server) handleOperations(c *gin.Context) {
	var req operationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	op, err := parseOperation(req.Operation)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	switch op {
	case OpComprehensiveScan:
		s.handleComprehensiveScan(c, req)
	case OpThreatAnalysis:
		s.handleThreatAnalysis(c, req)
	case OpSecurityValidation:
		s.handleSecurityValidation(c, req)
	case OpIncidentResponse:
		s.handleIncidentResponse(c, req)
	}
}

func (s *Server) handleComprehensiveScan(c *gin.Context, req operationRequest) {
	result, err := s.orch.Run(c.Request.Context(), req.ActorID)
	if err != nil {
		s.log.LogError(c.Request.Context(), err, "api.comprehensive_scan", "actor_id", req.ActorID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "scan failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"scan_result": result,
	})
}

func (s *Server) handleThreatAnalysis(c *gin.Context, req operationRequest) {
	findings := s.analyzer.Analyze(c.Request.Context(), req.Input, req.ActorID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"threats": findings,
	})
}

func (s *Server) handleSecurityValidation(c *gin.Context, req operationRequest) {
	result := s.validator.Validate(c.Request.Context(), validator.Request{
		ActorID:            req.ActorID,
		SessionToken:       req.SessionToken,
		RequiredPermission: req.RequiredPermission,
		Action:             req.Action,
	})

	if s.telemetry != nil {
		s.telemetry.RecordValidation(result.Valid)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"validation_result": result,
	})
}

func (s *Server) handleIncidentResponse(c *gin.Context, req operationRequest) {
	inc, err := s.responder.Respond(c.Request.Context(), incident.Report{
		Type:            req.IncidentType,
		Severity:        req.Severity,
		Description:     req.Description,
		ActorID:         req.ActorID,
		NetworkOrigin:   req.NetworkOrigin,
		ClientSignature: req.ClientSignature,
	})
	if err != nil {
		s.log.LogError(c.Request.Context(), err, "api.incident_response", "actor_id", req.ActorID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "incident could not be recorded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"incident_id":      inc.ID,
		"response_actions": inc.ResponseActions,
	})
}
