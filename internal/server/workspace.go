package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	boostdomain "github.com/smallbiznis/entitle/internal/boost/domain"
	entitlementdomain "github.com/smallbiznis/entitle/internal/entitlement/domain"
	grantdomain "github.com/smallbiznis/entitle/internal/grant/domain"
	ledgerdomain "github.com/smallbiznis/entitle/internal/ledger/domain"
	"github.com/smallbiznis/entitle/internal/workspacectx"
)

type provisionPackageRequest struct {
	PackageCode string `json:"package_code"`
	Source      string `json:"source"`
}

type provisionBoostRequest struct {
	FeatureCode  string         `json:"feature_code"`
	BoostType    string         `json:"boost_type"`
	LimitValue   *int64         `json:"limit_value"`
	DurationType string         `json:"duration_type"`
	ExpiresAt    *time.Time     `json:"expires_at"`
	Source       string         `json:"source"`
	Metadata     map[string]any `json:"metadata"`
}

type recordUsageRequest struct {
	FeatureCode string         `json:"feature_code"`
	Quantity    int64          `json:"quantity"`
	Actor       string         `json:"actor"`
	Metadata    map[string]any `json:"metadata"`
}

func (s *Server) ProvisionPackage(c *gin.Context) {
	var req provisionPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.grantSvc.ProvisionPackage(c.Request.Context(), grantdomain.ProvisionRequest{
		WorkspaceID: strings.TrimSpace(c.Param("workspace_id")),
		PackageCode: strings.TrimSpace(req.PackageCode),
		Source:      strings.TrimSpace(req.Source),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokePackage(c *gin.Context) {
	err := s.grantSvc.RevokePackage(c.Request.Context(), grantdomain.RevokeRequest{
		WorkspaceID: strings.TrimSpace(c.Param("workspace_id")),
		PackageCode: strings.TrimSpace(c.Param("package_code")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListWorkspacePackages(c *gin.Context) {
	resp, err := s.grantSvc.ActivePackages(c.Request.Context(), strings.TrimSpace(c.Param("workspace_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ProvisionBoost(c *gin.Context) {
	var req provisionBoostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.boostSvc.ProvisionBoost(c.Request.Context(), boostdomain.ProvisionRequest{
		WorkspaceID:  strings.TrimSpace(c.Param("workspace_id")),
		FeatureCode:  strings.TrimSpace(req.FeatureCode),
		Type:         boostdomain.BoostType(strings.TrimSpace(req.BoostType)),
		LimitValue:   req.LimitValue,
		DurationType: boostdomain.DurationType(strings.TrimSpace(req.DurationType)),
		ExpiresAt:    req.ExpiresAt,
		Source:       strings.TrimSpace(req.Source),
		Metadata:     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelBoost(c *gin.Context) {
	if err := s.boostSvc.CancelBoost(c.Request.Context(), strings.TrimSpace(c.Param("boost_id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListWorkspaceBoosts(c *gin.Context) {
	resp, err := s.boostSvc.ActiveBoosts(c.Request.Context(), strings.TrimSpace(c.Param("workspace_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckEntitlement(c *gin.Context) {
	workspaceID, ok := s.workspaceID(c)
	if !ok {
		return
	}

	resp, err := s.entitlementSvc.Check(c.Request.Context(), workspaceID, strings.TrimSpace(c.Param("feature_code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordUsage(c *gin.Context) {
	var req recordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.ledgerSvc.Record(c.Request.Context(), ledgerdomain.RecordRequest{
		WorkspaceID: strings.TrimSpace(c.Param("workspace_id")),
		FeatureCode: strings.TrimSpace(req.FeatureCode),
		Quantity:    req.Quantity,
		Actor:       strings.TrimSpace(req.Actor),
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ConsumeUsage(c *gin.Context) {
	workspaceID, ok := s.workspaceID(c)
	if !ok {
		return
	}

	var req recordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.entitlementSvc.CheckAndConsume(c.Request.Context(), entitlementdomain.ConsumeRequest{
		WorkspaceID: workspaceID,
		FeatureCode: strings.TrimSpace(req.FeatureCode),
		Quantity:    req.Quantity,
		Actor:       strings.TrimSpace(req.Actor),
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A denied consume is a successful resolution, not an API failure.
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UsageSummary(c *gin.Context) {
	workspaceID, ok := s.workspaceID(c)
	if !ok {
		return
	}

	resp, err := s.entitlementSvc.UsageSummary(c.Request.Context(), workspaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// workspaceScope resolves the path's workspace ID into the request context so
// downstream handlers and services share one parse.
func (s *Server) workspaceScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param("workspace_id"))
		if id, err := snowflake.ParseString(raw); err == nil && id != 0 {
			ctx := workspacectx.WithWorkspaceID(c.Request.Context(), id)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func (s *Server) workspaceID(c *gin.Context) (snowflake.ID, bool) {
	if id, ok := workspacectx.WorkspaceIDFromContext(c.Request.Context()); ok {
		return id, true
	}
	AbortWithError(c, newValidationError("workspace_id", "invalid_workspace", "invalid workspace id"))
	return 0, false
}
