package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
)

type createFeatureRequest struct {
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Kind      string         `json:"kind"`
	ResetType string         `json:"reset_type"`
	Active    *bool          `json:"active"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) CreateFeature(c *gin.Context) {
	var req createFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.featureSvc.Create(c.Request.Context(), featuredomain.CreateRequest{
		Code:      strings.TrimSpace(req.Code),
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		Kind:      featuredomain.FeatureKind(strings.TrimSpace(req.Kind)),
		ResetType: featuredomain.ResetType(strings.TrimSpace(req.ResetType)),
		Active:    req.Active,
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFeatures(c *gin.Context) {
	var query struct {
		Code     string `form:"code"`
		Category string `form:"category"`
		Kind     string `form:"kind"`
		Active   string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	var kind *featuredomain.FeatureKind
	rawKind := strings.TrimSpace(query.Kind)
	if rawKind != "" {
		parsed := featuredomain.FeatureKind(strings.ToLower(rawKind))
		if parsed != featuredomain.FeatureKindBoolean && parsed != featuredomain.FeatureKindLimited {
			AbortWithError(c, newValidationError("kind", "invalid_feature_kind", "invalid feature kind"))
			return
		}
		kind = &parsed
	}

	resp, err := s.featureSvc.List(c.Request.Context(), featuredomain.ListRequest{
		Code:     strings.TrimSpace(query.Code),
		Category: strings.TrimSpace(query.Category),
		Kind:     kind,
		Active:   active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFeature(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	resp, err := s.featureSvc.GetByCode(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ArchiveFeature(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	resp, err := s.featureSvc.Archive(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
