package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/entitle/internal/catalog/domain"
)

type createPackageRequest struct {
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Stackable bool           `json:"stackable"`
	Active    *bool          `json:"active"`
	Public    *bool          `json:"public"`
	Metadata  map[string]any `json:"metadata"`
}

type setFeatureLimitRequest struct {
	// LimitValue null means unlimited, not zero.
	LimitValue *int64 `json:"limit_value"`
}

func (s *Server) CreatePackage(c *gin.Context) {
	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreateRequest{
		Code:      strings.TrimSpace(req.Code),
		Name:      strings.TrimSpace(req.Name),
		Stackable: req.Stackable,
		Active:    req.Active,
		Public:    req.Public,
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPackages(c *gin.Context) {
	var query struct {
		Code      string `form:"code"`
		Stackable string `form:"stackable"`
		Active    string `form:"active"`
		Public    string `form:"public"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	stackable, err := parseOptionalBool(query.Stackable)
	if err != nil {
		AbortWithError(c, newValidationError("stackable", "invalid_stackable", "invalid stackable"))
		return
	}
	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}
	public, err := parseOptionalBool(query.Public)
	if err != nil {
		AbortWithError(c, newValidationError("public", "invalid_public", "invalid public"))
		return
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Code:      strings.TrimSpace(query.Code),
		Stackable: stackable,
		Active:    active,
		Public:    public,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPackage(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	resp, err := s.catalogSvc.GetByCode(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetPackageFeatureLimit(c *gin.Context) {
	var req setFeatureLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.catalogSvc.SetFeatureLimit(c.Request.Context(), catalogdomain.SetFeatureLimitRequest{
		PackageCode: strings.TrimSpace(c.Param("code")),
		FeatureCode: strings.TrimSpace(c.Param("feature_code")),
		LimitValue:  req.LimitValue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ArchivePackage(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	resp, err := s.catalogSvc.Archive(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
