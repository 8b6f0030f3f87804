package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/entitle/internal/boost"
	boostdomain "github.com/smallbiznis/entitle/internal/boost/domain"
	"github.com/smallbiznis/entitle/internal/catalog"
	catalogdomain "github.com/smallbiznis/entitle/internal/catalog/domain"
	"github.com/smallbiznis/entitle/internal/config"
	"github.com/smallbiznis/entitle/internal/cycle"
	"github.com/smallbiznis/entitle/internal/entitlement"
	entitlementdomain "github.com/smallbiznis/entitle/internal/entitlement/domain"
	"github.com/smallbiznis/entitle/internal/feature"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	"github.com/smallbiznis/entitle/internal/grant"
	grantdomain "github.com/smallbiznis/entitle/internal/grant/domain"
	"github.com/smallbiznis/entitle/internal/ledger"
	ledgerdomain "github.com/smallbiznis/entitle/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	feature.Module,
	catalog.Module,
	grant.Module,
	cycle.Module,
	boost.Module,
	ledger.Module,
	entitlement.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(log, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	FeatureSvc     featuredomain.Service
	CatalogSvc     catalogdomain.Service
	GrantSvc       grantdomain.Service
	BoostSvc       boostdomain.Service
	LedgerSvc      ledgerdomain.Service
	EntitlementSvc entitlementdomain.Service
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	featureSvc     featuredomain.Service
	catalogSvc     catalogdomain.Service
	grantSvc       grantdomain.Service
	boostSvc       boostdomain.Service
	ledgerSvc      ledgerdomain.Service
	entitlementSvc entitlementdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		featureSvc:     p.FeatureSvc,
		catalogSvc:     p.CatalogSvc,
		grantSvc:       p.GrantSvc,
		boostSvc:       p.BoostSvc,
		ledgerSvc:      p.LedgerSvc,
		entitlementSvc: p.EntitlementSvc,
	}

	svc.registerCatalogRoutes()
	svc.registerWorkspaceRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerCatalogRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Features --------
	v1.GET("/features", s.ListFeatures)
	v1.POST("/features", s.CreateFeature)
	v1.GET("/features/:code", s.GetFeature)
	v1.DELETE("/features/:code", s.ArchiveFeature)

	// -------- Packages --------
	v1.GET("/packages", s.ListPackages)
	v1.POST("/packages", s.CreatePackage)
	v1.GET("/packages/:code", s.GetPackage)
	v1.PUT("/packages/:code/features/:feature_code", s.SetPackageFeatureLimit)
	v1.DELETE("/packages/:code", s.ArchivePackage)
}

func (s *Server) registerWorkspaceRoutes() {
	ws := s.engine.Group("/v1/workspaces/:workspace_id", s.workspaceScope())

	// -------- Assignments --------
	ws.GET("/packages", s.ListWorkspacePackages)
	ws.POST("/packages", s.ProvisionPackage)
	ws.DELETE("/packages/:package_code", s.RevokePackage)

	// -------- Boosts --------
	ws.GET("/boosts", s.ListWorkspaceBoosts)
	ws.POST("/boosts", s.ProvisionBoost)
	ws.DELETE("/boosts/:boost_id", s.CancelBoost)

	// -------- Entitlements and usage --------
	ws.GET("/entitlements/:feature_code", s.CheckEntitlement)
	ws.GET("/usage", s.UsageSummary)
	ws.POST("/usage", s.RecordUsage)
	ws.POST("/usage/consume", s.ConsumeUsage)
}
