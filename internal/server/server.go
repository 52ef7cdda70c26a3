package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/agent"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/planner"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/session"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/telemetry"
	"github.com/kzxian1201/medical-tourism-planning-system/provider"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/accommodation"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/airports"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/amadeus"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/costestimate"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/flights"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/medicaldb"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/transport"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/visarules"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/weather"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/websearch"
)

const seedDir = "data/seed"

// Run wires every dependency and serves the HTTP API until the listener stops.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Message: "Medical Tourism AI Agent service is running and healthy.",
		})
	})
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	// Catalog lives in Postgres when configured, otherwise in the bundled
	// seed files. Migrations are best-effort so a fresh database self-heals.
	var st *store.Store
	var catalog *store.Catalog
	if dsn, err := cfg.Storage.Postgres.DSN(); err == nil {
		if merr := Migrate("file://migrations", dsn, "up", 0); merr != nil {
			baseLogger.Printf("migrate: %v", merr)
		}
		st, err = store.NewWithDSN(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connecting postgres: %w", err)
		}
		catalog, err = store.LoadCatalog(ctx, st)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
	} else {
		var err error
		catalog, err = store.LoadCatalogFromDir(seedDir)
		if err != nil {
			return fmt.Errorf("loading seed catalog: %w", err)
		}
	}

	web, err := websearch.NewSearcher(websearch.SerperProvider, cfg.Providers.Serper.APIKey)
	if err != nil {
		return fmt.Errorf("web search: %w", err)
	}
	amadeusClient := amadeus.NewClient(cfg.Providers.Amadeus)
	flightSearcher := flights.NewSearcher(amadeusClient)
	airportResolver := airports.NewResolver(amadeusClient)
	weatherClient := weather.NewClient(cfg.Providers.WeatherAPI)
	directory, err := medicaldb.NewSearch(catalog)
	if err != nil {
		return fmt.Errorf("medical directory: %w", err)
	}
	costs := costestimate.NewEstimator(catalog)
	visas := visarules.NewChecker(catalog)
	stays := accommodation.NewSearch(catalog)
	transit := transport.NewCatalog(catalog)

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	tracker := telemetry.NewCostTracker(cfg.Telemetry.CostTracking, cfg.Telemetry.LogFile)

	logger := log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	medical := planner.NewMedicalPlanner(cfg, llm, directory, costs, visas, web, tracker, logger)
	travel := planner.NewTravelPlanner(cfg, llm, airportResolver, flightSearcher, stays, weatherClient, visas, web, tracker, logger)
	logistics := planner.NewLogisticsPlanner(cfg, llm, transit, web, tracker, logger)

	registry, err := agent.BuildRegistry(cfg, medical, travel, logistics)
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}
	ag := agent.New(cfg, llm, registry, tracker, log.New(log.Writer(), "[AGENT] ", log.LstdFlags))

	var sessions session.Store
	switch cfg.Session.Normalize().Backend {
	case "redis":
		sessions = session.NewRedisStore(cfg.Storage.Redis, cfg.Session.Normalize().TTL)
	default:
		sessions = session.NewInMemoryStore()
	}

	api := e.Group("/api/v1")
	if st != nil && cfg.Server.JWTSecret != "" {
		authHandler := &AuthHandler{Store: st, Secret: []byte(cfg.Server.JWTSecret)}
		authHandler.Register(api.Group("/auth"))
	}

	planGroup := api.Group("/plan")
	if cfg.Server.JWTSecret != "" {
		planGroup.Use(authMiddleware([]byte(cfg.Server.JWTSecret)))
	}
	planHandler := &PlanHandler{
		Agent:    ag,
		Sessions: sessions,
		Plans:    st,
		Logger:   log.New(log.Writer(), "[PLAN] ", log.LstdFlags),
	}
	planHandler.Register(planGroup)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8000"
	}
	return e.Start(addr)
}
