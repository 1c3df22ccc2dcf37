package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ybbu/NexJen-Bio/internal/analytics"
	"github.com/ybbu/NexJen-Bio/internal/cache"
	"github.com/ybbu/NexJen-Bio/internal/config"
	"github.com/ybbu/NexJen-Bio/internal/errors"
	"github.com/ybbu/NexJen-Bio/internal/insights"
	"github.com/ybbu/NexJen-Bio/internal/middleware"
	"github.com/ybbu/NexJen-Bio/internal/monitoring"
	"github.com/ybbu/NexJen-Bio/internal/network"
	"github.com/ybbu/NexJen-Bio/internal/normalize"
	"github.com/ybbu/NexJen-Bio/internal/publications"
	"github.com/ybbu/NexJen-Bio/internal/scoring"
	"github.com/ybbu/NexJen-Bio/internal/security"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// services bundles everything the HTTP layer serves.
type services struct {
	store      *trials.Store
	scores     *trials.ScoreCache
	scorer     *scoring.Scorer
	builder    *network.Builder
	analytics  *analytics.Service
	classifier *insights.Classifier
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("TRIALSCORE_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := trials.LoadStore(cfg.Data.TrialsCSV)
	if err != nil {
		slog.Error("Failed to load trial snapshot", "path", cfg.Data.TrialsCSV, "error", err)
		os.Exit(1)
	}
	scores, err := trials.LoadScoreCache(cfg.Data.ScoresPath)
	if err != nil {
		slog.Error("Failed to load score cache", "path", cfg.Data.ScoresPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Score cache loaded", "path", cfg.Data.ScoresPath, "entries", scores.Len())

	normalizer, err := normalize.NewNormalizer()
	if err != nil {
		slog.Error("Failed to build entity normalizer", "error", err)
		os.Exit(1)
	}

	scorerOpts := []scoring.Option{scoring.WithLogger(logger)}
	if cfg.Providers.LookupsEnabled {
		ctClient := publications.NewClinicalTrialsClient()
		ctClient.BaseURL = cfg.Providers.ClinicalTrialsBaseURL
		failures := publications.NewFailureLog(cfg.Data.FailuresPath)
		pmClient := publications.NewPubMedClient(failures)
		pmClient.BaseURL = cfg.Providers.PubMedBaseURL
		scorerOpts = append(scorerOpts,
			scoring.WithPublicationSources(ctClient, pmClient),
			scoring.WithFailureRecorder(failures),
		)
	}

	svc := &services{
		store:      store,
		scores:     scores,
		scorer:     scoring.NewScorer(store, scorerOpts...),
		builder:    network.NewBuilder(normalizer),
		analytics:  analytics.NewService(store, scores),
		classifier: insights.NewClassifier(),
	}

	r := newRouter(cfg, svc)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// newRouter assembles the middleware chain and routes.
func newRouter(cfg *config.Config, svc *services) *gin.Engine {
	compressionMiddleware := middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())

	r := gin.New()

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	r.Use(compressionMiddleware.Handler())

	// Monitoring first, to capture all requests
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))

	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.RequestTimeout = cfg.Server.RequestTimeout
	securityConfig.MaxRequestsPerMin = cfg.Server.MaxRequestsPerMin
	securityConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	sm := security.NewSecurityMiddleware(securityConfig)
	sm.Cleanup()

	r.Use(sm.SecurityHeaders)
	r.Use(sm.CORSConfig())
	r.Use(sm.RequestTimeout)
	r.Use(sm.ValidateContentType)
	r.Use(sm.RateLimitByIP)

	// Graph builds and analytics rollups are the expensive reads
	appCache := cache.NewCache(cfg.Server.CacheTTL)
	r.Use(appCache.Middleware(appMetrics, "/network/", "/analytics/", "/insights/emerging"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"trials":    svc.store.Len(),
			"scores":    svc.scores.Len(),
			"cache":     appCache.Stats(),
			"metrics":   appMetrics.GetStats(),
		})
	})

	r.GET("/trials/:id", sm.ValidateTrialID, func(c *gin.Context) {
		rec := svc.store.ByID(c.Param("id"))
		if rec == nil {
			appErr := errors.NewNotFoundError("trial", c.Param("id"))
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	r.GET("/scores/:id", sm.ValidateTrialID, func(c *gin.Context) {
		start := time.Now()
		id := c.Param("id")

		// Batch runs persist scores with publication lookups already
		// spent; serve those instead of rescoring.
		if entry, ok := svc.scores.Get(id); ok {
			appLogger.ScoringLogger(id, entry.BaseScore, entry.TotalScore, time.Since(start), true)
			c.JSON(http.StatusOK, gin.H{
				"nct_id":          id,
				"base_score":      entry.BaseScore,
				"total_score":     entry.TotalScore,
				"interpretation":  scoring.QualityBand(entry.TotalScore),
				"components":      entry.Components,
				"bonuses":         entry.Bonuses,
				"penalties":       entry.Penalties,
				"total_bonuses":   sumValues(entry.Bonuses),
				"total_penalties": sumValues(entry.Penalties),
				"scored_at":       entry.Timestamp,
				"cached":          true,
			})
			return
		}

		score, err := svc.scorer.Score(c.Request.Context(), id)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appMetrics.IncrementTrialsScored()
		appLogger.ScoringLogger(score.NCTID, score.BaseScore(), score.TotalScore(), time.Since(start), false)

		c.JSON(http.StatusOK, gin.H{
			"nct_id":          score.NCTID,
			"base_score":      score.BaseScore(),
			"total_score":     score.TotalScore(),
			"interpretation":  score.Interpretation(),
			"components":      score.Components,
			"bonuses":         score.Bonuses,
			"penalties":       score.Penalties,
			"total_bonuses":   score.Bonuses.Sum(),
			"total_penalties": score.Penalties.Termination,
		})
	})

	r.GET("/network/graph", func(c *gin.Context) {
		start := time.Now()
		opts := network.BuildOptions{
			Filters: graphFilters(c),
			Mode:    network.WeightingMode(c.Query("mode")),
		}
		if topK := c.Query("top_k"); topK != "" {
			k, err := strconv.Atoi(topK)
			if err != nil || k < 0 {
				appErr := errors.NewValidationError("top_k must be a non-negative integer")
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}
			opts.TopK = k
		}

		graph := svc.builder.BuildGraph(svc.store.All(), opts)

		appMetrics.IncrementGraphsBuilt()
		appLogger.GraphLogger(string(opts.Mode), opts.Filters.Condition, opts.Filters.Timeframe,
			len(graph.Nodes), len(graph.Edges), time.Since(start), false)

		c.JSON(http.StatusOK, graph)
	})

	r.GET("/network/investigators", func(c *gin.Context) {
		rankings := svc.builder.InvestigatorRankings(svc.store.All(), graphFilters(c))
		c.JSON(http.StatusOK, gin.H{
			"investigators": rankings,
			"count":         len(rankings),
		})
	})

	r.GET("/network/sponsor/:name", func(c *gin.Context) {
		name := sm.SanitizeInput(c.Param("name"))
		if err := sm.ValidateInput(name); err != nil {
			appErr := errors.NewValidationError(err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		profile := svc.builder.SponsorProfile(svc.store.All(), name)
		if profile.TotalTrials == 0 {
			appErr := errors.NewNotFoundError("sponsor", name)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, profile)
	})

	r.GET("/analytics/summary", func(c *gin.Context) {
		filters := analytics.Filters{
			Phases:           c.QueryArray("phase"),
			Statuses:         c.QueryArray("status"),
			Countries:        c.QueryArray("country"),
			TherapeuticAreas: c.QueryArray("area"),
			Window:           c.Query("window"),
		}
		c.JSON(http.StatusOK, svc.analytics.Summarize(filters))
	})

	r.GET("/insights/emerging", func(c *gin.Context) {
		technologies := svc.classifier.EmergingTechnologies(svc.store.Interventional(), time.Now())
		c.JSON(http.StatusOK, gin.H{
			"technologies": technologies,
			"count":        len(technologies),
		})
	})

	r.POST("/insights/classify", func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid JSON format")
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		req.Text = sm.SanitizeInput(req.Text)
		if req.Text == "" {
			appErr := errors.NewValidationError("text field is required")
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		if err := sm.ValidateInput(req.Text); err != nil {
			appErr := errors.NewValidationError(err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, svc.classifier.Classify(req.Text))
	})

	return r
}

func sumValues(m map[string]float64) float64 {
	var total float64
	for _, v := range m {
		total += v
	}
	return total
}

// graphFilters extracts the shared network filter parameters.
func graphFilters(c *gin.Context) *network.Filters {
	return &network.Filters{
		Condition: c.Query("condition"),
		Phase:     c.Query("phase"),
		Country:   c.Query("country"),
		Timeframe: c.Query("timeframe"),
	}
}
