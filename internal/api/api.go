// Package api exposes a small read-only HTTP surface over the running
// engine: liveness, paper-trading summary and the live opportunity feed.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/config"
	"github.com/mtkach/arbscout/internal/market"
	"github.com/mtkach/arbscout/internal/models"
	"github.com/mtkach/arbscout/internal/paper"
)

// LiveFeed is the tracker's read side.
type LiveFeed interface {
	Live() []models.Opportunity
	Count() int
}

// TradeBook is the paper trader's read side.
type TradeBook interface {
	Summary() paper.Summary
	ActiveCount() int
}

// NewRouter wires the routes. All endpoints are reads; nothing here mutates
// engine state.
func NewRouter(cfg *config.Config, cache *market.Cache, trades TradeBook, feed LiveFeed, logger *logrus.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"symbols":   cache.Len(),
			"timestamp": time.Now().UTC(),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/summary", func(c *gin.Context) {
			summary := trades.Summary()
			c.JSON(http.StatusOK, gin.H{
				"total_usdt":    summary.TotalUSDT,
				"active_trades": summary.ActiveTrades,
				"balances":      summary.Balances,
				"tracked":       feed.Count(),
			})
		})

		v1.GET("/opportunities", func(c *gin.Context) {
			live := feed.Live()
			c.JSON(http.StatusOK, gin.H{
				"count":         len(live),
				"opportunities": live,
			})
		})
	}

	return router
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	log := logger.WithField("component", "api")
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed_ms": time.Since(started).Milliseconds(),
		}).Debug("Request handled")
	}
}
