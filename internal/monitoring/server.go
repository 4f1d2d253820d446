package monitoring

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter serves the monitor over HTTP:
//
//	GET /metrics      Prometheus exposition
//	GET /api/metrics  JSON snapshot
//	GET /healthz      liveness
func NewRouter(m *Monitor) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	router.GET("/api/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, m.GetMetrics())
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// NewServer wraps the router in an http.Server listening on addr
func NewServer(addr string, m *Monitor) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: NewRouter(m),
	}
}
