package synapse

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/synapsehq/synapse/pkg/logger"
)

// debugRouter builds the diagnostic surface: liveness, counters and
// pprof profiling.
func debugRouter(rt *Runtime) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	pprof.Register(r)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"backend": string(rt.DBType),
		})
	})
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, rt.Stats.Snapshot())
	})
	return r
}

// serveDebug runs the debug listener on addr. It never touches stdout so
// the MCP stream stays clean.
func serveDebug(addr string, rt *Runtime) {
	logger.Infof("debug listener on %s", addr)
	if err := debugRouter(rt).Run(addr); err != nil {
		logger.Errorf("debug listener stopped: %v", err)
	}
}
