package healthz

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LivenessHandler reports whether the process is able to serve requests.
// Identity-provider connectivity is deliberately not probed here, a provider
// outage must not restart the gateway.
func LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"liveness": "OK"})
}
