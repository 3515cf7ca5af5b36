// Receiver is the Glue Layer (L0) HTTP endpoint logic in Go: a small
// gin-gonic handler that validates the inter-cloud bearer token and
// forwards the payload to whatever this layer does with it locally
// (persist, move, read). The strategies in
// internal/strategy/{aws,azure,gcp} do not bundle this file: their
// Strategy.DeployGlueReceiver applies the terraform/<provider>/l0_<boundary>
// module instead.
//
// Grounded on the wire format described for inter-cloud delivery (HTTP
// POST, JSON body, X-Inter-Cloud-Token header) and the teacher's
// gin-gonic route setup in internal/api/server.go.
package glue

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// Forwarder is whatever a receiver does with a validated payload:
// write to DynamoDB/Cosmos/Firestore, move an object between storage
// tiers, or hand telemetry to the Twin Management layer.
type Forwarder func(body []byte) error

// Receiver is one deployed L0 endpoint.
type Receiver struct {
	Token     string
	Forward   Forwarder
}

// Handler builds the gin.Engine this receiver runs as its entire
// process — the same engine shape regardless of which provider's
// serverless runtime invokes it.
func (r *Receiver) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.POST("/", r.handle)

	// Senders run in a different cloud account entirely; there is no
	// same-origin relationship to enforce here.
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST"},
		AllowedHeaders: []string{"Content-Type", "X-Inter-Cloud-Token"},
	}).Handler(engine)
}

func (r *Receiver) handle(c *gin.Context) {
	if c.GetHeader("X-Inter-Cloud-Token") != r.Token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid inter-cloud token"})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if err := r.Forward(body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
