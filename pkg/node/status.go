package node

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/dsql/pkg/logging"
	"github.com/DeBrosOfficial/dsql/pkg/protocol"
)

// statusPayload is the JSON body of the status endpoint.
type statusPayload struct {
	NodeID      string                `json:"node_id"`
	Leader      string                `json:"leader"`
	Servers     []protocol.ServerInfo `json:"servers"`
	Connections int                   `json:"connections"`
	Databases   int                   `json:"databases"`
}

// startStatus serves the observability endpoint.
func (n *Node) startStatus() {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		servers, _ := n.cluster.Servers()
		payload := statusPayload{
			NodeID:      n.config.Node.ID,
			Leader:      n.cluster.Leader(),
			Servers:     servers,
			Connections: n.server.ConnCount(),
			Databases:   n.cluster.Connections(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			n.logger.ComponentDebug(logging.ComponentNode, "Status encode failed", zap.Error(err))
		}
	})

	router.Get("/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	n.status = &http.Server{
		Addr:              n.config.Node.StatusAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := n.status.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.logger.ComponentError(logging.ComponentNode, "Status endpoint stopped", zap.Error(err))
		}
	}()
}
