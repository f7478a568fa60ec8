package event

import (
	"context"
	"io"
	"log/slog"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func NewHandler(logger *slog.Logger, broker broker) Handler {
	return Handler{logger, broker}
}

type Handler struct {
	logger *slog.Logger
	broker broker
}

type broker interface {
	Subscribe(id string)
	Unsubscribe(id string)
	Receive(ctx context.Context, id string) (Event, bool)
}

// Stream events
func (h Handler) Stream(c *gin.Context) {
	// swagger:route GET /events streamSSE
	//
	// Stream events
	//
	// Stream notifications and refresh events. Refresh events can be limited to a single Kubernetes
	// cluster using the kubernetesCluster query parameter.
	//
	// responses:
	//   200: Stream
	id := uuid.NewString()
	kubernetesCluster := c.Query("kubernetesCluster")
	ctx := c.Request.Context()

	h.broker.Subscribe(id)
	defer func() {
		h.broker.Unsubscribe(id)
		h.logger.InfoContext(ctx, "Closing event stream", "subscriber", id)
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")

	c.Stream(func(w io.Writer) bool {
		event, ok := h.broker.Receive(ctx, id)
		if !ok {
			return false
		}
		if !wanted(event, kubernetesCluster) {
			return true
		}
		c.Render(-1, sse.Event{
			Id:    uuid.NewString(),
			Event: string(event.Type),
			Data:  event,
		})
		return true
	})
}

func wanted(event Event, kubernetesCluster string) bool {
	return kubernetesCluster == "" || event.Type != TypeRefresh || event.KubernetesCluster == kubernetesCluster
}
