package session

import (
	"net/http"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/internal/handler"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/poll"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func NewHandler(registry *Registry) Handler {
	return Handler{registry}
}

type Handler struct {
	registry *Registry
}

// ConfigurationRequest is the cluster form as it's being filled in. Unlike a create or update
// request nothing but the shape of the fields is validated.
type ConfigurationRequest struct {
	ClusterName             string          `json:"clusterName"`
	TargetKubernetesCluster string          `json:"targetKubernetesCluster" binding:"omitempty,dns1035"`
	DatabaseEngine          model.Engine    `json:"databaseEngine" binding:"omitempty,oneof=mysql mongodb"`
	NodeCount               int             `json:"nodeCount" binding:"gte=0"`
	CPU                     float64         `json:"cpu" binding:"gte=0"`
	MemoryGB                float64         `json:"memoryGB" binding:"gte=0"`
	DiskGB                  float64         `json:"diskGB" binding:"gte=0"`
	ExposeExternally        bool            `json:"exposeExternally"`
	SourceIPRanges          []string        `json:"sourceIPRanges"`
	EngineConfigText        string          `json:"engineConfigText"`
	StorageClassName        string          `json:"storageClassName"`
	Template                *model.Template `json:"template,omitempty"`
}

func (r ConfigurationRequest) config() model.ClusterConfig {
	return model.ClusterConfig{
		ClusterName:             r.ClusterName,
		TargetKubernetesCluster: r.TargetKubernetesCluster,
		DatabaseEngine:          r.DatabaseEngine,
		NodeCount:               r.NodeCount,
		CPU:                     r.CPU,
		MemoryGB:                r.MemoryGB,
		DiskGB:                  r.DiskGB,
		ExposeExternally:        r.ExposeExternally,
		SourceIPRanges:          r.SourceIPRanges,
		EngineConfigText:        r.EngineConfigText,
		StorageClassName:        r.StorageClassName,
		Template:                r.Template,
	}
}

type OpenSessionRequest struct {
	Mode          poll.Mode            `json:"mode" binding:"required,oneof=create edit"`
	Configuration ConfigurationRequest `json:"configuration"`
}

// Open session
func (h Handler) Open(c *gin.Context) {
	// swagger:route POST /sessions openSession
	//
	// Open session
	//
	// Open a resource session for a cluster form. Sessions in edit mode report expected resources
	// relative to the initial configuration.
	//
	// responses:
	//   201: Session
	//   400: Error
	//   415: Error
	var request OpenSessionRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	session, err := h.registry.Open(request.Mode, request.Configuration.config())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, session.View())
}

// Find session
func (h Handler) Find(c *gin.Context) {
	// swagger:route GET /sessions/{id} findSession
	//
	// Find session
	//
	// Find a session by its id including its latest resource bars
	//
	// responses:
	//   200: Session
	//   400: Error
	//   404: Error
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, session.View())
}

// Configure session
func (h Handler) Configure(c *gin.Context) {
	// swagger:route PUT /sessions/{id}/configuration configureSession
	//
	// Configure session
	//
	// Replace the configuration of a session. Expected resources are refreshed once changes settle.
	//
	// responses:
	//   200: Session
	//   400: Error
	//   404: Error
	//   409: Error
	//   415: Error
	session, ok := h.session(c)
	if !ok {
		return
	}

	var request ConfigurationRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	if err := session.Configure(request.config()); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session.View())
}

type TargetRequest struct {
	KubernetesCluster string `json:"kubernetesCluster" binding:"required,dns1035"`
}

// Set session target
func (h Handler) SetTarget(c *gin.Context) {
	// swagger:route PUT /sessions/{id}/target setSessionTarget
	//
	// Set session target
	//
	// Point a session at another Kubernetes cluster. Allocated resources are polled from the new
	// cluster right away.
	//
	// responses:
	//   200: Session
	//   400: Error
	//   404: Error
	//   409: Error
	//   415: Error
	session, ok := h.session(c)
	if !ok {
		return
	}

	var request TargetRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	if err := session.SetTarget(request.KubernetesCluster); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session.View())
}

// Close session
func (h Handler) Close(c *gin.Context) {
	// swagger:route DELETE /sessions/{id} closeSession
	//
	// Close session
	//
	// Close a session and stop polling
	//
	// responses:
	//   204:
	//   400: Error
	//   404: Error
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.registry.Close(id); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h Handler) session(c *gin.Context) (*Session, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, false
	}

	session, err := h.registry.Get(id)
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	return session, true
}

func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		_ = c.Error(errdef.NewBadRequest("invalid session id %q", id))
		return "", false
	}
	return id, true
}
