package dbcluster

import (
	"context"
	"net/http"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/internal/handler"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/status"
	"github.com/gin-gonic/gin"
)

func NewHandler(service *Service, orchestrator *Orchestrator) Handler {
	return Handler{service, orchestrator}
}

type Handler struct {
	service      *Service
	orchestrator *Orchestrator
}

// FindAll clusters of a Kubernetes cluster
func (h Handler) FindAll(c *gin.Context) {
	// swagger:route GET /kubernetes/{kubernetesCluster}/clusters findAllDBClusters
	//
	// Find all database clusters
	//
	// Find all database clusters of a Kubernetes cluster including their display status and the
	// actions currently available
	//
	// responses:
	//   200: DBClusters
	//   400: Error
	//   404: Error
	//   502: Error
	kubernetesCluster, ok := handler.GetNameParameter(c, "kubernetesCluster")
	if !ok {
		return
	}

	rows, err := h.service.List(c.Request.Context(), kubernetesCluster)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Create cluster
func (h Handler) Create(c *gin.Context) {
	// swagger:route POST /kubernetes/{kubernetesCluster}/clusters createDBCluster
	//
	// Create database cluster
	//
	// Create a database cluster. The returned operation state tells whether the control plane
	// accepted the request, provisioning continues in the background.
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   415: Error
	//   502: OperationState
	kubernetesCluster, ok := handler.GetNameParameter(c, "kubernetesCluster")
	if !ok {
		return
	}

	var config model.ClusterConfig
	if err := handler.DataBinder(c, &config); err != nil {
		_ = c.Error(err)
		return
	}
	if config.TargetKubernetesCluster != kubernetesCluster {
		_ = c.Error(errdef.NewBadRequest("target Kubernetes cluster %q doesn't match %q", config.TargetKubernetesCluster, kubernetesCluster))
		return
	}

	respond(c, h.orchestrator.Create(c.Request.Context(), config))
}

type UpdateClusterRequest struct {
	NodeCount        int      `json:"nodeCount" binding:"required,gt=0,clustersize"`
	CPU              float64  `json:"cpu" binding:"required,gt=0"`
	MemoryGB         float64  `json:"memoryGB" binding:"required,gt=0"`
	DiskGB           float64  `json:"diskGB" binding:"required,gt=0"`
	ExposeExternally bool     `json:"exposeExternally"`
	SourceIPRanges   []string `json:"sourceIPRanges" binding:"omitempty,dive,cidr"`
	EngineConfigText string   `json:"engineConfigText"`
	StorageClassName string   `json:"storageClassName"`
}

// Update cluster
func (h Handler) Update(c *gin.Context) {
	// swagger:route PUT /kubernetes/{kubernetesCluster}/clusters/{name} updateDBCluster
	//
	// Update database cluster
	//
	// Change the size and configuration of a ready database cluster
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   404: Error
	//   409: Error
	//   415: Error
	//   502: OperationState
	cluster, ok := h.cluster(c, status.ActionEdit)
	if !ok {
		return
	}

	var request UpdateClusterRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}
	if request.NodeCount == 2 && cluster.DatabaseType.QuorumBased() {
		_ = c.Error(errdef.NewBadRequest("%s clusters can only have 1, 3 or more nodes", cluster.DatabaseType))
		return
	}

	config := model.ClusterConfig{
		NodeCount:        request.NodeCount,
		CPU:              request.CPU,
		MemoryGB:         request.MemoryGB,
		DiskGB:           request.DiskGB,
		ExposeExternally: request.ExposeExternally,
		SourceIPRanges:   request.SourceIPRanges,
		EngineConfigText: request.EngineConfigText,
		StorageClassName: request.StorageClassName,
		Template:         cluster.Template,
	}
	state, _ := h.orchestrator.Update(c.Request.Context(), &cluster, config)
	respond(c, state)
}

// Delete cluster
func (h Handler) Delete(c *gin.Context) {
	// swagger:route DELETE /kubernetes/{kubernetesCluster}/clusters/{name} deleteDBCluster
	//
	// Delete database cluster
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: OperationState
	h.mutate(c, status.ActionDelete, h.orchestrator.Delete)
}

// Restart cluster
func (h Handler) Restart(c *gin.Context) {
	// swagger:route PUT /kubernetes/{kubernetesCluster}/clusters/{name}/restart restartDBCluster
	//
	// Restart database cluster
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: OperationState
	h.mutate(c, status.ActionRestart, h.orchestrator.Restart)
}

// Suspend cluster
func (h Handler) Suspend(c *gin.Context) {
	// swagger:route PUT /kubernetes/{kubernetesCluster}/clusters/{name}/suspend suspendDBCluster
	//
	// Suspend database cluster
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: OperationState
	h.mutate(c, status.ActionSuspend, h.orchestrator.Suspend)
}

// Resume cluster
func (h Handler) Resume(c *gin.Context) {
	// swagger:route PUT /kubernetes/{kubernetesCluster}/clusters/{name}/resume resumeDBCluster
	//
	// Resume database cluster
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: OperationState
	h.mutate(c, status.ActionResume, h.orchestrator.Resume)
}

// Upgrade cluster
func (h Handler) Upgrade(c *gin.Context) {
	// swagger:route PUT /kubernetes/{kubernetesCluster}/clusters/{name}/upgrade upgradeDBCluster
	//
	// Upgrade database cluster
	//
	// Upgrade a database cluster to the image offered by the control plane
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: OperationState
	h.mutate(c, status.ActionUpdate, h.orchestrator.Upgrade)
}

// ToggleSuspension suspends a ready cluster and resumes a suspended one
func (h Handler) ToggleSuspension(c *gin.Context) {
	// swagger:route PUT /kubernetes/{kubernetesCluster}/clusters/{name}/suspension toggleDBClusterSuspension
	//
	// Suspend or resume database cluster
	//
	// Suspend a ready database cluster or resume a suspended one
	//
	// responses:
	//   202: OperationState
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: OperationState
	cluster, ok := h.cluster(c, "")
	if !ok {
		return
	}

	state, ok := h.orchestrator.SuspendOrResume(c.Request.Context(), &cluster)
	if !ok {
		_ = c.Error(errdef.NewConflict("cluster %q can't be suspended or resumed while it's %s", cluster.ClusterName, cluster.Status))
		return
	}
	respond(c, state)
}

// Credentials of a cluster
func (h Handler) Credentials(c *gin.Context) {
	// swagger:route GET /kubernetes/{kubernetesCluster}/clusters/{name}/credentials findDBClusterCredentials
	//
	// Find database cluster credentials
	//
	// Find the connection credentials of a ready database cluster
	//
	// responses:
	//   200: Credentials
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: Error
	kubernetesCluster, name, ok := names(c)
	if !ok {
		return
	}

	credentials, err := h.service.Credentials(c.Request.Context(), kubernetesCluster, name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, credentials)
}

// Logs of a cluster
func (h Handler) Logs(c *gin.Context) {
	// swagger:route GET /kubernetes/{kubernetesCluster}/clusters/{name}/logs findDBClusterLogs
	//
	// Find database cluster logs
	//
	// Find the logs of every container and the events of every pod of a database cluster
	//
	// responses:
	//   200: ClusterLogs
	//   400: Error
	//   404: Error
	//   502: Error
	kubernetesCluster, name, ok := names(c)
	if !ok {
		return
	}

	logs, err := h.service.Logs(c.Request.Context(), kubernetesCluster, name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

// Operations lists the state of cluster operations
func (h Handler) Operations(c *gin.Context) {
	// swagger:route GET /operations findAllOperations
	//
	// Find all operations
	//
	// Find the state of the latest run of every cluster operation, optionally limited to a single
	// Kubernetes cluster using the kubernetesCluster query parameter
	//
	// responses:
	//   200: OperationStates
	c.JSON(http.StatusOK, h.orchestrator.States(c.Query("kubernetesCluster")))
}

func (h Handler) mutate(c *gin.Context, action status.Action, operation func(context.Context, *model.DBCluster) (State, bool)) {
	cluster, ok := h.cluster(c, action)
	if !ok {
		return
	}

	state, _ := operation(c.Request.Context(), &cluster)
	respond(c, state)
}

// cluster finds the cluster named in the path and checks action is available for it. An empty
// action skips the check.
func (h Handler) cluster(c *gin.Context, action status.Action) (model.DBCluster, bool) {
	kubernetesCluster, name, ok := names(c)
	if !ok {
		return model.DBCluster{}, false
	}

	cluster, err := h.service.Find(c.Request.Context(), kubernetesCluster, name)
	if err != nil {
		_ = c.Error(err)
		return model.DBCluster{}, false
	}

	if action != "" {
		if err := Allowed(cluster, action); err != nil {
			_ = c.Error(err)
			return model.DBCluster{}, false
		}
	}
	return cluster, true
}

func names(c *gin.Context) (string, string, bool) {
	kubernetesCluster, ok := handler.GetNameParameter(c, "kubernetesCluster")
	if !ok {
		return "", "", false
	}
	name, ok := handler.GetNameParameter(c, "name")
	if !ok {
		return "", "", false
	}
	return kubernetesCluster, name, true
}

func respond(c *gin.Context, state State) {
	if state.Result == ResultError {
		c.JSON(http.StatusBadGateway, state)
		return
	}
	c.JSON(http.StatusAccepted, state)
}
