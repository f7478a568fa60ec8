package cluster

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/internal/handler"
	"github.com/gin-gonic/gin"
)

func NewHandler(clusterService Service) Handler {
	return Handler{clusterService}
}

type Handler struct {
	clusterService Service
}

type RegisterClusterRequest struct {
	Name                    string                `form:"name" binding:"required,dns1035"`
	KubernetesConfiguration *multipart.FileHeader `form:"kubernetesConfiguration" binding:"required"`
}

// Register Kubernetes cluster
func (h Handler) Register(c *gin.Context) {
	// swagger:route POST /kubernetes kubernetesClusterRegister
	//
	// Register Kubernetes cluster
	//
	// Register a Kubernetes cluster with the control plane using a kubeconfig
	//
	// responses:
	//   201:
	//   400: Error
	//   409: Error
	//   415: Error
	//   502: Error
	var request RegisterClusterRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	kubernetesConfiguration, err := h.getBytes(request.KubernetesConfiguration)
	if err != nil {
		_ = c.Error(err)
		return
	}

	err = h.clusterService.Register(c.Request.Context(), request.Name, kubernetesConfiguration)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusCreated)
}

// Unregister Kubernetes cluster
func (h Handler) Unregister(c *gin.Context) {
	// swagger:route DELETE /kubernetes/{kubernetesCluster} kubernetesClusterUnregister
	//
	// Unregister Kubernetes cluster
	//
	// Unregister a Kubernetes cluster. Clusters still hosting database clusters are only
	// unregistered when force is true.
	//
	// responses:
	//   202:
	//   400: Error
	//   404: Error
	//   409: Error
	//   502: Error
	name, ok := handler.GetNameParameter(c, "kubernetesCluster")
	if !ok {
		return
	}

	force := false
	if value := c.Query("force"); value != "" {
		var err error
		force, err = strconv.ParseBool(value)
		if err != nil {
			_ = c.Error(errdef.NewBadRequest("invalid force parameter %q", value))
			return
		}
	}

	err := h.clusterService.Unregister(c.Request.Context(), name, force)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusAccepted)
}

// FindAll Kubernetes clusters
func (h Handler) FindAll(c *gin.Context) {
	// swagger:route GET /kubernetes findAllKubernetesClusters
	//
	// Find all Kubernetes clusters
	//
	// Find all registered Kubernetes clusters including the status of their operators
	//
	// responses:
	//   200: KubernetesClusters
	//   502: Error
	clusters, err := h.clusterService.FindAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, clusters)
}

// Resources of a Kubernetes cluster
func (h Handler) Resources(c *gin.Context) {
	// swagger:route GET /kubernetes/{kubernetesCluster}/resources findKubernetesClusterResources
	//
	// Find allocated resources
	//
	// Find the total and allocated resources of a Kubernetes cluster
	//
	// responses:
	//   200: AllocatedResources
	//   400: Error
	//   404: Error
	//   502: Error
	name, ok := handler.GetNameParameter(c, "kubernetesCluster")
	if !ok {
		return
	}

	resources, err := h.clusterService.Resources(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resources)
}

// Usage of a Kubernetes cluster
func (h Handler) Usage(c *gin.Context) {
	// swagger:route GET /kubernetes/{kubernetesCluster}/usage findKubernetesClusterUsage
	//
	// Find resource usage
	//
	// Find the cpu and memory currently used by the nodes of a Kubernetes cluster
	//
	// responses:
	//   200: Usage
	//   400: Error
	//   404: Error
	//   502: Error
	name, ok := handler.GetNameParameter(c, "kubernetesCluster")
	if !ok {
		return
	}

	usage, err := h.clusterService.Usage(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, usage)
}

func (h Handler) getBytes(file *multipart.FileHeader) ([]byte, error) {
	if file == nil {
		return nil, nil
	}

	openedFile, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer openedFile.Close()

	bytes, err := io.ReadAll(openedFile)
	if err != nil {
		return nil, err
	}

	return bytes, nil
}
