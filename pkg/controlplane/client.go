package controlplane

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
	"github.com/go-openapi/runtime"
	httptransport "github.com/go-openapi/runtime/client"
	"github.com/go-openapi/strfmt"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const managementPath = "/v1/management/DBaaS"

// Client is the DBaaS management API client. Every call is a JSON POST.
type Client struct {
	transport *httptransport.Runtime
	scheme    string
	timeout   time.Duration
}

// NewClient creates a client for the management API at baseURL. An empty token disables
// authentication. timeout bounds every call that doesn't carry its own deadline.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse control plane url: %v", err)
	}
	if u.Host == "" || u.Scheme == "" {
		return nil, fmt.Errorf("control plane url must be absolute: %q", baseURL)
	}

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	transport := httptransport.NewWithClient(u.Host, u.Path, []string{u.Scheme}, httpClient)
	if token != "" {
		transport.DefaultAuthentication = httptransport.BearerToken(token)
	}

	return &Client{transport: transport, scheme: u.Scheme, timeout: timeout}, nil
}

func (c *Client) ListKubernetesClusters(ctx context.Context) ([]model.KubernetesCluster, error) {
	var response listKubernetesClustersResponse
	if err := c.post(ctx, "ListKubernetesClusters", "/Kubernetes/List", struct{}{}, &response); err != nil {
		return nil, err
	}

	clusters := make([]model.KubernetesCluster, 0, len(response.KubernetesClusters))
	for _, cluster := range response.KubernetesClusters {
		clusters = append(clusters, kubernetesClusterToModel(cluster))
	}
	return clusters, nil
}

func (c *Client) RegisterKubernetesCluster(ctx context.Context, name string, kubeconfig []byte) error {
	request := registerRequest{
		KubernetesClusterName: name,
		KubeAuth:              kubeAuth{Kubeconfig: string(kubeconfig)},
	}
	return c.post(ctx, "RegisterKubernetesCluster", "/Kubernetes/Register", request, nil)
}

func (c *Client) UnregisterKubernetesCluster(ctx context.Context, name string, force bool) error {
	request := unregisterRequest{KubernetesClusterName: name, Force: force}
	return c.post(ctx, "UnregisterKubernetesCluster", "/Kubernetes/Unregister", request, nil)
}

func (c *Client) ListClusters(ctx context.Context, kubernetesCluster string) ([]model.DBCluster, error) {
	var response listClustersResponse
	request := kubernetesClusterRequest{KubernetesClusterName: kubernetesCluster}
	if err := c.post(ctx, "ListDBClusters", "/DBClusters/List", request, &response); err != nil {
		return nil, err
	}

	clusters := make([]model.DBCluster, 0, len(response.PXCClusters)+len(response.PSMDBClusters))
	for _, cluster := range response.PXCClusters {
		clusters = append(clusters, pxcToModel(kubernetesCluster, cluster))
	}
	for _, cluster := range response.PSMDBClusters {
		clusters = append(clusters, psmdbToModel(kubernetesCluster, cluster))
	}
	return clusters, nil
}

func (c *Client) GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error) {
	var response allocatedResourcesResponse
	request := kubernetesClusterRequest{KubernetesClusterName: kubernetesCluster}
	if err := c.post(ctx, "GetResources", "/Kubernetes/Resources/Get", request, &response); err != nil {
		return resource.Allocated{}, err
	}
	return allocatedToModel(response), nil
}

func (c *Client) GetExpectedResources(ctx context.Context, config model.ClusterConfig) (resource.Expected, error) {
	var response expectedResourcesResponse

	var err error
	switch params := config.Params().(type) {
	case model.PXCParams:
		err = c.post(ctx, "GetPXCClusterResources", "/PXCCluster/Resources/Get", expectedPXCRequest{Params: pxcParamsToWire(params)}, &response)
	case model.PSMDBParams:
		err = c.post(ctx, "GetPSMDBClusterResources", "/PSMDBCluster/Resources/Get", expectedPSMDBRequest{Params: psmdbParamsToWire(params)}, &response)
	default:
		err = errdef.NewBadRequest("unsupported database engine: %q", config.DatabaseEngine)
	}
	if err != nil {
		return resource.Expected{}, err
	}

	return resource.Expected{Expected: response.Expected.raw().Resources()}, nil
}

func (c *Client) CreateCluster(ctx context.Context, config model.ClusterConfig) error {
	switch params := config.Params().(type) {
	case model.PXCParams:
		request := createPXCRequest{
			KubernetesClusterName: config.TargetKubernetesCluster,
			Name:                  config.ClusterName,
			Params:                pxcParamsToWire(params),
			Expose:                config.ExposeExternally,
			StorageClass:          config.StorageClassName,
			SourceRanges:          config.SourceIPRanges,
			Template:              templateToWire(config.Template),
		}
		return c.post(ctx, "CreatePXCCluster", "/PXCCluster/Create", request, nil)
	case model.PSMDBParams:
		request := createPSMDBRequest{
			KubernetesClusterName: config.TargetKubernetesCluster,
			Name:                  config.ClusterName,
			Params:                psmdbParamsToWire(params),
			Expose:                config.ExposeExternally,
			StorageClass:          config.StorageClassName,
			SourceRanges:          config.SourceIPRanges,
			Template:              templateToWire(config.Template),
		}
		return c.post(ctx, "CreatePSMDBCluster", "/PSMDBCluster/Create", request, nil)
	}
	return errdef.NewBadRequest("unsupported database engine: %q", config.DatabaseEngine)
}

func (c *Client) UpdateCluster(ctx context.Context, config model.ClusterConfig) error {
	api, err := apiOf(config.DatabaseEngine)
	if err != nil {
		return err
	}

	params, err := updateParamsToWire(config.Params())
	if err != nil {
		return err
	}

	return c.update(ctx, api, config.TargetKubernetesCluster, config.ClusterName, params)
}

func (c *Client) DeleteCluster(ctx context.Context, cluster model.DBCluster) error {
	return c.typed(ctx, "DeleteDBCluster", "/DBClusters/Delete", cluster)
}

func (c *Client) RestartCluster(ctx context.Context, cluster model.DBCluster) error {
	return c.typed(ctx, "RestartDBCluster", "/DBClusters/Restart", cluster)
}

func (c *Client) SuspendCluster(ctx context.Context, cluster model.DBCluster) error {
	api, err := apiOf(cluster.DatabaseType)
	if err != nil {
		return err
	}
	return c.update(ctx, api, cluster.KubernetesClusterName, cluster.ClusterName, updateParams{Suspend: true})
}

func (c *Client) ResumeCluster(ctx context.Context, cluster model.DBCluster) error {
	api, err := apiOf(cluster.DatabaseType)
	if err != nil {
		return err
	}
	return c.update(ctx, api, cluster.KubernetesClusterName, cluster.ClusterName, updateParams{Resume: true})
}

// UpgradeCluster updates the cluster to its available image.
func (c *Client) UpgradeCluster(ctx context.Context, cluster model.DBCluster) error {
	if !cluster.UpgradeAvailable() {
		return errdef.NewConflict("no upgrade available for cluster %q", cluster.ClusterName)
	}

	api, err := apiOf(cluster.DatabaseType)
	if err != nil {
		return err
	}

	params, err := upgradeParamsToWire(cluster)
	if err != nil {
		return err
	}
	return c.update(ctx, api, cluster.KubernetesClusterName, cluster.ClusterName, params)
}

func (c *Client) GetClusterCredentials(ctx context.Context, cluster model.DBCluster) (model.Credentials, error) {
	api, err := apiOf(cluster.DatabaseType)
	if err != nil {
		return model.Credentials{}, err
	}

	var response credentialsResponse
	request := clusterRequest{KubernetesClusterName: cluster.KubernetesClusterName, Name: cluster.ClusterName}
	if err := c.post(ctx, "Get"+api.clusters+"Credentials", "/"+api.clusters+"/GetCredentials", request, &response); err != nil {
		return model.Credentials{}, err
	}

	credentials := response.ConnectionCredentials
	return model.Credentials{
		Host:     credentials.Host,
		Port:     credentials.Port,
		Username: credentials.Username,
		Password: credentials.Password,
	}, nil
}

func (c *Client) GetClusterLogs(ctx context.Context, cluster model.DBCluster) (model.ClusterLogs, error) {
	var response logsResponse
	request := logsRequest{KubernetesClusterName: cluster.KubernetesClusterName, ClusterName: cluster.ClusterName}
	if err := c.post(ctx, "GetLogs", "/GetLogs", request, &response); err != nil {
		return model.ClusterLogs{}, err
	}
	return logsToModel(response.Logs), nil
}

func (c *Client) update(ctx context.Context, api engineAPI, kubernetesCluster, name string, params updateParams) error {
	request := updateRequest{KubernetesClusterName: kubernetesCluster, Name: name, Params: params}
	return c.post(ctx, "Update"+api.cluster, "/"+api.cluster+"/Update", request, nil)
}

func (c *Client) typed(ctx context.Context, id, path string, cluster model.DBCluster) error {
	api, err := apiOf(cluster.DatabaseType)
	if err != nil {
		return err
	}

	request := typedClusterRequest{
		KubernetesClusterName: cluster.KubernetesClusterName,
		Name:                  cluster.ClusterName,
		ClusterType:           api.clusterType,
	}
	return c.post(ctx, id, path, request, nil)
}

// post submits body to the management endpoint at path and decodes a successful response into
// out, unless out is nil.
func (c *Client) post(ctx context.Context, id, path string, body, out any) error {
	_, err := c.transport.Submit(&runtime.ClientOperation{
		ID:                 id,
		Method:             http.MethodPost,
		PathPattern:        managementPath + path,
		ProducesMediaTypes: []string{runtime.JSONMime},
		ConsumesMediaTypes: []string{runtime.JSONMime},
		Schemes:            []string{c.scheme},
		Params: runtime.ClientRequestWriterFunc(func(r runtime.ClientRequest, _ strfmt.Registry) error {
			if c.timeout > 0 {
				if err := r.SetTimeout(c.timeout); err != nil {
					return err
				}
			}
			return r.SetBodyParam(body)
		}),
		Reader: runtime.ClientResponseReaderFunc(func(response runtime.ClientResponse, consumer runtime.Consumer) (any, error) {
			if response.Code() < 200 || response.Code() > 299 {
				return nil, responseError(id, response, consumer)
			}
			if out == nil {
				return nil, nil
			}
			if err := consumer.Consume(response.Body(), out); err != nil {
				return nil, errdef.NewUnavailable("failed to decode %s response: %v", id, err)
			}
			return out, nil
		}),
		Context: ctx,
	})
	if err != nil {
		if classified(err) {
			return err
		}
		return errdef.NewUnavailable("control plane %s request failed: %v", id, err)
	}
	return nil
}

func responseError(id string, response runtime.ClientResponse, consumer runtime.Consumer) error {
	message := response.Message()
	var body errorResponse
	if err := consumer.Consume(response.Body(), &body); err == nil && body.Message != "" {
		message = body.Message
	}

	switch response.Code() {
	case http.StatusBadRequest:
		return errdef.NewBadRequest("%s: %s", id, message)
	case http.StatusNotFound:
		return errdef.NewNotFound("%s: %s", id, message)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return errdef.NewConflict("%s: %s", id, message)
	}
	return errdef.NewUnavailable("%s failed with status %d: %s", id, response.Code(), message)
}

func classified(err error) bool {
	return errdef.IsBadRequest(err) || errdef.IsNotFound(err) || errdef.IsConflict(err) || errdef.IsUnavailable(err)
}
