package cluster

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	metrics "k8s.io/metrics/pkg/client/clientset/versioned"
)

// instanceLabel is set by the operators on every pod of a database cluster.
const instanceLabel = "app.kubernetes.io/instance"

const logTailLines = 1000

type Clients struct {
	Kubernetes kubernetes.Interface
	Metrics    metrics.Interface
}

// ResourceSource reads resources and logs straight from Kubernetes. Every context of the kubeconfig
// it's created from is a Kubernetes cluster named after the context.
type ResourceSource struct {
	logger  *slog.Logger
	clients map[string]Clients
}

func NewResourceSource(logger *slog.Logger, kubeconfig []byte) (*ResourceSource, error) {
	config, err := clientcmd.Load(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %v", err)
	}

	clients := make(map[string]Clients, len(config.Contexts))
	for name := range config.Contexts {
		restConfig, err := clientcmd.NewNonInteractiveClientConfig(*config, name, &clientcmd.ConfigOverrides{}, nil).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create client config for context %q: %v", name, err)
		}

		kubernetesClient, err := kubernetes.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kubernetes client for context %q: %v", name, err)
		}

		metricsClient, err := metrics.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics client for context %q: %v", name, err)
		}

		clients[name] = Clients{Kubernetes: kubernetesClient, Metrics: metricsClient}
	}

	return NewResourceSourceFromClients(logger, clients), nil
}

func NewResourceSourceFromClients(logger *slog.Logger, clients map[string]Clients) *ResourceSource {
	return &ResourceSource{logger: logger, clients: clients}
}

// Contexts returns the names of the Kubernetes clusters the source can read.
func (s *ResourceSource) Contexts() []string {
	contexts := maps.Keys(s.clients)
	slices.Sort(contexts)
	return contexts
}

func (s *ResourceSource) Has(kubernetesCluster string) bool {
	_, ok := s.clients[kubernetesCluster]
	return ok
}

func (s *ResourceSource) client(kubernetesCluster string) (Clients, error) {
	clients, ok := s.clients[kubernetesCluster]
	if !ok {
		return Clients{}, errdef.NewNotFound("no kubeconfig context for Kubernetes cluster %q", kubernetesCluster)
	}
	return clients, nil
}

// GetAllocatedResources sums the allocatable cpu, memory and ephemeral storage of all nodes as the
// total. Allocated cpu and memory are the requests of all pods still running or about to, allocated
// disk is the storage requested by all persistent volume claims.
func (s *ResourceSource) GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error) {
	clients, err := s.client(kubernetesCluster)
	if err != nil {
		return resource.Allocated{}, err
	}
	core := clients.Kubernetes.CoreV1()

	var nodes *v1.NodeList
	var pods *v1.PodList
	var claims *v1.PersistentVolumeClaimList
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, err = core.Nodes().List(ctx, metav1.ListOptions{})
		return err
	})
	g.Go(func() error {
		var err error
		pods, err = core.Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
		return err
	})
	g.Go(func() error {
		var err error
		claims, err = core.PersistentVolumeClaims(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
		return err
	})
	if err := g.Wait(); err != nil {
		return resource.Allocated{}, errdef.NewUnavailable("failed to list resources of %q: %v", kubernetesCluster, err)
	}

	var total, allocated resource.Raw
	for _, node := range nodes.Items {
		allocatable := node.Status.Allocatable
		total.CPUMilli += float64(allocatable.Cpu().MilliValue())
		total.MemoryBytes += float64(allocatable.Memory().Value())
		total.DiskBytes += float64(allocatable.StorageEphemeral().Value())
	}
	for _, pod := range pods.Items {
		if pod.Status.Phase == v1.PodSucceeded || pod.Status.Phase == v1.PodFailed {
			continue
		}
		for _, container := range pod.Spec.Containers {
			requests := container.Resources.Requests
			allocated.CPUMilli += float64(requests.Cpu().MilliValue())
			allocated.MemoryBytes += float64(requests.Memory().Value())
		}
	}
	for _, claim := range claims.Items {
		allocated.DiskBytes += float64(claim.Spec.Resources.Requests.Storage().Value())
	}

	s.logger.DebugContext(ctx, "Allocated resources read from Kubernetes", "kubernetesCluster", kubernetesCluster, "nodes", len(nodes.Items), "pods", len(pods.Items), "claims", len(claims.Items))
	return resource.NewAllocated(total, allocated), nil
}

// Usage returns the cpu and memory currently used by all nodes as reported by the metrics API.
// Disk isn't reported.
func (s *ResourceSource) Usage(ctx context.Context, kubernetesCluster string) (resource.Resources, error) {
	clients, err := s.client(kubernetesCluster)
	if err != nil {
		return resource.Resources{}, err
	}

	nodeMetrics, err := clients.Metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return resource.Resources{}, errdef.NewUnavailable("failed to read node metrics of %q: %v", kubernetesCluster, err)
	}

	var usage resource.Raw
	for _, node := range nodeMetrics.Items {
		usage.CPUMilli += float64(node.Usage.Cpu().MilliValue())
		usage.MemoryBytes += float64(node.Usage.Memory().Value())
	}

	resources := usage.Resources()
	resources.Disk = nil
	return resources, nil
}

// GetClusterLogs returns the tail of every container's log and the events of every pod belonging to
// the database cluster.
func (s *ResourceSource) GetClusterLogs(ctx context.Context, cluster model.DBCluster) (model.ClusterLogs, error) {
	clients, err := s.client(cluster.KubernetesClusterName)
	if err != nil {
		return model.ClusterLogs{}, err
	}
	core := clients.Kubernetes.CoreV1()

	pods, err := core.Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", instanceLabel, cluster.ClusterName),
	})
	if err != nil {
		return model.ClusterLogs{}, errdef.NewUnavailable("failed to list pods of %q: %v", cluster.ClusterName, err)
	}
	slices.SortFunc(pods.Items, func(a, b v1.Pod) int {
		return strings.Compare(a.Name, b.Name)
	})

	logs := model.ClusterLogs{Pods: make([]model.PodLogs, 0, len(pods.Items))}
	for _, pod := range pods.Items {
		podLogs := model.PodLogs{Name: pod.Name, Containers: make([]model.ContainerLogs, 0, len(pod.Spec.Containers))}

		events, err := core.Events(pod.Namespace).List(ctx, metav1.ListOptions{
			FieldSelector: "involvedObject.name=" + pod.Name,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to list pod events", "pod", pod.Name, "namespace", pod.Namespace, "error", err)
		} else {
			for _, e := range events.Items {
				if e.InvolvedObject.Name != pod.Name {
					continue
				}
				podLogs.Events = append(podLogs.Events, fmt.Sprintf("%s %s: %s", e.Type, e.Reason, e.Message))
			}
		}

		for _, container := range pod.Spec.Containers {
			lines, err := s.containerLogs(ctx, clients.Kubernetes, pod, container.Name)
			if err != nil {
				s.logger.WarnContext(ctx, "Failed to read container logs", "pod", pod.Name, "container", container.Name, "error", err)
				lines = []string{}
			}
			podLogs.Containers = append(podLogs.Containers, model.ContainerLogs{Name: container.Name, Lines: lines})
		}

		logs.Pods = append(logs.Pods, podLogs)
	}

	return logs, nil
}

func (s *ResourceSource) containerLogs(ctx context.Context, client kubernetes.Interface, pod v1.Pod, container string) ([]string, error) {
	tail := int64(logTailLines)
	stream, err := client.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, &v1.PodLogOptions{
		Container: container,
		TailLines: &tail,
	}).Stream(ctx)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	lines := []string{}
	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
