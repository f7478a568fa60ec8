// Package cluster manages the Kubernetes clusters database clusters are deployed to.
//
// This package implements:
// - Listing, registering and unregistering Kubernetes clusters with the control plane
// - Reading allocated resources, usage and logs straight from Kubernetes using a kubeconfig
//
// The package follows a layered architecture with:
// - Handler: HTTP request/response handling
// - Service: Business logic
// - ResourceSource: Kubernetes access
//
// swagger:meta
package cluster

import "github.com/dhis2-sre/im-dbaas/pkg/resource"

// swagger:response KubernetesClusters
type _ struct {
	// List of Kubernetes clusters
	// in: body
	Body []Row
}

// swagger:response AllocatedResources
type _ struct {
	// in: body
	Body resource.Allocated
}

// swagger:response Usage
type _ struct {
	// in: body
	Body resource.Resources
}

// swagger:parameters kubernetesClusterRegister
type _ struct {
	// The name of the Kubernetes cluster
	// in: formData
	// required: true
	// example: production
	Name string `json:"name"`

	// The Kubernetes configuration file (kubeconfig)
	// in: formData
	// required: true
	// swagger:file
	KubernetesConfiguration []byte `json:"kubernetesConfiguration"`
}

// swagger:parameters kubernetesClusterUnregister findKubernetesClusterResources findKubernetesClusterUsage
type _ struct {
	// The name of the Kubernetes cluster
	// in: path
	// required: true
	KubernetesCluster string `json:"kubernetesCluster"`
}

// swagger:parameters kubernetesClusterUnregister
type _ struct {
	// Unregister even if database clusters are still deployed
	// in: query
	Force bool `json:"force"`
}
