// Package kube discovers Kubernetes nodes with client-go. The managed
// platform (eks, gke, aks, oke) is derived from the node providerID.
package kube
