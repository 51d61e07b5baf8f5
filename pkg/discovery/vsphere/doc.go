// Package vsphere discovers virtual machines through the vCenter REST API
// (/api/session, /api/vcenter/vm and the guest identity endpoint).
package vsphere
