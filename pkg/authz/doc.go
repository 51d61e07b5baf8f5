// Package authz builds a per-user access summary: security groups,
// directory roles and Azure RBAC role assignments.
//
// Role definitions are read once per subscription before any user is
// processed. Users are then aggregated on a bounded pool; each row lists
// its RBAC roles as "<role> @ <scope>", sorted and deduplicated.
//
// The result is written as CSV with list columns joined by "; ".
package authz
