// Package azure discovers virtual machines through the Azure Resource
// Manager compute API. Tags are exposed as "key=value" strings for the
// azure tag_map transform.
package azure
