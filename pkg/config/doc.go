// Package config loads the inventory configuration and resolves feature
// switches.
//
// The file is YAML (JSON is accepted as YAML) or TOML, selected by
// extension, and may be fetched from an http(s) URL. Secrets left empty in
// the file are read from the environment (AZURE_CLIENT_SECRET,
// VSPHERE_PASSWORD, AD_BIND_PASSWORD, SSH_PASSWORD, WINRM_PASSWORD,
// SERVICENOW_PASSWORD).
//
// # Feature resolution
//
// ResolveFeatures merges switches once per run with precedence:
//
//	defaults < config file (features.*) < --fast < --enable/--disable
//
// Call sites read the resulting FeatureFlags struct fields; nothing looks up
// switches by name after resolution.
//
// # Example
//
//	discovery:
//	  subnet_scan:
//	    enabled: true
//	    targets: ["10.0.0.0/24"]
//	features:
//	  enrichment:
//	    dns: false
//	export:
//	  sqlite:
//	    enabled: true
//	    path: out/inventory.db
package config
