// Package serializer encodes and decodes documents for the inventory CLI.
//
// Writers support three formats:
//   - JSON: indented, the format of inventory.json
//   - YAML: two space indentation, used for the headered report
//   - Table: aligned text; a slice of rows becomes one line per row with
//     "host" as the first column, anything else is flattened to FIELD/VALUE
//
// Readers decode JSON or YAML from local files or http(s) URLs and back the
// config loader and the JSON/YAML target lists.
//
// ConfigMapWriter publishes a document into a Kubernetes ConfigMap.
//
// NewHTTPClient is the shared outbound HTTP client (pooled connections,
// bounded timeouts, TLS 1.2 minimum) used by every REST integration.
//
// Usage:
//
//	w, err := serializer.NewFileWriter(serializer.FormatJSON, "out/inventory.json")
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	return w.Serialize(ctx, rows)
package serializer
