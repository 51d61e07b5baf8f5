// Package oci publishes inventory output files as an OCI artifact.
//
// Package writes the selected files into a local OCI image layout, one
// layer per file. PushFromStore copies the tagged manifest to a remote
// registry using ORAS with Docker credential helpers for authentication.
//
//	ref, err := oci.ParseReference("oci://ghcr.io/ops/cmdb-inventory:2025-06-01")
//	if err != nil {
//	    return err
//	}
//	_, err = oci.PackageAndPush(ctx, oci.OutputConfig{
//	    SourceDir: "out",
//	    Files:     []string{"inventory.json", "inventory.csv"},
//	    OutputDir: os.TempDir(),
//	    Reference: ref,
//	})
//
// Artifacts carry the type application/vnd.cmdb.inventory.report.v1.
package oci
