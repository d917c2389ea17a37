// Package manifest handles parsing and validation of comfyctl installer
// manifests. A manifest declares installation options, global model pools
// keyed by category, custom-node repositories, and named workflows that
// overlay additional selections or references onto the global pools.
//
// The package exposes two independent views of one parsed document: the
// Validate pass, which aggregates every structural and referential
// violation in document order, and the typed Manifest view consumed by the
// resolve package, which is deliberately permissive so resolution can run
// against partially valid documents.
package manifest
