// Package resolve implements the reference resolver / merge engine: it
// flattens a manifest's global model pools, an optional workflow overlay,
// and the custom-node list into ordered locator lists ready for download.
//
// Resolution is permissive by design. An unknown workflow name or a ref
// that matches nothing in the global pools produces a warning and
// contributes nothing; hard failures are the validator's job, and the two
// passes are intentionally kept separate because their severity models
// differ.
package resolve
