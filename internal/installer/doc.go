// Package installer turns a resolved manifest into side effects: model
// downloads into the category directories, git clones of custom-node
// repositories, and launching the installed application. It is a thin
// orchestration shell around the resolver output; all reference and merge
// logic lives in the resolve package.
package installer
