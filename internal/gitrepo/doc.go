// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes RepositoryManager for cloning, branching, committing, and pushing
// working copies, along with remote URL parsing utilities consumed by the
// migration service.
package gitrepo
