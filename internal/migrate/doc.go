// Package migrate implements the CodeQL Action v2 to v3 batch migration
// pipeline: discovering repositories through code search, rewriting legacy
// workflow references in disposable clones, verifying the result, and
// publishing one migration branch and pull request per repository.
package migrate
