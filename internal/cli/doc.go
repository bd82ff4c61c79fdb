// Package cli implements the baas command line: one command per
// invocation, JSON on stdout, normalized errors on stderr.
package cli
