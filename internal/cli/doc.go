// Package cli implements the execkit command line.
package cli
