// Package textutil provides text normalization helpers shared across the
// pipeline, primarily the filename sanitizer used to derive output directory
// names from arbitrary container titles.
package textutil
