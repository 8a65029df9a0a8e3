// Package digest calculates SHA256 file digests. The run report records the
// digest of the content file so two runs over the same repository can be
// compared without inspecting the working copy.
package digest
