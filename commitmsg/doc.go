// Package commitmsg expands commit message templates. Templates use
// single-brace tags ({i}, {n}, {branch}, {file}) substituted per commit, so
// a run of N commits yields N distinct messages from one template. Validate
// rejects malformed or unknown tags before any commit is made.
package commitmsg
