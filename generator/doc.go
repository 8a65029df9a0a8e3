// Package generator orchestrates bulk commit runs. It clones the target
// repository into a transient working copy, resolves the remote default
// branch, selects or creates the target branch, creates exactly Count
// sequential commits (content-appending or empty), optionally pushes and
// opens a pull request, and always removes the working copy on exit.
//
// A run is strictly sequential: commit i+1 is only attempted after commit i
// succeeded, so timestamps and content lines are monotonic. There is no
// resume of partial runs and no transactional rollback; a failure mid-loop
// leaves the remote untouched (nothing is pushed before the loop completes)
// and the local clone is discarded.
package generator
