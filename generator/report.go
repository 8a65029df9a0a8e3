package generator

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Report summarizes a completed run. Content fields are
// only set in content mode.
type Report struct {
	RunID         string    `json:"run_id"`
	Repo          string    `json:"repo"`
	Branch        string    `json:"branch"`
	DefaultBranch string    `json:"default_branch"`
	BranchCreated bool      `json:"branch_created"`
	Commits       int       `json:"commits"`
	TipSHA        string    `json:"tip_sha"`
	Pushed        bool      `json:"pushed"`
	Forced        bool      `json:"forced"`
	PROpened      bool      `json:"pr_opened"`
	ContentFile   string    `json:"content_file,omitempty"`
	ContentSHA256 string    `json:"content_sha256,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() (string, error) {
	const errCtx = "encoding report"

	by, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return string(by), nil
}
