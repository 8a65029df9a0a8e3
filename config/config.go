// Package config loads run settings from an optional YAML file. The file
// mirrors the flag surface; explicit flags always win over file values,
// which in turn win over built-in defaults.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// GitHub holds GitHub provider settings.
type GitHub struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Token string `yaml:"token"`
	Host  string `yaml:"host"`
}

// GitLab holds GitLab provider settings.
type GitLab struct {
	Host    string `yaml:"host"`
	Project string `yaml:"project"`
	Token   string `yaml:"token"`
}

// Bitbucket holds Bitbucket Server provider settings.
type Bitbucket struct {
	URL      string `yaml:"url"`
	Project  string `yaml:"project"`
	Slug     string `yaml:"slug"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// File is the YAML form of the flag surface. Zero values
// mean "not set"; booleans can therefore only be switched
// on from a file, never forced off.
type File struct {
	Repo        string `yaml:"repo"`
	Count       int    `yaml:"count"`
	Branch      string `yaml:"branch"`
	ToDefault   bool   `yaml:"to_default"`
	NoPush      bool   `yaml:"no_push"`
	ForcePush   bool   `yaml:"force_push"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	Timestamped bool   `yaml:"timestamped"`
	StartTime   int64  `yaml:"start_time"`
	AllowEmpty  bool   `yaml:"allow_empty"`
	ContentFile string `yaml:"file"`
	Message     string `yaml:"message"`
	TmpDir      string `yaml:"tmp_dir"`
	Mirror      string `yaml:"mirror"`
	JSON        bool   `yaml:"json"`
	OpenPR      bool   `yaml:"open_pr"`
	PRTitle     string `yaml:"pr_title"`
	PRBody      string `yaml:"pr_body"`
	Server      string `yaml:"server"`

	GitHub    GitHub    `yaml:"github"`
	GitLab    GitLab    `yaml:"gitlab"`
	Bitbucket Bitbucket `yaml:"bitbucket"`
}

// Load reads and decodes the YAML file at path.
func Load(path string) (*File, error) {
	const errCtx = "loading config file"

	raw, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var fi File

	if err := yaml.Unmarshal(raw, &fi); err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, path, err,
		)
	}

	return &fi, nil
}
