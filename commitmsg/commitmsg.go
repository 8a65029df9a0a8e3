package commitmsg

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Default is the message template applied when none is
// configured.
const Default = "commit #{i}"

// knownTags lists the placeholders a message template
// may reference.
var knownTags = map[string]struct{}{
	"i":      {},
	"n":      {},
	"branch": {},
	"file":   {},
}

// Vars holds the substitution values available to a
// message template.
type Vars struct {
	// Index is the 1-based sequence number of the
	// commit, bound to {i}.
	Index int
	// Total is the overall number of commits in the
	// run, bound to {n}.
	Total int
	// Branch is the target branch name, bound to
	// {branch}.
	Branch string
	// File is the content file name, bound to {file}.
	File string
}

// tagMap converts the variables into the map form the
// template engine substitutes from.
func (v Vars) tagMap() map[string]interface{} {
	return map[string]interface{}{
		"i":      strconv.Itoa(v.Index),
		"n":      strconv.Itoa(v.Total),
		"branch": v.Branch,
		"file":   v.File,
	}
}

// Build expands tpl with the given variables. Tags use
// single braces, e.g. "commit #{i} of {n}". Templates
// are expected to have passed Validate; unknown tags are
// kept verbatim.
func Build(tpl string, v Vars) string {
	return fasttemplate.ExecuteStringStd(
		tpl, "{", "}", v.tagMap(),
	)
}

// Validate checks tpl for well-formed braces and rejects
// tags outside the known set. Meant to run once before a
// generation run so a bad template fails fast instead of
// producing N broken messages.
func Validate(tpl string) error {
	const errCtx = "validating message template"

	if tpl == "" {
		return fmt.Errorf(
			"%s: template is empty", errCtx,
		)
	}

	t, err := fasttemplate.NewTemplate(tpl, "{", "}")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var unknown []string

	_ = t.ExecuteFuncString(
		func(_ io.Writer, tag string) (int, error) {
			if _, ok := knownTags[tag]; !ok {
				unknown = append(unknown, tag)
			}

			return 0, nil
		},
	)

	if len(unknown) > 0 {
		return fmt.Errorf(
			"%s: unknown tag(s): %s",
			errCtx, strings.Join(unknown, ", "),
		)
	}

	return nil
}
