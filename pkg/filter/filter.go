// Package filter decides which paths are eligible to be mirrored.
package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// TypeResolver guesses the content type of an existing file. It returns an
// empty string if the type is unknown.
type TypeResolver interface {
	ContentType(path string) string
}

// Policy decides whether paths should be ignored based on the configured
// content-type and extension patterns. A Policy is immutable once created.
type Policy struct {
	typePattern      *regexp.Regexp
	extensionPattern *regexp.Regexp
	resolver         TypeResolver
}

// NewPolicy compiles the comma separated `types` and `extensions` lists into
// a Policy.
// Each element of `types` matches the major part of a content type (e.g.
// `image` matches `image/png`) and may be a regular expression. Each element
// of `extensions` matches a file extension without the leading dot,
// case-insensitively.
func NewPolicy(types, extensions string, resolver TypeResolver) (*Policy, error) {
	policy := &Policy{resolver: resolver}

	if alts := splitList(types); len(alts) > 0 {
		pattern, err := regexp.Compile(fmt.Sprintf("^(%s)/", strings.Join(alts, "|")))
		if err != nil {
			return nil, errors.ConfigError{Field: "filter.types", Reason: "invalid pattern", Err: err}
		}
		policy.typePattern = pattern
	}

	if alts := splitList(extensions); len(alts) > 0 {
		pattern, err := regexp.Compile(fmt.Sprintf("(?i)^(%s)$", strings.Join(alts, "|")))
		if err != nil {
			return nil, errors.ConfigError{Field: "filter.extensions", Reason: "invalid pattern", Err: err}
		}
		policy.extensionPattern = pattern
	}
	return policy, nil
}

func splitList(list string) (elems []string) {
	for _, elem := range strings.Split(list, ",") {
		elem = strings.TrimSpace(elem)
		elem = strings.TrimPrefix(elem, ".")
		if elem != "" {
			elems = append(elems, elem)
		}
	}
	return elems
}

// Configured returns whether any rule is configured.
func (p *Policy) Configured() bool {
	return p.typePattern != nil || p.extensionPattern != nil
}

// ShouldIgnore returns whether `path` should be left out of the mirror.
//
// Paths that still exist are matched by content type. Paths that have
// already been removed can't be inspected, so their extension is matched
// instead.
func (p *Policy) ShouldIgnore(path string, isDir, exists bool) bool {
	if !p.Configured() || isDir {
		return false
	}

	if exists {
		if p.typePattern == nil {
			return false
		}
		return !p.typePattern.MatchString(p.resolver.ContentType(path))
	}

	if p.extensionPattern == nil {
		return false
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		// Without an extension there's nothing to match. Directories were
		// already handled above, so this is a file of unknown type.
		return true
	}
	return !p.extensionPattern.MatchString(ext)
}
