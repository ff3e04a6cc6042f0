// Package runid provides run identifier generation.
package runid

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const timeLayout = "20060102_150405"

// Generator produces run identifiers with a UTC time prefix and a short
// random suffix, unique per process invocation.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewRunID returns "<prefix_>YYYYMMDD_HHMMSS_xxxxxx" where xxxxxx is a random
// hex suffix. The prefix is optional.
func (Generator) NewRunID(prefix string) string {
	base := time.Now().UTC().Format(timeLayout)
	if prefix != "" {
		base = prefix + "_" + base
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return base + "_" + suffix
}
