// identity/generator.go

package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Generator allocates resource IDs namespaced by the node's CSE-ID. IDs are
// random so they are never reused, even across restarts.
type Generator struct {
	cseID string
}

func NewGenerator(cseID string) *Generator {
	return &Generator{cseID: strings.Trim(cseID, "/")}
}

// NewID returns an SP-relative resource ID ("/<cse>/<prefix>-<suffix>") and
// the default resource name derived from the same suffix.
func (g *Generator) NewID(prefix string) (id string, defaultName string) {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "/" + g.cseID + "/" + prefix + "-" + suffix, prefix + "_" + suffix
}
