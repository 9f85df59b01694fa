// model/neo4j/nodes.go
package echo_neo4j

// Node Labels
const (
	// LabelResource is the single label every stored resource carries; the
	// resource type lives in the type property
	LabelResource = "Resource"
)
