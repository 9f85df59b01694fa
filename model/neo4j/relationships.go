// model/neo4j/relationships.go
package echo_neo4j

// Relationship Types
const (
	// RelChildOf points from a resource to its parent
	RelChildOf = "CHILD_OF"

	// RelConsults points from a resource to each DAC listed in its daci
	RelConsults = "CONSULTS"
)
