package model

// CacheKey identifies a static decision. Policies carries the ID and
// modification time of every evaluated ACP so an ACP update invalidates
// its cached decisions.
type CacheKey struct {
	Originator string
	Operation  int
	Policies   string
	Self       bool
}
