package wang

// Match returns every tile of c whose corners equal required on each
// non-wildcard slot, in candidate order. An empty result means the tileset has
// no tile for this terrain combination; it is not an error.
//
// There is no color hierarchy and no partial scoring: a near miss is a miss.
func Match(c *Catalog, required Corners) []TileDefinition {
	if c == nil {
		return nil
	}
	return c.CandidatesFor(required)
}

// Matches reports whether t satisfies required.
func Matches(t TileDefinition, required Corners) bool {
	got := t.Corners()
	for i, want := range required {
		if want != Wildcard && got[i] != want {
			return false
		}
	}
	return true
}
