package template

// TextValues maps a TextPoint id to what the end user typed. A missing or
// empty entry means the point is not drawn.
type TextValues map[string]string

// NewTextValues returns a map with an empty entry for every point.
func NewTextValues(points []TextPoint) TextValues {
	v := make(TextValues, len(points))
	for _, p := range points {
		v[p.ID] = ""
	}
	return v
}

// Get returns the value for id, or "".
func (v TextValues) Get(id string) string {
	return v[id]
}

// Clone returns an independent copy.
func (v TextValues) Clone() TextValues {
	out := make(TextValues, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}

// Sync returns a copy that keeps the values of points still configured, adds
// empty entries for new points and drops the rest.
func (v TextValues) Sync(points []TextPoint) TextValues {
	out := make(TextValues, len(points))
	for _, p := range points {
		out[p.ID] = v[p.ID]
	}
	return out
}

// Set stores the value typed for id.
func (v TextValues) Set(id, value string) {
	v[id] = value
}

// Prune deletes entries whose id is not among points.
func (v TextValues) Prune(points []TextPoint) {
	keep := make(map[string]struct{}, len(points))
	for _, p := range points {
		keep[p.ID] = struct{}{}
	}
	for id := range v {
		if _, ok := keep[id]; !ok {
			delete(v, id)
		}
	}
}
