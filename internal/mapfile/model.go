package mapfile

import (
	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/float64/vec4"
)

// KeyValue is one entity property.
type KeyValue struct {
	Key   string
	Value string
}

// Entity is a map entity: ordered properties plus its brushes.
type Entity struct {
	Pairs   []KeyValue
	Brushes []Brush
}

// Set stores value under key. An existing key keeps its position.
func (e *Entity) Set(key, value string) {
	for i := range e.Pairs {
		if e.Pairs[i].Key == key {
			e.Pairs[i].Value = value
			return
		}
	}
	e.Pairs = append(e.Pairs, KeyValue{Key: key, Value: value})
}

// Get returns the value stored under key.
func (e *Entity) Get(key string) (string, bool) {
	for _, kv := range e.Pairs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Brush is one of PlanarSides, *Patch, *Terrain or Unsupported.
type Brush interface {
	isBrush()
}

// BrushSide is a single plane of a convex brush, given by three points.
type BrushSide struct {
	Vertices [3]vec3.T
	Texture  string
	Shift    vec2.T // S, T
	Rotation float64
	Scale    vec2.T // X, Y
	Flags    int
}

// PlanarSides is a convex brush. Fewer than 4 sides cannot form a solid.
type PlanarSides []BrushSide

// PatchVertex is a patch control point.
type PatchVertex struct {
	Position vec3.T
	UV       vec2.T
}

// Patch is a curved surface over a CountU x CountV control grid.
// The control point for row i, column j is Points[CountU*j+i].
type Patch struct {
	CountU  int
	CountV  int
	Texture string
	Points  []PatchVertex
}

// Point returns the control point at row i, column j.
func (p *Patch) Point(i, j int) PatchVertex {
	return p.Points[p.CountU*j+i]
}

// Terrain is a heightmapped ground surface with a parallel alpha map.
type Terrain struct {
	Texture    string
	Shift      vec2.T
	Rotation   float64
	Scale      vec2.T
	Flags      int
	SideLength int
	Start      vec3.T
	IF         vec4.T
	LF         vec4.T
	HeightMap  [][]float64
	AlphaMap   [][]float64
}

// Unsupported marks a brush built from a vendor-specific feature the map
// grammar has no form for. Kind names the feature, e.g. "moh-terrain".
type Unsupported struct {
	Kind string
}

func (PlanarSides) isBrush() {}
func (*Patch) isBrush()      {}
func (*Terrain) isBrush()    {}
func (Unsupported) isBrush() {}
