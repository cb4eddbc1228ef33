package mapfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flywave/go3d/float64/vec3"
)

// minBrushSides is the smallest number of planes that can enclose a volume.
const minBrushSides = 4

// Serialize renders entities as a Radiant map document.
func Serialize(entities []Entity, cfg Config) string {
	var sb strings.Builder
	// strings.Builder never fails, so neither can Encode.
	_ = NewEncoder(&sb, cfg).Encode(entities)
	return sb.String()
}

// Encoder writes map documents to an io.Writer.
type Encoder struct {
	w   *bufio.Writer
	cfg Config
	nl  string
}

// NewEncoder returns an Encoder writing to w with cfg.
func NewEncoder(w io.Writer, cfg Config) *Encoder {
	return &Encoder{
		w:   bufio.NewWriterSize(w, 512*1024),
		cfg: cfg,
		nl:  cfg.newline(),
	}
}

// Encode writes every entity in order. Brushes that cannot be represented
// are skipped; the only error returned is from the underlying writer.
func (e *Encoder) Encode(entities []Entity) error {
	for i := range entities {
		e.entity(&entities[i], i)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	return nil
}

func (e *Encoder) line(parts ...string) {
	for _, p := range parts {
		e.w.WriteString(p)
	}
	e.w.WriteString(e.nl)
}

func (e *Encoder) num(v float64) string {
	return e.cfg.Numbers.Format(v)
}

func (e *Encoder) entity(ent *Entity, index int) {
	e.line("// entity ", strconv.Itoa(index))
	e.line("{")
	for _, kv := range ent.Pairs {
		e.line(`"`, kv.Key, `" "`, kv.Value, `"`)
	}
	for i, b := range ent.Brushes {
		e.brush(b, index, i)
	}
	e.line("}")
}

func (e *Encoder) brush(b Brush, entity, index int) {
	switch b := b.(type) {
	case PlanarSides:
		if len(b) < minBrushSides {
			e.warn(Diagnostic{
				Entity:  entity,
				Brush:   index,
				Sides:   len(b),
				Message: fmt.Sprintf("tried to create brush from %d sides", len(b)),
			})
			return
		}
		e.open(index)
		for i := range b {
			e.side(&b[i])
		}
		e.line("}")
	case *Patch:
		if want := b.CountU * b.CountV; b.CountU < 0 || b.CountV < 0 || len(b.Points) < want {
			e.warn(Diagnostic{
				Entity:  entity,
				Brush:   index,
				Message: fmt.Sprintf("patch %dx%d has %d control points", b.CountU, b.CountV, len(b.Points)),
			})
			return
		}
		e.open(index)
		e.patch(b)
		e.line("}")
	case *Terrain:
		e.open(index)
		e.terrain(b)
		e.line("}")
	case Unsupported:
		// Vendor features the grammar cannot express are dropped quietly.
	}
}

func (e *Encoder) open(index int) {
	e.line("// brush ", strconv.Itoa(index))
	e.line("{")
}

func (e *Encoder) warn(d Diagnostic) {
	if e.cfg.Diagnostics != nil {
		e.cfg.Diagnostics.Warn(d)
	}
}

func (e *Encoder) point(v vec3.T) string {
	return "( " + e.num(v[0]) + " " + e.num(v[1]) + " " + e.num(v[2]) + " )"
}

func (e *Encoder) side(s *BrushSide) {
	e.line(
		e.point(s.Vertices[0]), " ",
		e.point(s.Vertices[1]), " ",
		e.point(s.Vertices[2]), " ",
		s.Texture, " ",
		e.num(s.Shift[0]), " ",
		e.num(s.Shift[1]), " ",
		e.num(s.Rotation), " ",
		e.num(s.Scale[0]), " ",
		e.num(s.Scale[1]), " ",
		strconv.Itoa(s.Flags), " 0 0",
	)
}

func (e *Encoder) patch(p *Patch) {
	nf := e.cfg.PatchNumbers
	e.line("patchDef2")
	e.line("{")
	e.line(p.Texture)
	e.line("( ", strconv.Itoa(p.CountU), " ", strconv.Itoa(p.CountV), " 0 0 0 )")
	e.line("(")
	for i := 0; i < p.CountU; i++ {
		e.w.WriteString("( ")
		for j := 0; j < p.CountV; j++ {
			v := p.Point(i, j)
			e.w.WriteString("( ")
			e.w.WriteString(nf.Format(v.Position[0]))
			e.w.WriteString(" ")
			e.w.WriteString(nf.Format(v.Position[1]))
			e.w.WriteString(" ")
			e.w.WriteString(nf.Format(v.Position[2]))
			e.w.WriteString(" ")
			e.w.WriteString(nf.Format(v.UV[0]))
			e.w.WriteString(" ")
			e.w.WriteString(nf.Format(v.UV[1]))
			e.w.WriteString(" ) ")
		}
		e.line(")")
	}
	e.line(")")
	e.line("}")
}

func (e *Encoder) terrain(t *Terrain) {
	e.line("  terrainDef")
	e.line("  {")
	e.line("    TEX( ",
		t.Texture, " ",
		e.num(t.Shift[0]), " ",
		e.num(t.Shift[1]), " ",
		e.num(t.Rotation), " ",
		e.num(t.Scale[0]), " ",
		e.num(t.Scale[1]), " ",
		strconv.Itoa(t.Flags), " 0 0 )")
	e.line("    TD( ",
		strconv.Itoa(t.SideLength), " ",
		e.num(t.Start[0]), " ",
		e.num(t.Start[1]), " ",
		e.num(t.Start[2]), " )")
	e.line("    IF( ", e.num(t.IF[0]), " ", e.num(t.IF[1]), " ", e.num(t.IF[2]), " ", e.num(t.IF[3]), " )")
	e.line("    LF( ", e.num(t.LF[0]), " ", e.num(t.LF[1]), " ", e.num(t.LF[2]), " ", e.num(t.LF[3]), " )")
	e.line("    V(")
	e.grid(t.HeightMap)
	e.line("    )")
	e.line("    A(")
	e.grid(t.AlphaMap)
	e.line("    )")
	e.line("  }")
}

func (e *Encoder) grid(rows [][]float64) {
	for _, row := range rows {
		e.w.WriteString("      ")
		for _, v := range row {
			e.w.WriteString(e.num(v))
			e.w.WriteString(" ")
		}
		e.line()
	}
}
