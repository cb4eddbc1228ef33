package vmt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// shaderPatch is the shader name of a material that wraps another one.
const shaderPatch = "patch"

// Options controls parsing.
type Options struct {
	// OverrideBlocks lists sub-block names whose parameters are merged into
	// the root mapping. Matching is case-insensitive.
	OverrideBlocks []string
}

// DefaultOptions merges "insert" and "replace" blocks.
func DefaultOptions() Options {
	return Options{OverrideBlocks: []string{"insert", "replace"}}
}

func (o Options) isOverride(name string) bool {
	for _, b := range o.OverrideBlocks {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}

type state int

const (
	stateRoot     state = iota // before the root block opens
	stateBlock                 // inside the root block
	stateSubBlock              // inside a named block directly under the root
	stateNested                // anything deeper; ignored
)

type frame struct {
	state state
	name  string
}

type parser struct {
	opts    Options
	frames  []frame
	pending string
	shader  string
	params  map[string]string
	done    bool
}

func (p *parser) current() frame {
	if len(p.frames) == 0 {
		return frame{state: stateRoot}
	}
	return p.frames[len(p.frames)-1]
}

func (p *parser) open() {
	next := frame{state: stateNested}
	switch p.current().state {
	case stateRoot:
		next = frame{state: stateBlock}
	case stateBlock:
		next = frame{state: stateSubBlock, name: p.pending}
	}
	p.frames = append(p.frames, next)
	p.pending = ""
}

func (p *parser) close() {
	if len(p.frames) > 0 {
		p.frames = p.frames[:len(p.frames)-1]
	}
}

// line feeds one trimmed, non-comment line through the state machine.
func (p *parser) line(line string) {
	if strings.HasPrefix(line, "{") {
		p.open()
		return
	}
	closing := strings.HasPrefix(line, "}")

	switch cur := p.current(); cur.state {
	case stateRoot:
		if p.shader == "" && !closing {
			p.shader = strings.ToLower(strings.Trim(line, `"`))
		}
	case stateBlock:
		switch {
		case closing:
			p.close()
			p.done = true
		case isBare(line):
			p.pending = strings.ToLower(strings.Trim(line, `"`))
		default:
			if key, value, ok := splitKeyValue(line); ok {
				p.params[key] = value
			}
		}
	case stateSubBlock:
		switch {
		case closing:
			p.close()
		case isBare(line):
			p.pending = strings.ToLower(strings.Trim(line, `"`))
		case p.opts.isOverride(cur.name):
			if key, value, ok := splitKeyValue(line); ok {
				p.params[key] = value
			}
		}
	case stateNested:
		if closing {
			p.close()
		}
	}
}

// isBare reports whether line is a single token, i.e. a block name.
func isBare(line string) bool {
	return strings.IndexAny(line, " \t") < 0
}

// splitKeyValue splits a parameter line on the first run of whitespace,
// honouring quotes around either part. The key is lowercased.
func splitKeyValue(line string) (string, string, bool) {
	var key, rest string
	if strings.HasPrefix(line, `"`) {
		end := strings.IndexByte(line[1:], '"')
		if end < 0 {
			return "", "", false
		}
		key, rest = line[1:end+1], line[end+2:]
	} else {
		i := strings.IndexAny(line, " \t")
		if i < 0 {
			return "", "", false
		}
		key, rest = line[:i], line[i:]
	}
	return strings.ToLower(key), parseValue(strings.TrimSpace(rest)), key != ""
}

// parseValue strips quotes from a value, dropping a trailing comment.
func parseValue(v string) string {
	if strings.HasPrefix(v, `"`) {
		if end := strings.IndexByte(v[1:], '"'); end >= 0 {
			return v[1 : end+1]
		}
		return strings.Trim(v, `"`)
	}
	if i := strings.Index(v, "//"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return strings.Trim(v, `"`)
}

// parse runs the state machine over r and returns the shader name and the
// flat parameter mapping.
func parse(r io.Reader, opts Options) (string, map[string]string, error) {
	p := &parser{opts: opts, params: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	first := true
	for !p.done && scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		line = strings.ReplaceAll(line, `""`, `" "`)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		p.line(line)
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("read material: %w", err)
	}
	if p.shader == "" {
		return "", nil, ErrEmptyMaterial
	}
	return p.shader, p.params, nil
}
