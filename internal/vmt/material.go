package vmt

import (
	"strconv"
	"strings"

	"github.com/flywave/go3d/vec3"
)

// Material is a parsed material definition. Params holds every parameter
// with a lowercase key; the typed fields mirror the keys renderers care about.
type Material struct {
	// Path is the file the definition was read from, empty for Parse.
	Path string
	// Chain lists every file Load read, from the requested name through
	// each include to Path.
	Chain  []string
	Shader string
	Params map[string]string

	BaseTexture  string
	BaseTexture2 string
	BumpMap      string
	SurfaceProp  string
	Detail       string
	DetailScale  float32
	DuDvMap      string

	AlphaTest   bool
	Translucent bool
	SelfIllum   bool
	Additive    bool

	EnvMap              string
	EnvMapTint          vec3.T
	EnvMapContrast      float32
	EnvMapSaturation    float32
	BaseAlphaEnvMapMask float32
}

// baseTextureKeys is the lookup order for the base texture.
var baseTextureKeys = []string{"$basetexture", "%tooltexture", "$iris"}

func newMaterial(shader string, params map[string]string) *Material {
	m := &Material{Shader: shader, Params: params}

	for _, k := range baseTextureKeys {
		if v, ok := params[k]; ok {
			m.BaseTexture = v
			break
		}
	}
	m.BaseTexture2 = params["$basetexture2"]
	m.BumpMap = params["$bumpmap"]
	m.SurfaceProp = params["$surfaceprop"]
	m.Detail = params["$detail"]
	m.DetailScale = parseFloat(params["$detailscale"])
	m.DuDvMap = params["$dudvmap"]
	if v, ok := params["$normalmap"]; ok {
		m.DuDvMap = v
	}

	m.AlphaTest = params["alphatest"] == "1" || params["$alphatest"] == "1"
	m.Translucent = params["$translucent"] == "1"
	m.SelfIllum = params["$selfillum"] == "1"
	m.Additive = params["$additive"] == "1"

	m.EnvMap = params["$envmap"]
	m.EnvMapTint = parseColor(params["$envmaptint"])
	m.EnvMapContrast = parseFloat(params["$envmapcontrast"])
	m.EnvMapSaturation = parseFloat(params["$envmapsaturation"])
	m.BaseAlphaEnvMapMask = parseFloat(params["$basealphaenvmapmask"])

	return m
}

// Param returns the raw value of key, which is matched case-insensitively.
func (m *Material) Param(key string) (string, bool) {
	v, ok := m.Params[strings.ToLower(key)]
	return v, ok
}

func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0
	}
	return float32(f)
}

// parseColor reads "[r g b]" as floats or "{r g b}" as 0-255 integers.
func parseColor(s string) vec3.T {
	s = strings.TrimSpace(s)
	scale := float32(1)
	if strings.HasPrefix(s, "{") {
		scale = 255
	}
	fields := strings.Fields(strings.Trim(s, "[]{}"))
	if len(fields) != 3 {
		return vec3.T{}
	}
	var c vec3.T
	for i, f := range fields {
		c[i] = parseFloat(f) / scale
	}
	return c
}
