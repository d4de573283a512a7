package render

import (
	"fmt"
	"image/color"

	"github.com/sarlab/insar-analyzer/common"
)

// Palette is a 256-entry color lookup table built by linear interpolation
// between ordered color stops.
type Palette struct {
	Name string
	LUT  [256]color.RGBA
}

func interpolateUint8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

func interpolateColor(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: interpolateUint8(a.R, b.R, t),
		G: interpolateUint8(a.G, b.G, t),
		B: interpolateUint8(a.B, b.B, t),
		A: 255,
	}
}

// newPalette spreads the stops evenly over the 256 entries.
func newPalette(name string, stops []color.RGBA) *Palette {
	p := &Palette{Name: name}
	if len(stops) == 1 {
		for i := range p.LUT {
			p.LUT[i] = stops[0]
		}
		return p
	}
	segments := len(stops) - 1
	for i := range p.LUT {
		pos := float64(i) / 255 * float64(segments)
		s := int(pos)
		if s >= segments {
			s = segments - 1
		}
		p.LUT[i] = interpolateColor(stops[s], stops[s+1], pos-float64(s))
	}
	return p
}

func mustHex(hex string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		panic(fmt.Sprintf("bad color stop %q: %v", hex, err))
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func hexStops(hexes ...string) []color.RGBA {
	stops := make([]color.RGBA, len(hexes))
	for i, h := range hexes {
		stops[i] = mustHex(h)
	}
	return stops
}

var palettes = map[string]*Palette{}

func registerPalette(name string, hexes ...string) {
	palettes[name] = newPalette(name, hexStops(hexes...))
}

func init() {
	// InSAR-specific ramps
	registerPalette("phase", "#ff0000", "#ffff00", "#00ff00", "#00ffff", "#0000ff", "#ff00ff", "#ff0000")
	registerPalette("coherence", "#000000", "#1a1a2e", "#16213e", "#0f3460", "#e94560", "#ff6b6b", "#ffffff")
	registerPalette("displacement", "#0000ff", "#4444ff", "#8888ff", "#ffffff", "#ff8888", "#ff4444", "#ff0000")
	registerPalette("terrain", "#006400", "#228B22", "#90EE90", "#FFFF00", "#FFA500", "#8B4513", "#FFFFFF")

	// general-purpose ramps
	registerPalette("gray", "#000000", "#ffffff")
	registerPalette("jet", "#00007f", "#0000ff", "#007fff", "#00ffff", "#7fff7f", "#ffff00", "#ff7f00", "#ff0000", "#7f0000")
	registerPalette("viridis", "#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725")
	registerPalette("plasma", "#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921")
	registerPalette("hsv", "#ff0000", "#ffff00", "#00ff00", "#00ffff", "#0000ff", "#ff00ff", "#ff0000")
}

// defaultPaletteNames maps a product type to its default palette.
var defaultPaletteNames = map[common.ProductType]string{
	common.ProductVerticalDisp:   "displacement",
	common.ProductDisplacement:   "displacement",
	common.ProductCoherence:      "coherence",
	common.ProductUnwrappedPhase: "jet",
	common.ProductWrappedPhase:   "phase",
	common.ProductInterferogram:  "phase",
	common.ProductAmplitude:      "gray",
	common.ProductDEM:            "terrain",
	common.ProductIncidence:      "viridis",
	common.ProductAzimuth:        "hsv",
	common.ProductUnknown:        "viridis",
}

// Resolve returns the palette for an explicit name, falling back to the
// product-type default when the name is "auto", empty or unknown.
func Resolve(name string, t common.ProductType) *Palette {
	if name != "" && name != "auto" {
		if p, ok := palettes[name]; ok {
			return p
		}
	}
	if p, ok := palettes[defaultPaletteNames[t]]; ok {
		return p
	}
	return palettes["viridis"]
}

// PaletteNames lists the available palette names.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	return names
}
