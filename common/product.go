package common

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// ProductType is the kind of InSAR product held in a raster file.
type ProductType int

const (
	ProductUnknown ProductType = iota
	ProductVerticalDisp
	ProductDisplacement
	ProductCoherence
	ProductUnwrappedPhase
	ProductWrappedPhase
	ProductInterferogram
	ProductAmplitude
	ProductDEM
	ProductIncidence
	ProductAzimuth
)

var productTypeNames = map[ProductType]string{
	ProductUnknown:        "Unknown",
	ProductVerticalDisp:   "VerticalDisp",
	ProductDisplacement:   "Displacement",
	ProductCoherence:      "Coherence",
	ProductUnwrappedPhase: "UnwrappedPhase",
	ProductWrappedPhase:   "WrappedPhase",
	ProductInterferogram:  "Interferogram",
	ProductAmplitude:      "Amplitude",
	ProductDEM:            "DEM",
	ProductIncidence:      "Incidence",
	ProductAzimuth:        "Azimuth",
}

func (t ProductType) String() string {
	if s, ok := productTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ProductType(%d)", int(t))
}

func (t ProductType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ProductType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for pt, name := range productTypeNames {
		if name == s {
			*t = pt
			return nil
		}
	}
	return fmt.Errorf("unknown ProductType %q", s)
}

// Classification keyword table. Order matters: vertical must precede
// displacement ("vertical_displacement" contains both), unwrapped must
// precede wrapped ("unwrapped_phase" contains both keywords). First match
// wins.
var productKeywords = []struct {
	productType ProductType
	keywords    []string
}{
	{ProductVerticalDisp, []string{"vertical", "vert_disp"}},
	{ProductDisplacement, []string{"displacement", "disp", "defo", "deformation", "los"}},
	{ProductCoherence, []string{"coherence", "coh", "cor", "cc"}},
	{ProductUnwrappedPhase, []string{"unwrapped", "unw"}},
	{ProductWrappedPhase, []string{"wrapped", "phase"}},
	{ProductInterferogram, []string{"interferogram", "ifg", "int", "igram"}},
	{ProductAmplitude, []string{"amplitude", "amp", "intensity", "backscatter"}},
	{ProductDEM, []string{"dem", "elevation", "height", "hgt"}},
	{ProductIncidence, []string{"incidence", "inc_angle"}},
	{ProductAzimuth, []string{"azimuth"}},
}

// ProductTypeFromFilename classifies a raster file by substring matching on
// its base name, extension stripped, case-insensitive.
func ProductTypeFromFilename(name string) ProductType {
	base := filepath.Base(name)
	base = strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	for _, entry := range productKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(base, kw) {
				return entry.productType
			}
		}
	}
	return ProductUnknown
}

// Title returns the display title of a product type.
func (t ProductType) Title() string {
	switch t {
	case ProductVerticalDisp:
		return "Vertical Displacement"
	case ProductDisplacement:
		return "LOS Displacement"
	case ProductCoherence:
		return "Coherence"
	case ProductUnwrappedPhase:
		return "Unwrapped Phase"
	case ProductWrappedPhase:
		return "Wrapped Phase"
	case ProductInterferogram:
		return "Interferogram"
	case ProductAmplitude:
		return "Amplitude"
	case ProductDEM:
		return "Digital Elevation Model"
	case ProductIncidence:
		return "Incidence Angle"
	case ProductAzimuth:
		return "Azimuth Angle"
	}
	return "InSAR Product"
}

// ColorbarLabel returns the unit label shown next to the color scale.
func (t ProductType) ColorbarLabel() string {
	switch t {
	case ProductVerticalDisp:
		return "Vertical Displacement (m)"
	case ProductDisplacement:
		return "LOS Displacement (m)"
	case ProductCoherence:
		return "Coherence"
	case ProductUnwrappedPhase:
		return "Unwrapped Phase (rad)"
	case ProductWrappedPhase:
		return "Wrapped Phase (rad)"
	case ProductInterferogram:
		return "Phase (rad)"
	case ProductAmplitude:
		return "Amplitude"
	case ProductDEM:
		return "Elevation (m)"
	case ProductIncidence:
		return "Incidence Angle (deg)"
	case ProductAzimuth:
		return "Azimuth Angle (deg)"
	}
	return "Value"
}
