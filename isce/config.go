package isce

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// Params describes one topsApp interferogram run.
type Params struct {
	ReferenceSAFE string // path to the reference .SAFE (or .zip)
	SecondarySAFE string // path to the secondary .SAFE (or .zip)
	OrbitDir      string
	AuxDir        string
	Swaths        []int       // defaults to 1,2,3
	ROI           *[4]float64 // [S, N, W, E], optional
	DEMPath       string      // optional, ISCE downloads SRTM when empty

	RangeLooks     int     // defaults to 7
	AzimuthLooks   int     // defaults to 2
	FilterStrength float64 // defaults to 0.5
	NoUnwrap       bool    // skip snaphu
}

func (p *Params) setDefaults() {
	if len(p.Swaths) == 0 {
		p.Swaths = []int{1, 2, 3}
	}
	if p.RangeLooks == 0 {
		p.RangeLooks = 7
	}
	if p.AzimuthLooks == 0 {
		p.AzimuthLooks = 2
	}
	if p.FilterStrength == 0 {
		p.FilterStrength = 0.5
	}
}

func (p Params) validate() error {
	if p.ReferenceSAFE == "" || p.SecondarySAFE == "" {
		return fmt.Errorf("reference and secondary products are required")
	}
	if p.ReferenceSAFE == p.SecondarySAFE {
		return fmt.Errorf("reference and secondary products are identical")
	}
	if p.ROI != nil {
		roi := *p.ROI
		if roi[0] >= roi[1] || roi[2] >= roi[3] {
			return fmt.Errorf("invalid region of interest [S N W E] = %v", roi)
		}
	}
	return nil
}

type configView struct {
	Params
	SwathList string
	ROIList   string
}

var topsAppTemplate = template.Must(template.New("topsApp").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<topsApp>
  <component name="topsinsar">
    <property name="Sensor name">SENTINEL1</property>
    <component name="reference">
      <property name="safe">['{{.ReferenceSAFE}}']</property>
      <property name="output directory">reference</property>
      <property name="orbit directory">{{.OrbitDir}}</property>
      <property name="auxiliary data directory">{{.AuxDir}}</property>
    </component>
    <component name="secondary">
      <property name="safe">['{{.SecondarySAFE}}']</property>
      <property name="output directory">secondary</property>
      <property name="orbit directory">{{.OrbitDir}}</property>
      <property name="auxiliary data directory">{{.AuxDir}}</property>
    </component>
    <property name="swaths">{{.SwathList}}</property>
{{- if .ROIList}}
    <property name="region of interest">{{.ROIList}}</property>
    <property name="geocode bounding box">{{.ROIList}}</property>
{{- end}}
{{- if .DEMPath}}
    <property name="demfilename">{{.DEMPath}}</property>
{{- end}}
    <property name="range looks">{{.RangeLooks}}</property>
    <property name="azimuth looks">{{.AzimuthLooks}}</property>
    <property name="filter strength">{{.FilterStrength}}</property>
    <property name="do unwrap">{{if .NoUnwrap}}False{{else}}True{{end}}</property>
    <property name="unwrapper name">snaphu_mcf</property>
    <property name="do ESD">False</property>
  </component>
</topsApp>
`))

// BuildConfig renders the topsApp.xml document for a run.
func BuildConfig(p Params) ([]byte, error) {
	p.setDefaults()
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("BuildConfig: %w", err)
	}

	swaths := make([]string, len(p.Swaths))
	for i, s := range p.Swaths {
		swaths[i] = strconv.Itoa(s)
	}
	view := configView{Params: p, SwathList: "[" + strings.Join(swaths, ", ") + "]"}
	if p.ROI != nil {
		roi := *p.ROI
		view.ROIList = fmt.Sprintf("[%g, %g, %g, %g]", roi[0], roi[1], roi[2], roi[3])
	}

	var buf bytes.Buffer
	if err := topsAppTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("BuildConfig: %w", err)
	}
	return buf.Bytes(), nil
}
