package analysis

import "fmt"

// Point is a pixel location selected for time-series analysis.
type Point struct {
	Name   string  `json:"name"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Lon    float64 `json:"lon,omitempty"`
	Lat    float64 `json:"lat,omitempty"`
	HasGeo bool    `json:"has_geo"`
}

// Region is a pixel rectangle selected for averaged analysis.
type Region struct {
	Name string `json:"name"`
	X0   int    `json:"x0"`
	Y0   int    `json:"y0"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
}

// PointSet holds the analysis points and regions of a session. Names are
// P<n> and R<n> with monotonically increasing counters: removing an entry
// never renumbers the survivors, so exported labels stay stable.
type PointSet struct {
	Points  []Point  `json:"points"`
	Regions []Region `json:"regions"`

	nextPoint  int
	nextRegion int
}

func NewPointSet() *PointSet {
	return &PointSet{nextPoint: 1, nextRegion: 1}
}

func (s *PointSet) AddPoint(p Point) Point {
	p.Name = fmt.Sprintf("P%d", s.nextPoint)
	s.nextPoint++
	s.Points = append(s.Points, p)
	return p
}

func (s *PointSet) AddRegion(r Region) Region {
	if r.X1 < r.X0 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	r.Name = fmt.Sprintf("R%d", s.nextRegion)
	s.nextRegion++
	s.Regions = append(s.Regions, r)
	return r
}

// Point returns the named point.
func (s *PointSet) Point(name string) (Point, bool) {
	for _, p := range s.Points {
		if p.Name == name {
			return p, true
		}
	}
	return Point{}, false
}

// Remove deletes the named point or region. Counters are not rewound.
func (s *PointSet) Remove(name string) bool {
	for i, p := range s.Points {
		if p.Name == name {
			s.Points = append(s.Points[:i], s.Points[i+1:]...)
			return true
		}
	}
	for i, r := range s.Regions {
		if r.Name == name {
			s.Regions = append(s.Regions[:i], s.Regions[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes everything and restarts the numbering.
func (s *PointSet) Clear() {
	s.Points = nil
	s.Regions = nil
	s.nextPoint = 1
	s.nextRegion = 1
}
