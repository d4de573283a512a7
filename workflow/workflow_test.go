package workflow_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sarlab/insar-analyzer/analysis"
	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/workflow"
)

var _ = Describe("App", func() {
	var app *workflow.App
	var handler http.Handler

	// powers of two keep the sampled values exact through JSON
	epoch1 := memEpoch("S1AA_20150817T223551_20150829T223551_displacement.tif", 0.25, 0.25)
	epoch2 := memEpoch("S1AA_20150829T223551_20150910T223551_displacement.tif", 0.75, 0.25)
	coherence := memEpoch("S1AA_20150817T223551_20150829T223551_spatial_coherence.tif", 0.8, 0.0)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	loadAll := func() {
		w := do("POST", "/products/load", map[string]interface{}{
			"paths": []string{epoch2, coherence, epoch1},
		})
		Expect(w.Code).To(Equal(200))
	}

	BeforeEach(func() {
		app = workflow.NewApp(workflow.Config{WorkDir: os.TempDir()})
		handler = app.NewHandler()
	})

	Describe("loading products", func() {
		It("lists the products in path order with parsed dates", func() {
			loadAll()
			w := do("GET", "/products", nil)
			Expect(w.Code).To(Equal(200))
			var products []workflow.ProductInfo
			Expect(json.Unmarshal(w.Body.Bytes(), &products)).To(Succeed())
			Expect(products).To(HaveLen(3))
			Expect(products[0].Name).To(Equal("S1AA_20150817T223551_20150829T223551_displacement.tif"))
			Expect(products[0].Type).To(Equal(common.ProductDisplacement))
			Expect(products[1].Type).To(Equal(common.ProductCoherence))
			Expect(products[0].Date).NotTo(BeNil())
			Expect(products[0].Date.Format("2006-01-02")).To(Equal("2015-08-29"))
		})

		It("rejects an empty request", func() {
			Expect(do("POST", "/products/load", map[string]interface{}{}).Code).To(Equal(400))
		})

		It("fails when nothing is readable", func() {
			w := do("POST", "/products/load", map[string]interface{}{
				"paths": []string{"mem://missing.tif"},
			})
			Expect(w.Code).To(Equal(500))
		})
	})

	Describe("rendering", func() {
		It("serves the product as PNG", func() {
			loadAll()
			w := do("GET", "/products/0/image.png", nil)
			Expect(w.Code).To(Equal(200))
			Expect(w.Header().Get("Content-Type")).To(Equal("image/png"))
			img, err := png.Decode(w.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(4))
			Expect(img.Bounds().Dy()).To(Equal(4))
		})

		It("returns 404 for an unknown index", func() {
			loadAll()
			Expect(do("GET", "/products/9/image.png", nil).Code).To(Equal(404))
		})

		It("keeps the display settings", func() {
			Expect(do("PUT", "/display", workflow.DisplaySettings{Palette: "jet", Min: "abc", Max: "0.1"}).Code).To(Equal(204))
			w := do("GET", "/display", nil)
			var d workflow.DisplaySettings
			Expect(json.Unmarshal(w.Body.Bytes(), &d)).To(Succeed())
			Expect(d.Palette).To(Equal("jet"))
			Expect(d.Min).To(Equal("abc"))
		})
	})

	Describe("points", func() {
		BeforeEach(loadAll)

		It("names points and regions with separate counters", func() {
			w := do("POST", "/points", map[string]int{"x": 1, "y": 1})
			Expect(w.Code).To(Equal(200))
			var p analysis.Point
			Expect(json.Unmarshal(w.Body.Bytes(), &p)).To(Succeed())
			Expect(p.Name).To(Equal("P1"))

			w = do("POST", "/points", map[string]int{"x": 0, "y": 0})
			Expect(json.Unmarshal(w.Body.Bytes(), &p)).To(Succeed())
			Expect(p.Name).To(Equal("P2"))

			w = do("POST", "/points", map[string]int{"x0": 0, "y0": 0, "x1": 1, "y1": 1})
			var r analysis.Region
			Expect(json.Unmarshal(w.Body.Bytes(), &r)).To(Succeed())
			Expect(r.Name).To(Equal("R1"))
		})

		It("does not renumber after a delete", func() {
			do("POST", "/points", map[string]int{"x": 1, "y": 1})
			do("POST", "/points", map[string]int{"x": 0, "y": 0})
			Expect(do("DELETE", "/points/P1", nil).Code).To(Equal(204))
			w := do("POST", "/points", map[string]int{"x": 2, "y": 2})
			var p analysis.Point
			Expect(json.Unmarshal(w.Body.Bytes(), &p)).To(Succeed())
			Expect(p.Name).To(Equal("P3"))
		})

		It("rejects out-of-bounds pixels and unknown names", func() {
			Expect(do("POST", "/points", map[string]int{"x": 9, "y": 0}).Code).To(Equal(400))
			Expect(do("DELETE", "/points/P9", nil).Code).To(Equal(404))
		})

		It("clears the set and the reference", func() {
			do("POST", "/points", map[string]int{"x": 1, "y": 1})
			Expect(do("PUT", "/reference", map[string]string{"name": "P1"}).Code).To(Equal(204))
			Expect(do("DELETE", "/points", nil).Code).To(Equal(204))
			w := do("GET", "/points", nil)
			Expect(w.Body.String()).NotTo(ContainSubstring("P1"))
		})
	})

	Describe("series and statistics", func() {
		BeforeEach(func() {
			loadAll()
			do("POST", "/points", map[string]int{"x": 1, "y": 1}) // P1
			do("POST", "/points", map[string]int{"x": 0, "y": 0}) // P2
		})

		series := func() map[string][]float64 {
			w := do("GET", "/series", nil)
			Expect(w.Code).To(Equal(200))
			var ss []analysis.Series
			Expect(json.Unmarshal(w.Body.Bytes(), &ss)).To(Succeed())
			out := map[string][]float64{}
			for _, s := range ss {
				for _, smp := range s.Samples {
					out[s.Name] = append(out[s.Name], smp.Value)
				}
			}
			return out
		}

		It("extracts one sample per displacement epoch", func() {
			ss := series()
			Expect(ss["P1"]).To(Equal([]float64{0.5, 1.0}))
			Expect(ss["P2"]).To(Equal([]float64{0.25, 0.75}))
		})

		It("subtracts the reference sampled from the displayed raster only", func() {
			Expect(do("PUT", "/reference", map[string]string{"name": "P2"}).Code).To(Equal(204))
			ss := series()
			Expect(ss["P1"]).To(Equal([]float64{0.25, 0.75}))
			Expect(ss["P2"]).To(Equal([]float64{0.0, 0.5}))
		})

		It("rejects an unknown reference", func() {
			Expect(do("PUT", "/reference", map[string]string{"name": "P9"}).Code).To(Equal(404))
		})

		It("summarizes the scene and every series", func() {
			w := do("GET", "/statistics", nil)
			Expect(w.Code).To(Equal(200))
			var stats workflow.Statistics
			Expect(json.Unmarshal(w.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats.Scene).NotTo(BeNil())
			Expect(stats.Scene.ValidPixels).To(Equal(15))
			Expect(stats.Points).To(HaveLen(2))
		})
	})

	Describe("exports", func() {
		It("writes the series as CSV", func() {
			loadAll()
			do("POST", "/points", map[string]int{"x": 1, "y": 1})
			dir, err := os.MkdirTemp("", "export")
			Expect(err).NotTo(HaveOccurred())
			defer os.RemoveAll(dir)
			path := filepath.Join(dir, "series.csv")
			w := do("POST", "/export/csv", map[string]string{"path": path})
			Expect(w.Code).To(Equal(200))
			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines[0]).To(Equal("Point,X,Y,Date,Displacement_m,Displacement_mm"))
			Expect(lines).To(HaveLen(3))
		})

		It("rejects an unknown kind", func() {
			loadAll()
			Expect(do("POST", "/export/hologram", map[string]string{"path": "/tmp/x"}).Code).To(Equal(500))
		})
	})

	Describe("jobs", func() {
		It("has no job before the first start", func() {
			Expect(do("GET", "/jobs/download", nil).Code).To(Equal(404))
		})

		It("rejects a download without configured provider", func() {
			w := do("POST", "/download", map[string]interface{}{
				"scenes": []common.Scene{{SourceID: "scene"}},
			})
			Expect(w.Code).To(Equal(400))
		})

		It("rejects a search without configured catalog", func() {
			w := do("POST", "/search", map[string]interface{}{
				"west": 1.0, "south": 43.0, "east": 2.0, "north": 44.0,
			})
			Expect(w.Code).To(Equal(500))
		})
	})
})
