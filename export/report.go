package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/sarlab/insar-analyzer/analysis"
)

// Report bundles everything that goes into the PDF summary.
type Report struct {
	Title       string
	ProductName string
	Generated   time.Time

	Epochs    int       // displacement epochs in the stack
	FirstDate time.Time // earliest secondary date, optional
	LastDate  time.Time // latest secondary date, optional

	MapPNG   []byte // rendered raster, optional
	MapLabel string // unit caption under the map, optional

	FigurePNG []byte // time-series figure, optional

	Scene  *analysis.SceneStats
	Points []analysis.PointStats
}

// WritePDF renders the report to path as an A4 portrait document.
func (r Report) WritePDF(path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	title := r.Title
	if title == "" {
		title = "InSAR Analysis Report"
	}
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	generated := r.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.CellFormat(0, 6, "Generated: "+generated.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	if r.ProductName != "" {
		pdf.CellFormat(0, 6, "Product: "+r.ProductName, "", 1, "C", false, 0, "")
	}
	if r.Epochs > 0 {
		span := fmt.Sprintf("Epochs: %d", r.Epochs)
		if !r.FirstDate.IsZero() && !r.LastDate.IsZero() {
			span += fmt.Sprintf(" (%s to %s)", r.FirstDate.Format("2006-01-02"), r.LastDate.Format("2006-01-02"))
		}
		pdf.CellFormat(0, 6, span, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if len(r.MapPNG) > 0 {
		embedPNG(pdf, "map", r.MapPNG, 170)
		if r.MapLabel != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 6, r.MapLabel, "", 1, "C", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.Ln(4)
	}

	if r.Scene != nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Scene statistics", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		statRow(pdf, "Valid pixels", fmt.Sprintf("%d", r.Scene.ValidPixels))
		statRow(pdf, "Mean", fmt.Sprintf("%.4f m", r.Scene.MeanM))
		statRow(pdf, "Std dev", fmt.Sprintf("%.4f m", r.Scene.StdM))
		statRow(pdf, "Min / Max", fmt.Sprintf("%.4f / %.4f m", r.Scene.MinM, r.Scene.MaxM))
		statRow(pdf, "Subsiding area", fmt.Sprintf("%.1f %%", r.Scene.SubsidenceFraction*100))
		pdf.Ln(4)
	}

	if len(r.Points) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Point statistics", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		widths := []float64{20, 15, 25, 25, 25, 25, 30}
		headers := []string{"Point", "N", "Mean (mm)", "Std (mm)", "Min (mm)", "Max (mm)", "Rate (mm/yr)"}
		for i, h := range headers {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, ps := range r.Points {
			cells := []string{
				ps.Name,
				fmt.Sprintf("%d", ps.Count),
				fmt.Sprintf("%.2f", ps.MeanMM),
				fmt.Sprintf("%.2f", ps.StdMM),
				fmt.Sprintf("%.2f", ps.MinMM),
				fmt.Sprintf("%.2f", ps.MaxMM),
				fmt.Sprintf("%.2f", ps.RateMMYr),
			}
			for i, c := range cells {
				pdf.CellFormat(widths[i], 7, c, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if len(r.FigurePNG) > 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Displacement time series", "", 1, "L", false, 0, "")
		embedPNG(pdf, "figure", r.FigurePNG, 180)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("WritePDF: %w", err)
	}
	return nil
}

func embedPNG(pdf *fpdf.Fpdf, name string, png []byte, width float64) {
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	pdf.ImageOptions(name, (210-width)/2, pdf.GetY(), width, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

func statRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.CellFormat(50, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}
