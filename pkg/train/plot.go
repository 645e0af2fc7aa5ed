package train

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotROC draws the ROC curve and the chance diagonal to a PNG (or any extension plot supports).
func PlotROC(filename string, fpr, tpr []float64, auc float64) error {
	if len(fpr) < 2 || math.IsNaN(auc) {
		return errors.New("roc: curve needs both classes")
	}
	p := plot.New()
	p.Title.Text = "ROC curve"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(fpr))
	for i := range fpr {
		pts[i].X = fpr[i]
		pts[i].Y = tpr[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.Color = color.RGBA{R: 255, A: 255}
	l.LineStyle.Width = vg.Points(2)

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	chance.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(plotter.NewGrid(), chance, l)
	p.Legend.Add(fmt.Sprintf("AUC = %.3f", auc), l)
	p.Legend.Top = false
	p.Legend.Left = false

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	return p.Save(4*vg.Inch, 4*vg.Inch, filename)
}
