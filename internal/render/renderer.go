// Package render turns care plans into downloadable PDF documents.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/haircarepro/haircarepro/internal/careplan"
	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/model"
)

// PublicPrefix is the URL path rendered documents are served under.
const PublicPrefix = "/pdfs"

// ErrErrorPlan is returned when asked to render a failed generation.
var ErrErrorPlan = errors.New("cannot render an error care plan")

const (
	title      = "HairCare Pro"
	lineHeight = 7.0
)

var titleColor = [3]int{30, 144, 255}

// Document is a rendered care plan on disk.
type Document struct {
	FileName   string
	FilePath   string
	PublicPath string
}

// Renderer writes care plan PDFs into a directory.
type Renderer struct {
	dir      string
	archiver Archiver
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
	compress bool
}

// NewRenderer creates a Renderer writing into dir.
// archiver may be nil; recorder defaults to a noop recorder.
func NewRenderer(dir string, archiver Archiver, logger *slog.Logger, recorder metrics.Recorder) *Renderer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Renderer{
		dir:      dir,
		archiver: archiver,
		logger:   logger.With("component", "render"),
		metrics:  recorder,
		now:      time.Now,
		compress: true,
	}
}

// EnsureDir creates the output directory if it does not exist.
func (r *Renderer) EnsureDir() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create pdf dir: %w", err)
	}
	return nil
}

// FileName returns the document name for a user at time t.
func FileName(userID string, t time.Time) string {
	return fmt.Sprintf("careplan_%s_%d.pdf", userID, t.UnixMilli())
}

// Render writes plan as a PDF addressed to username.
func (r *Renderer) Render(ctx context.Context, plan model.CarePlan, userID, username string) (*Document, error) {
	if plan.IsError() {
		return nil, ErrErrorPlan
	}

	name := FileName(userID, r.now())
	doc := &Document{
		FileName:   name,
		FilePath:   filepath.Join(r.dir, name),
		PublicPath: path.Join(PublicPrefix, name),
	}

	pdf := r.layout(plan, username)
	if err := pdf.OutputFileAndClose(doc.FilePath); err != nil {
		r.metrics.IncPDFRendered(metrics.StatusFailed)
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	r.metrics.IncPDFRendered(metrics.StatusSuccess)

	r.logger.Info("care plan rendered", "user_id", userID, "file", name)

	if r.archiver != nil {
		if err := r.archiver.Archive(ctx, name, doc.FilePath); err != nil {
			r.logger.Warn("care plan archive failed", "file", name, "error", err)
		}
	}

	return doc, nil
}

func (r *Renderer) layout(plan model.CarePlan, username string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(title, true)
	pdf.SetCreator(title, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(titleColor[0], titleColor[1], titleColor[2])
	pdf.CellFormat(0, 14, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 9, tr("This prescription is made for "+username), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 14)
	pdf.MultiCell(0, lineHeight, tr("Recommended Wash Frequency: "+plan.WashFrequency), "", "L", false)
	pdf.Ln(lineHeight)

	pdf.MultiCell(0, lineHeight, tr("Ingredients:"), "", "L", false)
	for _, name := range plan.Ingredients {
		line := fmt.Sprintf("- %s: %s", name, plan.Instruction(name, careplan.DefaultInstruction))
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}
	pdf.Ln(lineHeight)

	pdf.MultiCell(0, lineHeight, tr("Tips:"), "", "L", false)
	for _, tip := range plan.Tips {
		pdf.MultiCell(0, lineHeight, tr("- "+tip), "", "L", false)
	}

	return pdf
}
