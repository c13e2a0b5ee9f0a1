// Package document loads the text and layout of a contract PDF.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// SignatureZoneFraction is the share of the last page's height, measured
// from the bottom edge, that is searched for a signature block.
const SignatureZoneFraction = 0.30

// defaultPageHeight is US Letter in points, used when no MediaBox is found.
const defaultPageHeight = 792.0

// Zone is the text found in the signature zone of the last page.
type Zone struct {
	Text string
	Page int // 1-based
}

// Context is a read-only view of one document. It is owned by a single job.
type Context struct {
	Path     string
	FullText string
	Pages    []string

	zone func(ctx context.Context) (Zone, error)
}

// SignatureZone returns the text in the bottom part of the last page.
func (c *Context) SignatureZone(ctx context.Context) (Zone, error) {
	if c.zone == nil {
		return Zone{}, nil
	}
	return c.zone(ctx)
}

// FromPages builds a Context from already-extracted page texts. zone may be
// nil when no layout information is available.
func FromPages(path string, pages []string, zone func(ctx context.Context) (Zone, error)) *Context {
	return &Context{
		Path:     path,
		FullText: strings.Join(pages, ""),
		Pages:    pages,
		zone:     zone,
	}
}

// Load opens the PDF at path and extracts per-page plain text. Read failures
// are soft: they are logged and an empty Context is returned, so the
// pipeline continues with degraded results.
func Load(ctx context.Context, path string, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	pages, err := readPages(path)
	if err != nil {
		logger.Warn("document: reading pdf failed", "path", path, "error", err)
		pages = nil
	}
	return FromPages(path, pages, func(ctx context.Context) (Zone, error) {
		return readSignatureZone(path)
	})
}

func readPages(path string) (pages []string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("parsing pdf: %v", rec)
		}
	}()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func readSignatureZone(path string) (zone Zone, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Zone{}, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()
	defer func() {
		if rec := recover(); rec != nil {
			zone, err = Zone{}, fmt.Errorf("cropping signature zone: %v", rec)
		}
	}()

	n := r.NumPage()
	if n == 0 {
		return Zone{}, fmt.Errorf("pdf has no pages")
	}
	page := r.Page(n)
	if page.V.IsNull() {
		return Zone{Page: n}, nil
	}

	bottom, height := mediaBox(page)
	limit := bottom + height*SignatureZoneFraction

	var runs []pdf.Text
	for _, t := range page.Content().Text {
		if t.Y <= limit {
			runs = append(runs, t)
		}
	}
	return Zone{Text: joinLines(runs), Page: n}, nil
}

// mediaBox returns the bottom edge and height of the page, walking up the
// page tree for inherited boxes.
func mediaBox(page pdf.Page) (bottom, height float64) {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			lly, ury := box.Index(1).Float64(), box.Index(3).Float64()
			return math.Min(lly, ury), math.Abs(ury - lly)
		}
	}
	return 0, defaultPageHeight
}

// joinLines rebuilds reading-order text from positioned glyph runs: lines
// top to bottom, runs left to right, every line terminated by a newline.
func joinLines(runs []pdf.Text) string {
	if len(runs) == 0 {
		return ""
	}
	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines [][]pdf.Text
	var lineY float64
	for _, t := range sorted {
		if len(lines) == 0 || math.Abs(t.Y-lineY) > lineTolerance(t) {
			lines = append(lines, nil)
			lineY = t.Y
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], t)
	}

	var sb strings.Builder
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		var prevEnd float64
		var lastSpace bool
		for i, t := range line {
			if i > 0 && t.X-prevEnd > t.FontSize*0.25 && !lastSpace && t.S != " " {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.S)
			lastSpace = strings.HasSuffix(t.S, " ")
			prevEnd = t.X + t.W
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func lineTolerance(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize * 0.5
	}
	return 2
}
