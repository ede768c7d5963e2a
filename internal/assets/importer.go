package assets

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/mockupreel/internal/source"
	"github.com/ivlev/mockupreel/internal/system"
)

const DefaultDPI = 150

// Imported is a screen ready for registration plus the hook that frees what
// the importer created for it.
type Imported struct {
	Screen  Screen
	Release func()
}

// Importer turns file paths into screens. Still images are decoded up front,
// PDFs expand into one screen per page, videos are passed through by URL.
type Importer struct {
	DPI     int
	Workers int
	TempDir string
	logger  *slog.Logger
}

func NewImporter(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{DPI: DefaultDPI, Workers: 4, logger: logger}
}

// Import resolves every path concurrently and returns the screens in input
// order. Unsupported or unreadable files are skipped with a warning; an
// error is returned only when nothing could be imported or ctx ends.
func (im *Importer) Import(ctx context.Context, paths []string) ([]Imported, error) {
	results := make([][]Imported, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	workers := im.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			items, err := im.importOne(p)
			if err != nil {
				im.logger.Warn("skipping input", "path", p, "error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Imported
	for _, items := range results {
		out = append(out, items...)
	}
	if len(out) == 0 && len(paths) > 0 {
		return nil, fmt.Errorf("no importable screens in %d input(s)", len(paths))
	}
	return out, nil
}

func (im *Importer) importOne(path string) ([]Imported, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}

	switch system.KindOf(abs) {
	case system.KindVideo:
		return []Imported{{Screen: Screen{
			ID:      uuid.NewString(),
			Path:    abs,
			URL:     fileURL(abs),
			Name:    baseName(abs),
			IsVideo: true,
		}}}, nil
	case system.KindImage:
		src, err := source.NewImageSource(abs)
		if err != nil {
			return nil, err
		}
		s := Screen{ID: uuid.NewString(), Path: abs, URL: fileURL(abs), Name: src.PageName(0)}
		img, err := src.RenderPage(0, 0)
		if err != nil {
			// The screen stays usable as a placeholder.
			im.logger.Warn("image decode failed", "path", abs, "error", err)
		} else {
			s.Still = img
			s.Width, s.Height = img.Bounds().Dx(), img.Bounds().Dy()
		}
		return []Imported{{Screen: s}}, nil
	case system.KindPDF:
		return im.importPDF(abs)
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(abs))
}

func (im *Importer) importPDF(path string) ([]Imported, error) {
	src, err := source.NewFitzPDFSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dpi := im.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	out := make([]Imported, 0, src.PageCount())
	for i := 0; i < src.PageCount(); i++ {
		img, err := src.RenderPage(i, dpi)
		if err != nil {
			im.logger.Warn("pdf page render failed", "path", path, "page", i+1, "error", err)
			continue
		}
		s := Screen{
			ID:     uuid.NewString(),
			Path:   path,
			URL:    fileURL(path) + fmt.Sprintf("#page=%d", i+1),
			Name:   fmt.Sprintf("%s (%s)", baseName(path), src.PageName(i)),
			Still:  img,
			Width:  img.Bounds().Dx(),
			Height: img.Bounds().Dy(),
		}
		out = append(out, Imported{Screen: s})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pdf %s: no renderable pages", filepath.Base(path))
	}
	return out, nil
}

// ImportQR renders text as a QR code screen, used as an end card. The PNG
// is written to the importer's temp dir and removed on release.
func (im *Importer) ImportQR(text string, size int) (Imported, error) {
	if size <= 0 {
		size = 1024
	}
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return Imported{}, fmt.Errorf("qr code: %w", err)
	}
	png, err := q.PNG(size)
	if err != nil {
		return Imported{}, fmt.Errorf("qr code: %w", err)
	}

	f, err := os.CreateTemp(im.TempDir, "mockupreel-qr-*.png")
	if err != nil {
		return Imported{}, err
	}
	if _, err := f.Write(png); err != nil {
		f.Close()
		os.Remove(f.Name())
		return Imported{}, err
	}
	f.Close()

	var img image.Image = q.Image(size)
	name := f.Name()
	return Imported{
		Screen: Screen{
			ID:     uuid.NewString(),
			Path:   name,
			URL:    fileURL(name),
			Name:   "QR " + truncate(text, 32),
			Still:  img,
			Width:  img.Bounds().Dx(),
			Height: img.Bounds().Dy(),
		},
		Release: func() { os.Remove(name) },
	}, nil
}

func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
