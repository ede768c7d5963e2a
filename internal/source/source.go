// Package source decodes still inputs into page images. A PDF yields one
// page per document page; an image file is a single page.
package source

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

type Source interface {
	PageCount() int
	PageName(index int) string
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// FitzPDFSource реализует Source через go-fitz
type FitzPDFSource struct {
	doc   *fitz.Document
	path  string
	pages int
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &FitzPDFSource{doc: doc, path: path, pages: doc.NumPage()}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.pages
}

func (f *FitzPDFSource) PageName(index int) string {
	return fmt.Sprintf("page %d", index+1)
}

// RenderPage opens its own document handle so pages can be rendered from
// several goroutines at once.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= f.pages {
		return nil, fmt.Errorf("page %d out of range (%d pages)", index, f.pages)
	}
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
