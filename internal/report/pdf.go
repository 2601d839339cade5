// Package report assembles rendered graph images into bookmarked PDF documents.
package report

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"

	"frc2g/internal/utils"
)

var ErrNoImages = errors.New("no images to assemble")

var pngOptions = fpdf.ImageOptions{ImageType: "PNG"}

// Assemble writes one A4 page per image. Each image is scaled to fit the page,
// centred, and bookmarked with its page title.
func Assemble(images []string, pdfPath, title string) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("frc2g", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pageW, pageH := pdf.GetPageSize()

	for _, img := range images {
		info := pdf.RegisterImageOptions(img, pngOptions)
		if pdf.Err() || info == nil {
			return fmt.Errorf("load image %s: %w", img, pdf.Error())
		}
		w, h := info.Extent()
		if w <= 0 || h <= 0 {
			return fmt.Errorf("image %s has no size", img)
		}
		x, y, w, h := fit(pageW, pageH, w, h)

		pdf.AddPage()
		pdf.Bookmark(PageTitle(img), 0, 0)
		pdf.ImageOptions(img, x, y, w, h, false, pngOptions, 0, "")
	}
	if err := pdf.OutputFileAndClose(pdfPath); err != nil {
		return fmt.Errorf("write %s: %w", pdfPath, err)
	}
	slog.Info("PDF generated", "path", pdfPath, "pages", len(images))
	return nil
}

// fit scales a w x h image uniformly to the largest size that fits the page
// and returns its centred position and scaled size.
func fit(pageW, pageH, w, h float64) (x, y, sw, sh float64) {
	scale := math.Min(pageW/w, pageH/h)
	sw, sh = w*scale, h*scale
	return (pageW - sw) / 2, (pageH - sh) / 2, sw, sh
}

// PageTitle is the image file name without its ".gv.png" or ".png" suffix.
func PageTitle(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gv.png")
	return strings.TrimSuffix(name, ".png")
}

// Images returns the PNG files of dir, sorted.
func Images(dir string) []string {
	images, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil
	}
	sort.Strings(images)
	return images
}

// ImagesForInterface returns the PNG files of dir whose page title contains
// the file-safe interface name.
func ImagesForInterface(dir, iface string) []string {
	safe := utils.SafeFilename(iface)
	var out []string
	for _, img := range Images(dir) {
		if strings.Contains(PageTitle(img), safe) {
			out = append(out, img)
		}
	}
	return out
}

// Title is the document title of a firewall's flow matrix.
func Title(host string) string {
	return "Flow matrix for gateway " + host
}

// DocumentName is "<host>_FLOW_MATRIX.pdf", or "<host>_<iface>_FLOW_MATRIX.pdf"
// for a single interface.
func DocumentName(host, iface string) string {
	if iface == "" {
		return host + "_FLOW_MATRIX.pdf"
	}
	return host + "_" + utils.SafeFilename(iface) + "_FLOW_MATRIX.pdf"
}

// RemoveImages deletes the given files. Failures only warn.
func RemoveImages(images []string) int {
	removed := 0
	for _, img := range images {
		if err := os.Remove(img); err != nil {
			slog.Warn("Could not delete image", "path", img, "error", err)
			continue
		}
		removed++
	}
	return removed
}
