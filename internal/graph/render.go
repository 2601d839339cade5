package graph

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Renderer turns DOT source into an image file.
type Renderer interface {
	Render(ctx context.Context, dot, out string) error
}

// GraphvizRenderer runs the Graphviz dot binary.
type GraphvizRenderer struct {
	Binary string
	Format string
}

func NewGraphvizRenderer(binary string) *GraphvizRenderer {
	if binary == "" {
		binary = "dot"
	}
	return &GraphvizRenderer{Binary: binary, Format: "png"}
}

func (r *GraphvizRenderer) Render(ctx context.Context, dot, out string) error {
	cmd := exec.CommandContext(ctx, r.Binary, "-T"+r.Format, "-o", out)
	cmd.Stdin = strings.NewReader(dot)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", r.Binary, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// RenderAll renders every gateway graph of m into dir and returns the image
// paths in gateway order. A failed gateway is logged and skipped.
func RenderAll(ctx context.Context, m *Model, r Renderer, dir string) []string {
	var images []string
	for _, gw := range m.Gateways {
		out := filepath.Join(dir, ImageName(gw.Name))
		if err := r.Render(ctx, DOT(gw), out); err != nil {
			slog.Error("Graph rendering failed", "gateway", gw.Name, "error", err)
			continue
		}
		slog.Info("Graph generated", "gateway", gw.Name, "path", out, "edges", gw.EdgeCount())
		images = append(images, out)
	}
	return images
}
