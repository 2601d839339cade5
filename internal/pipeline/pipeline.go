// Package pipeline runs one extraction: fetch, normalize, change detection,
// graph rendering, document assembly and evidence upload.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"frc2g/internal/alias"
	"frc2g/internal/config"
	"frc2g/internal/evidence"
	"frc2g/internal/gateway"
	"frc2g/internal/graph"
	"frc2g/internal/metrics"
	"frc2g/internal/model"
	"frc2g/internal/report"
	"frc2g/internal/rules"
	"frc2g/internal/state"
	"frc2g/internal/utils"
)

// Publisher uploads the generated documents.
type Publisher interface {
	Enabled() bool
	UploadAll(ctx context.Context, dir string) evidence.Stats
}

// Deps are the collaborators of a Runner. Nil Renderer, Publisher and
// Metrics fall back to the Graphviz renderer, the configured evidence
// publisher and a fresh recorder.
type Deps struct {
	Gateway   gateway.Gateway
	Store     state.Store
	Renderer  graph.Renderer
	Publisher Publisher
	Metrics   *metrics.Recorder
}

type Runner struct {
	cfg       *config.Config
	gateway   gateway.Gateway
	store     state.Store
	detector  *state.Detector
	renderer  graph.Renderer
	publisher Publisher
	metrics   *metrics.Recorder
	now       func() time.Time
}

func New(cfg *config.Config, deps Deps) *Runner {
	if deps.Renderer == nil {
		deps.Renderer = graph.NewGraphvizRenderer(cfg.Graph.DotBinary)
	}
	if deps.Publisher == nil {
		deps.Publisher = evidence.NewPublisher(cfg)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Runner{
		cfg:       cfg,
		gateway:   deps.Gateway,
		store:     deps.Store,
		detector:  state.NewDetector(deps.Store),
		renderer:  deps.Renderer,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// Open builds a Runner with the gateway and fingerprint store selected by cfg.
// Configuration errors are returned before anything is fetched or written.
func Open(cfg *config.Config) (*Runner, error) {
	gw, err := gateway.New(cfg)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, Deps{Gateway: gw, Store: store}), nil
}

// OpenStore opens the fingerprint store of cfg.State. SQL stores are scoped
// by firewall host.
func OpenStore(cfg *config.Config) (state.Store, error) {
	switch cfg.State.Driver {
	case "", "file":
		return state.NewFileStore(cfg.State.Path), nil
	case state.DriverMySQL, state.DriverSQLite:
		store, err := state.OpenSQLStore(cfg.State.Driver, cfg.State.DSN, cfg.FirewallHost())
		if err != nil {
			return nil, fmt.Errorf("open fingerprint store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown state driver: %q", cfg.State.Driver)
	}
}

func (r *Runner) Close() error {
	return r.store.Close()
}

func (r *Runner) Metrics() *metrics.Recorder { return r.metrics }

// Run performs one extraction. Fetch failures and an empty rule set are not
// errors; only the work file and the fingerprint store can fail a run.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("Starting rule extraction", "type", r.gateway.Type(), "gateway", r.cfg.GatewayName())

	slog.Info("Fetching aliases from API")
	tables := r.gateway.FetchAliases(ctx)
	r.metrics.AliasesLoaded.Set(float64(tables.AliasCount()))
	slog.Debug("Aliases loaded",
		"interfaces", tables.InterfaceCount(),
		"networks", tables.NetworkCount(),
		"ports", tables.PortCount())
	resolver := alias.NewResolver(tables, r.cfg.Labels.Any)

	set := r.gateway.FetchRules(ctx)
	r.metrics.RulesFetched.Set(float64(len(set.Rules)))
	r.metrics.InterfacesDetected.Set(float64(len(set.Interfaces)))
	if len(set.Rules) == 0 {
		slog.Error("No firewall rules retrieved",
			"type", r.gateway.Type(),
			"url", r.cfg.BaseURL(),
			"hint", "check the API credentials, the base URL, that the firewall accepts API calls from this host, then rerun with --debug")
		r.finish()
		return nil
	}
	slog.Info("Retrieved rules", "count", len(set.Rules), "interfaces", set.Interfaces)

	rows := make([]model.CanonicalRule, 0, len(set.Rules))
	for _, raw := range set.Rules {
		rows = append(rows, r.gateway.Normalize(raw, resolver))
	}
	r.metrics.RulesNormalized.Set(float64(len(rows)))

	work := r.cfg.WorkCSV()
	if err := rules.WriteFile(work, rows); err != nil {
		return fmt.Errorf("write canonical rules: %w", err)
	}
	defer removeWorkFile(work)
	slog.Info("CSV file generated", "path", work, "rules", len(rows))

	regenerate, err := r.detector.ShouldRegenerate(ctx, rows)
	if err != nil {
		return fmt.Errorf("change detection: %w", err)
	}
	r.metrics.SetRegenerated(regenerate)
	if !regenerate {
		slog.Info("No rules created or modified")
		r.finish()
		return nil
	}

	// Graphs are built from the work file so documents match the fingerprinted rows.
	rows, err = rules.ReadFile(work)
	if err != nil {
		return fmt.Errorf("read canonical rules: %w", err)
	}
	if err := r.generate(ctx, rows, resolver); err != nil {
		return err
	}

	if r.publisher.Enabled() {
		slog.Info("Uploading PDFs to evidence store")
		stats := r.publisher.UploadAll(ctx, r.cfg.OutputDir())
		r.metrics.EvidenceUploads.WithLabelValues("success").Add(float64(stats.Successful))
		r.metrics.EvidenceUploads.WithLabelValues("failure").Add(float64(stats.Failed))
		if stats.Failed > 0 {
			slog.Warn("Some PDFs could not be uploaded", "failed", stats.Failed, "total", stats.Total)
		}
	}
	r.finish()
	return nil
}

func (r *Runner) generate(ctx context.Context, rows []model.CanonicalRule, resolver *alias.Resolver) error {
	dir := r.cfg.OutputDir()
	host := r.cfg.FirewallHost()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	slog.Info("Changes detected, generating graphs", "dir", dir)

	r.exportCSV(filepath.Join(dir, host+"_ALL_flows.csv"), rows)

	builder := graph.NewBuilder(r.graphOptions(resolver))
	slog.Info("Generating global graph")
	images := graph.RenderAll(ctx, builder.Build(rows, ""), r.renderer, dir)
	r.metrics.GraphsRendered.Add(float64(len(images)))
	r.assemble(images, filepath.Join(dir, report.DocumentName(host, "")), "")

	ifaces := rules.Interfaces(rows)
	for _, iface := range ifaces {
		subset := rules.ForInterface(rows, iface)
		slog.Info("Processing interface", "interface", iface, "rules", len(subset))
		r.exportCSV(filepath.Join(dir, host+"_"+utils.SafeFilename(iface)+"_flows.csv"), subset)

		rendered := graph.RenderAll(ctx, builder.Build(rows, iface), r.renderer, dir)
		r.metrics.GraphsRendered.Add(float64(len(rendered)))
		r.assemble(report.ImagesForInterface(dir, iface), filepath.Join(dir, report.DocumentName(host, iface)), iface)
	}
	slog.Info("Generated files for interfaces", "count", len(ifaces))

	if !r.cfg.Output.KeepImages {
		if n := report.RemoveImages(report.Images(dir)); n > 0 {
			slog.Info("Cleaned up temporary PNG files", "count", n)
		}
	}
	return nil
}

func (r *Runner) graphOptions(resolver *alias.Resolver) graph.Options {
	opts := graph.Options{
		AnyValue:         r.cfg.Labels.Any,
		UnknownLabel:     r.cfg.Labels.Unknown,
		DisabledLabel:    r.cfg.Labels.Disabled,
		FloatingLabels:   r.cfg.Labels.Floating,
		PortServiceNames: r.cfg.Graph.PortServiceNames,
		Formatter:        resolver,
	}
	if len(opts.FloatingLabels) > 0 {
		opts.FloatingLabel = opts.FloatingLabels[0]
	}
	return opts
}

func (r *Runner) exportCSV(path string, rows []model.CanonicalRule) {
	if !r.cfg.Output.ExportCSV {
		return
	}
	if err := rules.WriteFile(path, rows); err != nil {
		slog.Warn("Could not write CSV export", "path", path, "error", err)
		return
	}
	slog.Info("CSV created", "path", path, "rules", len(rows))
}

func (r *Runner) assemble(images []string, path, iface string) {
	err := report.Assemble(images, path, report.Title(r.cfg.FirewallHost()))
	switch {
	case errors.Is(err, report.ErrNoImages):
		slog.Warn("No PNG files found for PDF", "interface", iface)
	case err != nil:
		slog.Error("Error generating PDF", "path", path, "error", err)
	default:
		r.metrics.DocumentsGenerated.Inc()
	}
}

func (r *Runner) finish() {
	r.metrics.Finish(r.now())
	if path := r.cfg.Metrics.Textfile; path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			slog.Warn("Could not write metrics textfile", "path", path, "error", err)
		}
	}
}

func removeWorkFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not delete temporary CSV file", "path", path, "error", err)
		return
	}
	slog.Info("Temporary CSV file deleted", "path", path)
}
