// Package metrics records per-run figures and exports them for the node
// exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the metrics of one run on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	RulesFetched       prometheus.Gauge
	RulesNormalized    prometheus.Gauge
	AliasesLoaded      prometheus.Gauge
	InterfacesDetected prometheus.Gauge
	GraphsRendered     prometheus.Counter
	DocumentsGenerated prometheus.Counter
	EvidenceUploads    *prometheus.CounterVec
	Regenerated        prometheus.Gauge
	LastRun            prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		RulesFetched: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frc2g_rules_fetched",
			Help: "Unique raw rules fetched from the gateway.",
		}),
		RulesNormalized: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frc2g_rules_normalized",
			Help: "Canonical rule rows produced.",
		}),
		AliasesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frc2g_aliases_loaded",
			Help: "Host, network and port aliases retained.",
		}),
		InterfacesDetected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frc2g_interfaces_detected",
			Help: "Interfaces fetched individually, configured or detected.",
		}),
		GraphsRendered: factory.NewCounter(prometheus.CounterOpts{
			Name: "frc2g_graphs_rendered",
			Help: "Gateway graph images rendered.",
		}),
		DocumentsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "frc2g_documents_generated",
			Help: "PDF documents written.",
		}),
		EvidenceUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frc2g_evidence_uploads_total",
			Help: "Evidence uploads by result.",
		}, []string{"result"}),
		Regenerated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frc2g_regenerated",
			Help: "1 when the last run regenerated artefacts, 0 when rules were unchanged.",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frc2g_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run.",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// SetRegenerated records whether artefacts were rebuilt.
func (r *Recorder) SetRegenerated(regenerated bool) {
	if regenerated {
		r.Regenerated.Set(1)
	} else {
		r.Regenerated.Set(0)
	}
}

// Finish stamps the run completion time.
func (r *Recorder) Finish(now time.Time) {
	r.LastRun.Set(float64(now.Unix()))
}

// WriteTextfile writes all metrics in text exposition format. The file is
// replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
