package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "counsel"

// Registry holds every metric the server exports at /metrics.
var Registry = prometheus.NewRegistry()

var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HealthCheckStatus: 0 = fail, 1 = warn, 2 = pass.
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Individual health check status (0=fail, 1=warn, 2=pass)",
	},
	[]string{"check"},
)

// SectionRenders counts section renders by type and outcome (ok, error, unknown).
var SectionRenders = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "site",
		Name:      "section_renders_total",
		Help:      "Page sections rendered, by section type and outcome",
	},
	[]string{"type", "outcome"},
)

var PageRenderDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "site",
		Name:      "page_render_duration_seconds",
		Help:      "Time spent resolving data and rendering a full page",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"kind"},
)

// ConfigCacheLookups counts site configuration cache lookups by result (hit, miss).
var ConfigCacheLookups = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "siteconfig",
		Name:      "cache_lookups_total",
		Help:      "Site configuration cache lookups by result",
	},
	[]string{"result"},
)

// FormSubmissions counts public form posts by form (contact, apply) and result.
var FormSubmissions = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "form_submissions_total",
		Help:      "Public form submissions by form and result",
	},
	[]string{"form", "result"},
)

var UploadedBytes = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Bytes written to the upload store",
	},
)

var EmailsSent = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Notification emails by transport and result",
	},
	[]string{"transport", "result"},
)

// Init registers runtime collectors and records build information.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
