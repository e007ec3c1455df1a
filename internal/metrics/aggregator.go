// Package metrics owns the operation counters of the tool and the
// optional HTTP endpoint that exports them.
package metrics

import (
	"bytes"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Aggregator is the explicitly owned metrics context. Components that
// count operations get it injected; nothing reads ambient global state.
type Aggregator struct {
	mu  sync.Mutex
	reg *prometheus.Registry

	Puts         prometheus.Counter
	Gets         prometheus.Counter
	Deletes      prometheus.Counter
	BytesWritten prometheus.Counter
	JournalSyncs prometheus.Counter
}

func NewAggregator() *Aggregator {
	a := &Aggregator{
		reg: prometheus.NewRegistry(),
		Puts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumpadm", Subsystem: "engine",
			Name: "puts_total", Help: "Number of put operations issued to the engine.",
		}),
		Gets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumpadm", Subsystem: "engine",
			Name: "gets_total", Help: "Number of get operations issued to the engine.",
		}),
		Deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumpadm", Subsystem: "engine",
			Name: "deletes_total", Help: "Number of delete operations issued to the engine.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumpadm", Subsystem: "engine",
			Name: "written_bytes_total", Help: "Payload bytes written to the engine.",
		}),
		JournalSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumpadm", Subsystem: "engine",
			Name: "journal_syncs_total", Help: "Number of explicit journal syncs.",
		}),
	}
	a.reg.MustRegister(a.Puts, a.Gets, a.Deletes, a.BytesWritten, a.JournalSyncs)
	return a
}

// Registry exposes the underlying registry for the exporter endpoint.
func (a *Aggregator) Registry() *prometheus.Registry {
	return a.reg
}

// TryGather renders the current metrics in the Prometheus text format.
// It never blocks: when another caller is gathering at the same moment
// it reports ok=false, which means "busy", not "no metrics exist".
func (a *Aggregator) TryGather() (text string, ok bool) {
	if !a.mu.TryLock() {
		return "", false
	}
	defer a.mu.Unlock()

	families, err := a.reg.Gather()
	if err != nil {
		return "", false
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return "", false
		}
	}
	return buf.String(), true
}
