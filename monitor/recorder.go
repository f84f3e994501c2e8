package monitor

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tnc-ca-geo/SAGE/backend"
)

var tasksGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "sage_tasks",
	Help: "The number of remote tasks per credential and state as of the latest poll",
}, []string{"credential", "state"})

func exportGauges(snap *Snapshot) {
	for _, state := range backend.States {
		tasksGauge.WithLabelValues(snap.Credential, string(state)).Set(float64(snap.Count(state)))
	}
}

// Recorder keeps the most recent snapshot for each credential.
type Recorder struct {
	mu     sync.RWMutex
	latest map[string]*Snapshot
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{latest: make(map[string]*Snapshot)}
}

// Record stores snap as the latest snapshot of its credential.
func (r *Recorder) Record(snap *Snapshot) {
	r.mu.Lock()
	r.latest[snap.Credential] = snap
	r.mu.Unlock()
}

// Latest returns the most recent snapshot for credential.
func (r *Recorder) Latest(credential string) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, found := r.latest[credential]
	return snap, found
}

// Snapshots returns the latest snapshot of every credential sorted by
// credential name.
func (r *Recorder) Snapshots() []*Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Snapshot, 0, len(r.latest))
	for _, snap := range r.latest {
		list = append(list, snap)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Credential < list[j].Credential })
	return list
}
