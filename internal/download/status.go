package download

import (
	"sync"
	"time"

	"arxivmcp/internal/logging"

	"github.com/google/uuid"
)

// Status is the state of a download or conversion.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusConverting  Status = "converting"
	StatusSuccess     Status = "success"
	StatusError       Status = "error"
	// StatusUnknown is only ever reported, never stored: nothing is known about the paper.
	StatusUnknown Status = "unknown"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// ConversionStatus tracks one PDF download and conversion.
type ConversionStatus struct {
	PaperID string
	// JobID correlates log lines of one attempt.
	JobID       string
	Title       string
	Status      Status
	StartedAt   time.Time
	CompletedAt time.Time // zero until terminal
	Error       string    // set iff Status == StatusError
}

// Registry maps paper identifiers to in-flight conversions. It is safe for
// concurrent use; readers always receive copies.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*ConversionStatus
	logger  *logging.AppLogger
	now     func() time.Time
}

func NewRegistry(logger *logging.AppLogger) *Registry {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Registry{
		entries: make(map[string]*ConversionStatus),
		logger:  logger,
		now:     time.Now,
	}
}

// Begin creates a downloading entry for paperID unless one exists. It returns
// the entry's snapshot and whether it was created by this call.
func (r *Registry) Begin(paperID string) (ConversionStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.entries[paperID]; ok {
		return *st, false
	}
	st := &ConversionStatus{
		PaperID:   paperID,
		JobID:     uuid.NewString(),
		Status:    StatusDownloading,
		StartedAt: r.now(),
	}
	r.entries[paperID] = st
	r.logger.Debug("Conversion registered", "paper_id", paperID, "job_id", st.JobID)
	return *st, true
}

// Get returns a snapshot of the entry for paperID.
func (r *Registry) Get(paperID string) (ConversionStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.entries[paperID]
	if !ok {
		return ConversionStatus{}, false
	}
	return *st, true
}

// SetTitle records the paper title once it is known.
func (r *Registry) SetTitle(paperID, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.entries[paperID]; ok {
		st.Title = title
	}
}

// Advance moves a non-terminal entry to another non-terminal status.
// It reports whether the entry was changed.
func (r *Registry) Advance(paperID string, status Status) bool {
	if status.Terminal() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.entries[paperID]
	if !ok || st.Status.Terminal() || st.Status == status {
		return false
	}
	from := st.Status
	st.Status = status
	r.logger.LogStateTransition("conversion "+paperID, string(from), string(status))
	return true
}

// Complete moves the entry to success (err == nil) or error. CompletedAt is
// set exactly once; completing an already terminal entry is a no-op.
func (r *Registry) Complete(paperID string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.entries[paperID]
	if !ok || st.Status.Terminal() {
		return false
	}
	from := st.Status
	st.CompletedAt = r.now()
	if err != nil {
		st.Status = StatusError
		st.Error = truncate(err.Error(), maxErrorLen)
	} else {
		st.Status = StatusSuccess
	}
	r.logger.LogStateTransition("conversion "+paperID, string(from), string(st.Status))
	return true
}

// Remove deletes the entry for paperID, if any.
func (r *Registry) Remove(paperID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, paperID)
}

// Snapshot returns copies of all entries.
func (r *Registry) Snapshot() []ConversionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ConversionStatus, 0, len(r.entries))
	for _, st := range r.entries {
		out = append(out, *st)
	}
	return out
}

// Len returns the number of in-flight entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
