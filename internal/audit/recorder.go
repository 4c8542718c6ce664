// Package audit appends records of privileged state changes. Writes
// are asynchronous and best-effort: a failed audit write is logged and
// counted but never fails the operation that triggered it.
package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/model"
	"projecthub/prometheus"
)

// Entry is one privileged state change to record. TenantID nil means
// a tenant-less super-admin action, which is intentionally not
// persisted: audit scope is tenant-relative only.
type Entry struct {
	TenantID   *uint
	UserID     *uint
	Action     string
	EntityType string
	EntityID   uint
	IPAddress  string
}

// Recorder appends audit entries through a single background writer,
// which preserves insertion order. Record never blocks the caller: if
// the queue is full the entry is dropped and counted.
type Recorder struct {
	db  *gorm.DB
	log *zap.Logger

	queue chan Entry

	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder starts a recorder with the given queue size.
func NewRecorder(db *gorm.DB, log *zap.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &Recorder{
		db:    db,
		log:   log,
		queue: make(chan Entry, queueSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues an entry. Entries without a tenant are not
// persisted; a full queue drops the entry rather than block the
// request path.
func (r *Recorder) Record(e Entry) {
	if e.TenantID == nil {
		return
	}
	select {
	case r.queue <- e:
		prometheus.AuditQueueGauge.Inc()
	default:
		prometheus.AuditDroppedCounter.Inc()
		r.log.Warn("audit queue full, entry dropped",
			zap.String("action", e.Action),
			zap.Uint("tenant_id", *e.TenantID))
	}
}

// Close stops the writer after draining queued entries.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		prometheus.AuditQueueGauge.Dec()
		r.write(e)
	}
}

func (r *Recorder) write(e Entry) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	row := model.AuditLog{
		TenantID:   *e.TenantID,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		IPAddress:  e.IPAddress,
	}
	if err := r.db.Create(&row).Error; err != nil {
		prometheus.AuditFailedCounter.Inc()
		r.log.Error("failed to write audit log",
			zap.String("action", e.Action),
			zap.Uint("tenant_id", row.TenantID),
			zap.Error(err))
	}
}
