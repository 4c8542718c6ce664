// Package quota enforces per-tenant resource limits on creation. The
// check-then-create sequence is serialized per (tenant, kind) so two
// concurrent creations cannot both pass the count check and jointly
// overshoot the limit.
package quota

import (
	"fmt"
	"sync"

	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/model"
	"projecthub/prometheus"
)

// Kind is a quota-limited resource kind.
type Kind string

const (
	KindUsers    Kind = "users"
	KindProjects Kind = "projects"
)

// ErrLimitReached is the sentinel for quota denials; match with
// errors.Is.
var ErrLimitReached = apperr.WithCode(apperr.Forbidden, apperr.CodeLimitReached, "subscription limit reached")

// Guard serializes quota checks per (tenant, kind). The lock table is
// the only mutable state and grows by one entry per tenant-kind pair
// ever seen by this process.
type Guard struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGuard creates a quota guard over the given database handle.
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (g *Guard) lockFor(tenantID uint, kind Kind) *sync.Mutex {
	key := fmt.Sprintf("%d/%s", tenantID, kind)
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[key]
	if !ok {
		l = &sync.Mutex{}
		g.locks[key] = l
	}
	return l
}

// Reserve checks the tenant's current count of kind against its limit
// and, if below, runs create inside the same transaction. The count
// check and the insert are all-or-nothing: if create fails the
// transaction rolls back and the count is unchanged.
func (g *Guard) Reserve(tenantID uint, kind Kind, create func(tx *gorm.DB) error) error {
	l := g.lockFor(tenantID, kind)
	l.Lock()
	defer l.Unlock()

	err := g.db.Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := tx.First(&tenant, tenantID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "tenant not found")
			}
			return apperr.Wrap("load tenant", err)
		}

		var limit int64
		var count int64
		switch kind {
		case KindUsers:
			limit = int64(tenant.MaxUsers)
			if err := tx.Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
				return apperr.Wrap("count users", err)
			}
		case KindProjects:
			limit = int64(tenant.MaxProjects)
			if err := tx.Model(&model.Project{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
				return apperr.Wrap("count projects", err)
			}
		default:
			return apperr.Wrap("quota guard", fmt.Errorf("unknown resource kind %q", kind))
		}

		if count >= limit {
			return ErrLimitReached
		}

		return create(tx)
	})

	if err == ErrLimitReached {
		prometheus.RecordQuotaDenied(string(kind))
	}
	return err
}
