package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository implementations behind their interfaces.
type Repositories struct {
	Plan         PlanRepository
	Payment      PaymentRepository
	User         UserRepository
	Grant        GrantRepository
	Notification NotificationRepository

	db *gorm.DB
}

// NewRepositories creates all repositories on a shared DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Plan:         NewPlanRepository(db),
		Payment:      NewPaymentRepository(db),
		User:         NewUserRepository(db),
		Grant:        NewGrantRepository(db),
		Notification: NewNotificationRepository(db),
		db:           db,
	}
}

// Transaction runs fn against tx-scoped repositories. Everything fn does
// through them commits or rolls back as a unit; the approve transition relies
// on this to never mark a payment approved while the entitlement write failed.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	if r.db == nil {
		// Repositories assembled without a DB handle (fakes in tests) run
		// the callback against themselves.
		return fn(r)
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

var (
	globalFactory *Factory
	globalOnce    sync.Once
)

// InitGlobalFactory initializes the global repository factory
func InitGlobalFactory(db *gorm.DB) *Factory {
	globalOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
	return globalFactory
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	return globalFactory
}
