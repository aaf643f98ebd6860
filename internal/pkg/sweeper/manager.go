package sweeper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/melkbazar/MelkBazar/internal/pkg/env"
	"github.com/melkbazar/MelkBazar/internal/pkg/payment"
)

// Manager runs the periodic expiry sweep over pending payments. The sweep is
// idempotent (per-record compare-and-set in the lifecycle service), so
// overlapping runs and multiple instances are safe.
type Manager struct {
	service *payment.Service
	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// Init creates the global sweeper for the given lifecycle service.
func Init(service *payment.Service) *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{service: service}
	})
	return globalManager
}

// GetManager returns the global sweeper, or nil before Init.
func GetManager() *Manager {
	return globalManager
}

// Start begins the periodic sweep.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	interval := sweepInterval()
	m.stopCh = make(chan struct{})
	m.ticker = time.NewTicker(interval)
	m.running = true

	m.wg.Add(1)
	go m.sweepWorker()

	log.Infof("[Sweeper] Started expiry sweep (interval: %s)", interval)
}

// Stop halts the sweep and waits for an in-flight run to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.ticker.Stop()
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	log.Info("[Sweeper] Stopped")
}

// RunOnce performs a single sweep pass. Exposed for the migrate/ops tooling.
func (m *Manager) RunOnce(ctx context.Context) (int, error) {
	return m.service.SweepExpired(ctx)
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			log.Info("[Sweeper] Sweep worker stopping")
			return
		case <-m.ticker.C:
			if _, err := m.service.SweepExpired(context.Background()); err != nil {
				log.Errorf("[Sweeper] Expiry sweep failed: %v", err)
			}
		}
	}
}

func sweepInterval() time.Duration {
	minutes := 5
	if v, err := strconv.Atoi(env.GetEnv("SWEEP_INTERVAL_MINUTES", "5")); err == nil && v > 0 {
		minutes = v
	}
	return time.Duration(minutes) * time.Minute
}
