package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"loadgrid/internal/configstore"
	"loadgrid/internal/job"
)

// memStore is a minimal in-process configstore.Store double.
type memStore struct {
	mu  sync.Mutex
	cfg *configstore.Config
}

func (m *memStore) Load(ctx context.Context) (*configstore.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, nil
}

func (m *memStore) Save(ctx context.Context, cfg *configstore.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	return nil
}

type stubScheduler struct{}

func (stubScheduler) JobCompleted(job.Completion) {}
func (stubScheduler) JobKnown(job.ID) bool         { return true }
func (stubScheduler) Start(context.Context) error  { return nil }
func (stubScheduler) Stop(context.Context) error   { return nil }

func TestReadOnlyModeConstructsNoListeners(t *testing.T) {
	store := &memStore{cfg: &configstore.Config{ReadOnly: true}}

	c, err := New(context.Background(), Options{Store: store, Scheduler: stubScheduler{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.loadPool != nil || c.monitorReg != nil || c.statListen != nil || c.managerReg != nil {
		t.Fatal("read-only coordinator must not construct any listener")
	}
}

func TestReadOnlyRunSavesConfigOnCancel(t *testing.T) {
	store := &memStore{cfg: &configstore.Config{ReadOnly: true, AuthScheme: "none"}}

	c, err := New(context.Background(), Options{Store: store, Scheduler: stubScheduler{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	got, _ := store.Load(context.Background())
	if got.AuthScheme != "none" {
		t.Fatalf("config not persisted on shutdown: %+v", got)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	store := &memStore{}
	if _, err := New(context.Background(), Options{Store: store, Scheduler: stubScheduler{}}); err == nil {
		t.Fatal("expected error when no configuration exists")
	}
}

func TestQueryHelpersOnEmptyCoordinator(t *testing.T) {
	store := &memStore{cfg: &configstore.Config{
		LoadListener:    configstore.ListenerConfig{Addr: "127.0.0.1:0"},
		MonitorListener: configstore.ListenerConfig{Addr: "127.0.0.1:0"},
		StatListener:    configstore.ListenerConfig{Addr: "127.0.0.1:0"},
		ManagerListener: configstore.ListenerConfig{Addr: "127.0.0.1:0"},
	}}

	c, err := New(context.Background(), Options{Store: store, Scheduler: stubScheduler{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := c.SortedLoadClients(); len(got) != 0 {
		t.Fatalf("expected no load clients, got %v", got)
	}
	if _, ok := c.findByClientID("nonexistent"); ok {
		t.Fatal("findByClientID must report not-found on an empty pool")
	}
	if err := c.RequestDisconnect(context.Background(), "nonexistent"); err == nil {
		t.Fatal("expected error disconnecting an unknown client")
	}
	if c.ConnectionsAvailableFor(job.Job{ID: "job-1"}) != 0 {
		t.Fatal("expected zero available connections on an empty pool")
	}
}
