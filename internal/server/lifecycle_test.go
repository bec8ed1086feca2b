package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/averyhall/warsim/internal/config"
	"github.com/averyhall/warsim/internal/engine"
	"github.com/averyhall/warsim/internal/game/battlefield"
	"github.com/averyhall/warsim/internal/game/maneuver"
)

type mockService struct {
	started atomic.Bool
	stopped atomic.Bool
	startFn func() error
}

func (m *mockService) Start() error {
	m.started.Store(true)
	if m.startFn != nil {
		return m.startFn()
	}
	// Block until stopped
	for !m.stopped.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (m *mockService) Stop() {
	m.stopped.Store(true)
}

func TestLifecycleStartsAndStopsServices(t *testing.T) {
	logger := zaptest.NewLogger(t)
	lc := NewLifecycle(logger)

	svc1 := &mockService{}
	svc2 := &mockService{}

	lc.Add("svc1", svc1)
	lc.Add("svc2", svc2)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	// Wait for services to start
	deadline := time.After(2 * time.Second)
	for {
		if svc1.started.Load() && svc2.started.Load() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("services did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	assert.True(t, svc1.started.Load())
	assert.True(t, svc2.started.Load())

	// Trigger shutdown
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	assert.True(t, svc1.stopped.Load())
	assert.True(t, svc2.stopped.Load())
}

func TestFuncService(t *testing.T) {
	started := false
	stopped := false

	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() {
			stopped = true
		},
	}

	err := svc.Start()
	assert.NoError(t, err)
	assert.True(t, started)

	svc.Stop()
	assert.True(t, stopped)
}

// stubScheduler never fires; lifecycle tests only exercise state transitions.
type stubScheduler struct{}

func (stubScheduler) Start(func()) {}
func (stubScheduler) Stop()        {}

func testBattlefield() battlefield.Battlefield {
	return battlefield.Battlefield{
		Terrain: battlefield.Terrain{Kind: "plains", MovementCost: 1, CombatModifier: 1, EngagementRange: 20},
		Bounds:  battlefield.Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100},
		Armies: []battlefield.Army{
			{
				ID: "a1", Name: "First Legion", Faction: "crimson",
				Units:    []battlefield.Unit{{Type: battlefield.UnitInfantry, Size: 100, Strength: 1}},
				Position: battlefield.Position{X: 40, Y: 50},
				Status:   battlefield.StatusActive,
			},
			{
				ID: "b1", Name: "Azure Host", Faction: "azure",
				Units:    []battlefield.Unit{{Type: battlefield.UnitInfantry, Size: 100, Strength: 1}},
				Position: battlefield.Position{X: 50, Y: 50},
				Status:   battlefield.StatusActive,
			},
		},
	}
}

func testOrchestrator() *engine.Orchestrator {
	return engine.NewOrchestrator(engine.Options{
		Config: config.EngineConfig{
			TickInterval:      time.Second,
			AttritionConstant: 12,
			BreakThreshold:    0.25,
			RoundCap:          200,
		},
		Catalog:   maneuver.NewCatalog(),
		Resolver:  maneuver.NewResolver(nil, zap.NewNop()),
		Scheduler: stubScheduler{},
		Logger:    zap.NewNop(),
	})
}

func TestBattleService_StartsAndPausesBattle(t *testing.T) {
	orch := testOrchestrator()
	svc := NewBattleService(orch, testBattlefield())

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	deadline := time.After(2 * time.Second)
	for orch.State() != engine.StateActive {
		select {
		case <-deadline:
			t.Fatal("battle did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	svc.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not release Start")
	}
	assert.Equal(t, engine.StatePaused, orch.State())

	// A second Stop is harmless.
	svc.Stop()
}

func TestBattleService_PropagatesStartError(t *testing.T) {
	orch := testOrchestrator()
	svc := NewBattleService(orch, battlefield.Battlefield{})

	err := svc.Start()
	require.ErrorIs(t, err, engine.ErrInvalidBattlefield)
}
