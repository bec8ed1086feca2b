// Package engine hosts the battle orchestrator: the tick-driven state
// machine that owns a running battle and drives the round resolver.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/averyhall/warsim/internal/config"
	"github.com/averyhall/warsim/internal/game/battlefield"
	"github.com/averyhall/warsim/internal/game/casualty"
	"github.com/averyhall/warsim/internal/game/combat"
	"github.com/averyhall/warsim/internal/game/dice"
	"github.com/averyhall/warsim/internal/game/maneuver"
	"github.com/averyhall/warsim/internal/game/victory"
)

// ErrInvalidBattlefield is returned by Start when the initial battlefield
// fails validation. The orchestrator stays idle.
var ErrInvalidBattlefield = errors.New("engine: invalid battlefield")

// ErrBattleInProgress is returned by Start while a battle is active or paused.
var ErrBattleInProgress = errors.New("engine: battle already in progress")

// ErrNoBattle is returned by operations that require a loaded battle.
var ErrNoBattle = errors.New("engine: no battle in progress")

// ErrUnknownArmy is returned when an army ID does not match the battlefield.
var ErrUnknownArmy = errors.New("engine: unknown army")

// State is the orchestrator's lifecycle state.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
	StatePaused State = "paused"
	StateEnded  State = "ended"
)

// Result is the terminal artifact of a battle, assembled exactly once when
// the battle ends.
type Result struct {
	BattleID  string
	Victor    string
	Stalemate bool
	Rounds    int
	// Survivors are the armies still holding the field, in setup order.
	Survivors []battlefield.Army
	// Reports covers every army, survivors and casualties alike.
	Reports []casualty.Report
	// Log is the full append-only battle log.
	Log []combat.Round
	// StrategicPoints scores the victory: losses inflicted on the defeated
	// factions net of the victor's own losses. Zero for a stalemate or
	// mutual destruction.
	StrategicPoints int
}

// ResultStore archives terminal battle results. Saves are fire-and-forget
// relative to the tick loop; a nil store disables archiving.
type ResultStore interface {
	SaveResult(ctx context.Context, result Result) error
}

// Options configures an Orchestrator.
type Options struct {
	Config   config.EngineConfig
	Catalog  *maneuver.Catalog
	Resolver *maneuver.Resolver
	// Scheduler drives the tick loop. Nil selects a TickScheduler on the
	// configured tick interval.
	Scheduler Scheduler
	// Source supplies combat variance rolls. Nil selects a seeded source
	// when Config.Seed is nonzero, otherwise a crypto-backed one.
	Source dice.Source
	// Store archives results; nil disables archiving.
	Store  ResultStore
	Logger *zap.Logger
}

// Orchestrator owns one battle at a time. It is the only component that
// mutates the battlefield; resolvers receive copies and return values.
// All methods are safe for concurrent use.
type Orchestrator struct {
	catalog   *maneuver.Catalog
	resolver  *maneuver.Resolver
	scheduler Scheduler
	src       dice.Source
	store     ResultStore
	logger    *zap.Logger
	tuning    combat.Tuning
	roundCap  int

	mu       sync.Mutex
	state    State
	battleID string
	initial  battlefield.Battlefield
	current  battlefield.Battlefield
	baseline map[string]int
	// pending holds maneuver modifiers folded into the next round, keyed
	// by army ID. buffered holds their events, prepended to that round.
	pending  map[string]maneuver.Modifier
	buffered []combat.Event
	round    int
	log      []combat.Round
	result   *Result

	onRound     func(combat.Round)
	onBattleEnd func(Result)
}

// NewOrchestrator creates an idle Orchestrator.
//
// Precondition: opts.Catalog, opts.Resolver, and opts.Logger must be non-nil;
// opts.Config must have passed validation.
func NewOrchestrator(opts Options) *Orchestrator {
	sched := opts.Scheduler
	if sched == nil {
		sched = NewTickScheduler(opts.Config.TickInterval)
	}
	src := opts.Source
	if src == nil {
		if opts.Config.Seed != 0 {
			src = dice.NewSeededSource(opts.Config.Seed)
		} else {
			src = dice.NewCryptoSource()
		}
	}
	return &Orchestrator{
		catalog:   opts.Catalog,
		resolver:  opts.Resolver,
		scheduler: sched,
		src:       src,
		store:     opts.Store,
		logger:    opts.Logger,
		tuning: combat.Tuning{
			AttritionConstant: opts.Config.AttritionConstant,
			BreakThreshold:    opts.Config.BreakThreshold,
			Variance:          opts.Config.Variance,
		},
		roundCap: opts.Config.RoundCap,
		state:    StateIdle,
	}
}

// OnRound registers a hook invoked after every completed round, outside the
// orchestrator's lock. Must be set before Start.
func (o *Orchestrator) OnRound(fn func(combat.Round)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onRound = fn
}

// OnBattleEnd registers a hook invoked once with the terminal result,
// outside the orchestrator's lock. Must be set before Start.
func (o *Orchestrator) OnBattleEnd(fn func(Result)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onBattleEnd = fn
}

// Start validates bf, loads it as the battle's initial state, and begins
// the tick loop.
//
// Precondition: the orchestrator must be idle or ended.
// Postcondition: On nil error the state is active, the log and result are
// cleared, and rounds begin firing. On error no state changes.
func (o *Orchestrator) Start(bf battlefield.Battlefield) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateActive || o.state == StatePaused {
		return ErrBattleInProgress
	}
	if err := bf.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBattlefield, err)
	}

	o.battleID = uuid.NewString()
	o.initial = bf.Clone()
	o.current = bf.Clone()
	o.baseline = make(map[string]int, len(bf.Armies))
	for _, a := range bf.Armies {
		o.baseline[a.ID] = a.TotalSize()
	}
	o.pending = nil
	o.buffered = nil
	o.round = 0
	o.log = nil
	o.result = nil
	o.state = StateActive

	o.logger.Info("battle started",
		zap.String("battle_id", o.battleID),
		zap.Int("armies", len(bf.Armies)),
	)
	o.scheduler.Start(o.tick)
	return nil
}

// Pause halts the tick loop without discarding battle state.
//
// Postcondition: On nil error the state is paused and no further round is
// appended to the log until Resume.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateActive {
		return fmt.Errorf("%w: cannot pause from %s", ErrNoBattle, o.state)
	}
	o.state = StatePaused
	o.scheduler.Stop()
	o.logger.Info("battle paused", zap.String("battle_id", o.battleID), zap.Int("round", o.round))
	return nil
}

// Resume restarts the tick loop of a paused battle.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StatePaused {
		return fmt.Errorf("%w: cannot resume from %s", ErrNoBattle, o.state)
	}
	o.state = StateActive
	o.logger.Info("battle resumed", zap.String("battle_id", o.battleID), zap.Int("round", o.round))
	o.scheduler.Start(o.tick)
	return nil
}

// Reset returns the orchestrator to idle from any state, restoring the
// initial battlefield and clearing all derived state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduler.Stop()
	o.current = o.initial.Clone()
	o.baseline = nil
	o.pending = nil
	o.buffered = nil
	o.round = 0
	o.log = nil
	o.result = nil
	o.state = StateIdle
	if o.battleID != "" {
		o.logger.Info("battle reset", zap.String("battle_id", o.battleID))
	}
}

// MoveArmyTo orders an army toward (x, y). Movement is resolved immediately
// against terrain cost and clamped to the battlefield bounds; it never fails
// for out-of-bounds targets.
//
// Precondition: a battle must be active or paused.
func (o *Orchestrator) MoveArmyTo(armyID string, x, y float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateActive && o.state != StatePaused {
		return fmt.Errorf("%w: cannot move army from %s", ErrNoBattle, o.state)
	}
	for i := range o.current.Armies {
		if o.current.Armies[i].ID != armyID {
			continue
		}
		moved := battlefield.MoveArmy(o.current.Armies[i], x, y, o.current)
		o.current.Armies[i].Position = moved.Position
		o.logger.Debug("army moved",
			zap.String("army", armyID),
			zap.Float64("x", moved.Position.X),
			zap.Float64("y", moved.Position.Y),
		)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownArmy, armyID)
}

// ExecuteManeuver resolves a maneuver for an army's commander. On success
// the commander's points are deducted and the effect modifier is folded
// into the next round. Resource exhaustion records a skip event in the next
// round and returns ErrResourceExhausted; the battle continues either way.
//
// Precondition: a battle must be active or paused.
func (o *Orchestrator) ExecuteManeuver(maneuverID, armyID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateActive && o.state != StatePaused {
		return fmt.Errorf("%w: cannot maneuver from %s", ErrNoBattle, o.state)
	}

	var army *battlefield.Army
	for i := range o.current.Armies {
		if o.current.Armies[i].ID == armyID {
			army = &o.current.Armies[i]
			break
		}
	}
	if army == nil {
		return fmt.Errorf("%w: %q", ErrUnknownArmy, armyID)
	}

	m, err := o.catalog.Get(maneuverID)
	if err != nil {
		return err
	}

	res, err := o.resolver.Execute(m, army.Commander, army.Clone())
	if err != nil {
		if errors.Is(err, maneuver.ErrResourceExhausted) {
			o.buffered = append(o.buffered, combat.Event{
				Kind:      combat.EventManeuverSkipped,
				ArmyID:    armyID,
				Narrative: fmt.Sprintf("%s cannot be carried out: %s", m.Name, err),
			})
			o.logger.Info("maneuver skipped",
				zap.String("battle_id", o.battleID),
				zap.String("maneuver", maneuverID),
				zap.String("army", armyID),
				zap.Error(err),
			)
		}
		return err
	}

	army.Commander.CommandPoints -= m.Cost
	if o.pending == nil {
		o.pending = make(map[string]maneuver.Modifier)
	}
	o.pending[armyID] = modOrIdentity(o.pending[armyID]).Combine(res.Modifier)
	o.buffered = append(o.buffered, combat.Event{
		Kind:      combat.EventManeuver,
		ArmyID:    armyID,
		Narrative: res.Narrative,
	})
	o.logger.Info("maneuver executed",
		zap.String("battle_id", o.battleID),
		zap.String("maneuver", maneuverID),
		zap.String("army", armyID),
		zap.Int("points_left", army.Commander.CommandPoints),
	)
	return nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// BattleID returns the running or last battle's ID, empty before any Start.
func (o *Orchestrator) BattleID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.battleID
}

// Log returns a copy of the battle log.
func (o *Orchestrator) Log() []combat.Round {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]combat.Round(nil), o.log...)
}

// Result returns the terminal result once the battle has ended.
func (o *Orchestrator) Result() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return Result{}, false
	}
	return *o.result, true
}

// Battlefield returns a deep copy of the current battlefield state.
func (o *Orchestrator) Battlefield() battlefield.Battlefield {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.Clone()
}

// tick computes exactly one round. It is the scheduler's callback and the
// only writer of the battle log. A tick that races a pause or reset sees a
// non-active state and returns without effect.
func (o *Orchestrator) tick() {
	o.mu.Lock()
	if o.state != StateActive {
		o.mu.Unlock()
		return
	}

	o.round++
	mods := o.pending
	o.pending = nil

	round := combat.SimulateRound(o.current, o.round, mods, o.baseline, o.tuning, o.src)
	if len(o.buffered) > 0 {
		round.Events = append(append([]combat.Event(nil), o.buffered...), round.Events...)
		o.buffered = nil
	}
	o.applyRound(round)

	verdict := victory.Assess(o.current.Armies)
	if !verdict.Ended && o.roundCap > 0 && o.round >= o.roundCap {
		verdict = victory.Verdict{Ended: true, Stalemate: true}
		round.Events = append(round.Events, combat.Event{
			Kind:      combat.EventStalemate,
			Narrative: fmt.Sprintf("battle called after %d rounds with no decision", o.round),
		})
	}
	o.log = append(o.log, round)

	onRound := o.onRound
	var onEnd func(Result)
	var result Result
	ended := verdict.Ended
	if ended {
		o.state = StateEnded
		o.scheduler.Stop()
		o.result = o.buildResult(verdict)
		result = *o.result
		onEnd = o.onBattleEnd
		o.logger.Info("battle ended",
			zap.String("battle_id", o.battleID),
			zap.Int("rounds", o.round),
			zap.String("victor", verdict.Victor),
			zap.Bool("stalemate", verdict.Stalemate),
		)
	}
	o.mu.Unlock()

	if onRound != nil {
		onRound(round)
	}
	if ended {
		if onEnd != nil {
			onEnd(result)
		}
		o.archive(result)
	}
}

// applyRound writes a round's post-state back into the owned battlefield.
func (o *Orchestrator) applyRound(r combat.Round) {
	for i := range o.current.Armies {
		st, ok := r.StateFor(o.current.Armies[i].ID)
		if !ok {
			continue
		}
		o.current.Armies[i].Units = append([]battlefield.Unit(nil), st.Units...)
		o.current.Armies[i].Status = st.Status
		o.current.Armies[i].Position = st.Position
	}
}

// buildResult assembles the terminal artifact. Called exactly once per
// battle, under the orchestrator's lock.
func (o *Orchestrator) buildResult(verdict victory.Verdict) *Result {
	res := &Result{
		BattleID:  o.battleID,
		Victor:    verdict.Victor,
		Stalemate: verdict.Stalemate,
		Rounds:    o.round,
		Log:       append([]combat.Round(nil), o.log...),
	}
	for _, initial := range o.initial.Armies {
		current, ok := o.current.ArmyByID(initial.ID)
		if !ok {
			current = initial.Clone()
		}
		res.Reports = append(res.Reports, casualty.Calculate(current, initial))
		if current.HasStrength() {
			res.Survivors = append(res.Survivors, current.Clone())
		}
	}
	res.StrategicPoints = strategicPoints(res.Victor, res.Reports)
	return res
}

// strategicPoints scores a decisive victory as the losses inflicted on the
// defeated factions net of the victor's own, floored at zero. Stalemates and
// mutual destruction score nothing.
func strategicPoints(victor string, reports []casualty.Report) int {
	if victor == "" {
		return 0
	}
	points := 0
	for _, r := range reports {
		if r.Faction == victor {
			points -= r.Losses
		} else {
			points += r.Losses
		}
	}
	if points < 0 {
		points = 0
	}
	return points
}

// archive saves the result without blocking the tick loop.
func (o *Orchestrator) archive(res Result) {
	if o.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.store.SaveResult(ctx, res); err != nil {
			o.logger.Error("archiving battle result failed",
				zap.String("battle_id", res.BattleID),
				zap.Error(err),
			)
		}
	}()
}

func modOrIdentity(m maneuver.Modifier) maneuver.Modifier {
	if (m == maneuver.Modifier{}) {
		return maneuver.Identity()
	}
	return m
}
