package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/averyhall/warsim/internal/game/battlefield"
	"github.com/averyhall/warsim/internal/game/maneuver"
)

// Manager owns one sandboxed LState holding all maneuver effect scripts and
// dispatches effect hooks. It implements maneuver.ScriptRunner.
//
// The mutex serialises all hook calls; a single battle's Lua work is light
// enough that one VM suffices.
type Manager struct {
	mu     sync.Mutex
	state  *lua.LState
	cancel func()
	limit  int
	logger *zap.Logger
}

// NewManager creates a Manager with no scripts loaded. ManeuverEffect
// reports ok=false until LoadDir succeeds.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger, limit: DefaultInstructionLimit}
}

// LoadDir creates a fresh sandboxed VM and executes every *.lua file in dir
// in lexicographic order. Scripts define global functions named by the
// maneuver's Script field.
//
// Precondition: dir must be a readable directory.
// Postcondition: On success the new VM replaces any previous one; on error
// the previous VM (if any) is retained.
func (m *Manager) LoadDir(dir string, instLimit int) error {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	L := NewSandboxedState(instLimit)

	entries, err := os.ReadDir(dir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.state != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.state.Close()
	}
	m.state = L
	m.limit = instLimit
	m.mu.Unlock()

	m.logger.Info("maneuver scripts loaded",
		zap.String("dir", dir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Close releases the VM. Safe to call on a Manager that never loaded.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.state.Close()
		m.state = nil
	}
}

// ManeuverEffect calls the named Lua global with (army, base) tables and
// returns the adjusted modifier. ok is false when no VM is loaded, the hook
// is undefined, the script errors, or it returns something unusable; the
// caller falls back to the static effect in all of those cases. Lua runtime
// errors are logged at Warn level and never propagated.
//
// Postcondition: When ok is true, the returned modifier has positive
// multipliers.
func (m *Manager) ManeuverEffect(hook string, army battlefield.Army, base maneuver.Modifier) (maneuver.Modifier, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L := m.state
	if L == nil {
		return base, false
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return base, false
	}

	// Fresh opcode budget per call so one long battle cannot starve later
	// hook invocations.
	ctx, cancel := newBudgetContext(m.limit)
	defer cancel()
	L.SetContext(ctx)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, armyTable(L, army), modifierTable(L, base)); err != nil {
		m.logger.Warn("maneuver script error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return base, false
	}

	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		m.logger.Warn("maneuver script returned non-table",
			zap.String("hook", hook),
			zap.String("type", ret.Type().String()),
		)
		return base, false
	}

	mod := modifierFromTable(tbl, base)
	if mod.Attack <= 0 || mod.Defense <= 0 || mod.Morale <= 0 {
		m.logger.Warn("maneuver script returned non-positive multiplier",
			zap.String("hook", hook),
		)
		return base, false
	}
	return mod, true
}

// armyTable builds the read-only army snapshot passed to scripts.
func armyTable(L *lua.LState, army battlefield.Army) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(army.ID))
	t.RawSetString("name", lua.LString(army.Name))
	t.RawSetString("faction", lua.LString(army.Faction))
	t.RawSetString("size", lua.LNumber(army.TotalSize()))
	t.RawSetString("status", lua.LString(army.Status))
	t.RawSetString("x", lua.LNumber(army.Position.X))
	t.RawSetString("y", lua.LNumber(army.Position.Y))

	units := L.NewTable()
	for _, u := range army.Units {
		ut := L.NewTable()
		ut.RawSetString("type", lua.LString(u.Type))
		ut.RawSetString("size", lua.LNumber(u.Size))
		ut.RawSetString("strength", lua.LNumber(u.Strength))
		units.Append(ut)
	}
	t.RawSetString("units", units)

	if army.Commander != nil {
		cmdr := L.NewTable()
		cmdr.RawSetString("name", lua.LString(army.Commander.Name))
		cmdr.RawSetString("command_points", lua.LNumber(army.Commander.CommandPoints))
		cmdr.RawSetString("bonus", lua.LNumber(army.Commander.Bonus))
		t.RawSetString("commander", cmdr)
	}
	return t
}

func modifierTable(L *lua.LState, mod maneuver.Modifier) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("attack", lua.LNumber(mod.Attack))
	t.RawSetString("defense", lua.LNumber(mod.Defense))
	t.RawSetString("morale", lua.LNumber(mod.Morale))
	t.RawSetString("force_retreat", lua.LBool(mod.ForceRetreat))
	return t
}

// modifierFromTable reads a modifier table, filling missing fields from base.
func modifierFromTable(t *lua.LTable, base maneuver.Modifier) maneuver.Modifier {
	out := base
	if v, ok := t.RawGetString("attack").(lua.LNumber); ok {
		out.Attack = float64(v)
	}
	if v, ok := t.RawGetString("defense").(lua.LNumber); ok {
		out.Defense = float64(v)
	}
	if v, ok := t.RawGetString("morale").(lua.LNumber); ok {
		out.Morale = float64(v)
	}
	if v, ok := t.RawGetString("force_retreat").(lua.LBool); ok {
		out.ForceRetreat = bool(v)
	}
	return out
}
