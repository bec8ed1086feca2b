// Package casualty compares an army's current state against its pre-battle
// baseline and produces loss reports.
package casualty

import (
	"github.com/averyhall/warsim/internal/game/battlefield"
)

// UnitLosses records the losses for one unit type.
type UnitLosses struct {
	Type    battlefield.UnitType
	Initial int
	Current int
	Losses  int
}

// Report is the per-army casualty summary.
type Report struct {
	ArmyID      string
	ArmyName    string
	Faction     string
	InitialSize int
	CurrentSize int
	Losses      int
	// PercentLost is (InitialSize - CurrentSize) / InitialSize, clamped to [0, 1].
	PercentLost float64
	Units       []UnitLosses
}

// Calculate builds a casualty report by comparing current against initial.
// Unit types are aggregated; a type absent from current is reported as fully
// lost, and a type absent from initial as zero losses. Pure function.
//
// Postcondition: PercentLost is in [0, 1]; per-unit Losses are never negative.
func Calculate(current, initial battlefield.Army) Report {
	initialByType := sizeByType(initial)
	currentByType := sizeByType(current)

	report := Report{
		ArmyID:      initial.ID,
		ArmyName:    initial.Name,
		Faction:     initial.Faction,
		InitialSize: initial.TotalSize(),
		CurrentSize: current.TotalSize(),
	}

	// Keep unit ordering stable: initial's order first, then any types that
	// only appear in current.
	for _, u := range initial.Units {
		if _, ok := initialByType[u.Type]; !ok {
			continue
		}
		init := initialByType[u.Type]
		cur := currentByType[u.Type]
		losses := init - cur
		if losses < 0 {
			losses = 0
		}
		report.Units = append(report.Units, UnitLosses{
			Type:    u.Type,
			Initial: init,
			Current: cur,
			Losses:  losses,
		})
		delete(initialByType, u.Type)
	}
	for _, u := range current.Units {
		size, ok := currentByType[u.Type]
		if !ok {
			continue
		}
		if !hasType(report.Units, u.Type) {
			report.Units = append(report.Units, UnitLosses{
				Type:    u.Type,
				Initial: 0,
				Current: size,
				Losses:  0,
			})
		}
		delete(currentByType, u.Type)
	}

	report.Losses = report.InitialSize - report.CurrentSize
	if report.Losses < 0 {
		report.Losses = 0
	}
	if report.InitialSize > 0 {
		report.PercentLost = float64(report.InitialSize-report.CurrentSize) / float64(report.InitialSize)
	}
	if report.PercentLost < 0 {
		report.PercentLost = 0
	}
	if report.PercentLost > 1 {
		report.PercentLost = 1
	}

	return report
}

func sizeByType(a battlefield.Army) map[battlefield.UnitType]int {
	out := make(map[battlefield.UnitType]int, len(a.Units))
	for _, u := range a.Units {
		out[u.Type] += u.Size
	}
	return out
}

func hasType(units []UnitLosses, t battlefield.UnitType) bool {
	for _, u := range units {
		if u.Type == t {
			return true
		}
	}
	return false
}
