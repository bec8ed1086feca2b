package battlefield

// baseMoveDistance is how far an army can travel per move order over open
// ground (MovementCost 1.0). Rougher terrain divides it.
const baseMoveDistance = 10.0

// MoveArmy relocates army toward (targetX, targetY) on bf, honouring the
// battlefield bounds and terrain movement cost. Movement orders are
// best-effort: an out-of-bounds target is clamped to the nearest in-bounds
// point, and a target beyond the army's reach this order moves it as far
// along the line as terrain allows. It never fails.
//
// Postcondition: Returns a new Army whose Position is inside bf.Bounds;
// army, bf, and other armies are not mutated.
func MoveArmy(army Army, targetX, targetY float64, bf Battlefield) Army {
	moved := army.Clone()

	target := bf.Bounds.Clamp(Position{X: targetX, Y: targetY})

	reach := baseMoveDistance / bf.Terrain.MovementCost
	dist := moved.Position.Distance(target)
	if dist <= reach {
		moved.Position = target
		return moved
	}

	// Partial move along the line toward the target.
	frac := reach / dist
	moved.Position = bf.Bounds.Clamp(Position{
		X: moved.Position.X + (target.X-moved.Position.X)*frac,
		Y: moved.Position.Y + (target.Y-moved.Position.Y)*frac,
	})
	return moved
}
