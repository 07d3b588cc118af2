package game

// BallGroup is a player's assigned half of the object balls.
type BallGroup string

const (
	GroupSolid   BallGroup = "solid"
	GroupStriped BallGroup = "striped"
)

// PoolState is the raw match bookkeeping shared between peers. It is
// mutated only as the result of a completed, broadcast strike; the
// relay stores the last reported value so spectators and late joiners
// can catch up. Rules enforcement (fouls, win conditions) is a client
// concern built on top of this state.
type PoolState struct {
	InHole    map[int]bool         `json:"inHole"`
	Totals    map[BallGroup]int    `json:"totals"`
	Players   map[BallGroup]string `json:"players"`
	TurnIndex int                  `json:"turnIndex"`
}

func NewPoolState() *PoolState {
	return &PoolState{
		InHole:  make(map[int]bool),
		Totals:  map[BallGroup]int{GroupSolid: 7, GroupStriped: 7},
		Players: make(map[BallGroup]string),
	}
}

// ApplyPocketed recomputes the pocketed map and remaining totals from a
// settled ball set.
func (s *PoolState) ApplyPocketed(balls []Ball) {
	totals := map[BallGroup]int{GroupSolid: 0, GroupStriped: 0}
	for i := range balls {
		b := &balls[i]
		if b.Pocketed {
			s.InHole[b.ID] = true
			continue
		}
		switch b.Kind {
		case KindSolid:
			totals[GroupSolid]++
		case KindStriped:
			totals[GroupStriped]++
		}
	}
	s.Totals = totals
}

// AssignGroups binds the shooter to the group of the first object ball
// they pocketed, and the opponent to the other group. No-op once groups
// are assigned or when the pocketed ball is the cue or the black.
func (s *PoolState) AssignGroups(shooterID, opponentID string, pocketed Ball) {
	if len(s.Players) > 0 {
		return
	}
	var mine, theirs BallGroup
	switch pocketed.Kind {
	case KindSolid:
		mine, theirs = GroupSolid, GroupStriped
	case KindStriped:
		mine, theirs = GroupStriped, GroupSolid
	default:
		return
	}
	s.Players[mine] = shooterID
	s.Players[theirs] = opponentID
}
