package states

import (
	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/util"
)

type arenaSlot struct {
	state        *TraversalState
	liveChildren int32
	released     bool
}

// Arena owns the traversal states of one search. a state stays alive while a descendant is live,
// so a branch can always walk back to its root.
type Arena struct {
	slots []arenaSlot
	free  []Index
	live  int
}

func NewArena(capacity int) *Arena {
	return &Arena{
		slots: make([]arenaSlot, 0, capacity),
		free:  make([]Index, 0),
	}
}

func (a *Arena) Add(s *TraversalState) Index {
	var idx Index
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = arenaSlot{state: s}
	} else {
		idx = Index(len(a.slots))
		a.slots = append(a.slots, arenaSlot{state: s})
	}
	s.index = idx
	if s.parent != NoParent {
		a.slot(s.parent).liveChildren++
	}
	a.live++
	return idx
}

func (a *Arena) slot(i Index) *arenaSlot {
	if i < 0 || int(i) >= len(a.slots) || a.slots[i].state == nil {
		panic(errors.AssertionFailedf("arena index %d is not live", i))
	}
	return &a.slots[i]
}

func (a *Arena) Get(i Index) *TraversalState {
	return a.slot(i).state
}

// Release marks a state fully expanded. it is freed once it has no live children, freeing
// cascades to released ancestors.
func (a *Arena) Release(i Index) {
	slot := a.slot(i)
	if slot.released {
		panic(errors.AssertionFailedf("arena index %d released twice", i))
	}
	slot.released = true

	for i != NoParent {
		slot := &a.slots[i]
		if !slot.released || slot.liveChildren > 0 {
			return
		}
		parent := slot.state.parent
		a.slots[i] = arenaSlot{}
		a.free = append(a.free, i)
		a.live--
		if parent != NoParent {
			a.slots[parent].liveChildren--
		}
		i = parent
	}
}

func (a *Arena) Live() int {
	return a.live
}

// Path states from the root down to i.
func (a *Arena) Path(i Index) []*TraversalState {
	path := make([]*TraversalState, 0)
	for i != NoParent {
		s := a.Get(i)
		path = append(path, s)
		i = s.parent
	}
	return util.ReverseG(path)
}
