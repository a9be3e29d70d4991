// Package sound turns timer transitions into terminal bells.
package sound

import (
	"io"
	"strings"
	"sync"
)

// Cue names a notification the timer can trigger.
type Cue int

const (
	CueWorkComplete Cue = iota + 1
	CueBreakComplete
)

func (c Cue) String() string {
	switch c {
	case CueWorkComplete:
		return "work complete"
	case CueBreakComplete:
		return "break complete"
	default:
		return "unknown"
	}
}

// Player plays a cue at a volume in [0,1].
type Player interface {
	Play(cue Cue, volume float64)
}

// Bell rings the terminal bell: once when work completes, twice when a break
// does. A terminal bell has no volume, so any volume above zero rings and
// zero is silent.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	return &Bell{out: out}
}

func (b *Bell) Play(cue Cue, volume float64) {
	if b == nil || b.out == nil || volume <= 0 {
		return
	}
	rings := 1
	if cue == CueBreakComplete {
		rings = 2
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.out, strings.Repeat("\a", rings))
}

// Nop discards every cue.
type Nop struct{}

func (Nop) Play(Cue, float64) {}
