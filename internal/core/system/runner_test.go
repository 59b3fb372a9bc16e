package system

import (
	"testing"
	"time"
)

type stub struct {
	name  string
	phase Phase
	trace *[]string
}

func (s stub) Phase() Phase       { return s.phase }
func (s stub) Update(_ time.Time) { *s.trace = append(*s.trace, s.name) }

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var trace []string
	r := NewRunner()
	r.Register(stub{"cleanup", PhaseCleanup, &trace})
	r.Register(stub{"move", PhaseUpdate, &trace})
	r.Register(stub{"events", PhaseInput, &trace})
	r.Register(stub{"move2", PhaseUpdate, &trace})

	r.Tick(time.Unix(0, 0))

	want := []string{"events", "move", "move2", "cleanup"}
	if len(trace) != len(want) {
		t.Fatalf("trace %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace %v, want %v", trace, want)
		}
	}
	if r.Ticks() != 1 {
		t.Errorf("Ticks = %d, want 1", r.Ticks())
	}
}

func TestTickPhaseRunsOnlyThatPhase(t *testing.T) {
	var trace []string
	r := NewRunner()
	r.Register(stub{"events", PhaseInput, &trace})
	r.Register(stub{"journal", PhasePersist, &trace})

	r.TickPhase(PhasePersist, time.Unix(0, 0))

	if len(trace) != 1 || trace[0] != "journal" {
		t.Errorf("trace %v, want [journal]", trace)
	}
	if r.Ticks() != 0 {
		t.Errorf("TickPhase advanced the tick counter")
	}
}
