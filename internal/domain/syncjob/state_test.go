package syncjob

import "testing"

func TestStateCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"idle starts a run", StateIdle, StateSyncing, true},
		{"idle cannot skip to matching", StateIdle, StateMatching, false},
		{"syncing moves to matching", StateSyncing, StateMatching, true},
		{"syncing can fail", StateSyncing, StateFailed, true},
		{"syncing cannot finish directly", StateSyncing, StateIdle, false},
		{"matching finishes clean", StateMatching, StateIdle, true},
		{"matching finishes partial", StateMatching, StatePartial, true},
		{"matching can fail", StateMatching, StateFailed, true},
		{"partial starts a new run", StatePartial, StateSyncing, true},
		{"failed starts a new run", StateFailed, StateSyncing, true},
		{"failed cannot jump to matching", StateFailed, StateMatching, false},
		{"no self loop while running", StateSyncing, StateSyncing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStateRunning(t *testing.T) {
	t.Parallel()

	for _, s := range []State{StateSyncing, StateMatching} {
		if !s.Running() {
			t.Fatalf("%s should be running", s)
		}
	}
	for _, s := range []State{StateIdle, StatePartial, StateFailed} {
		if s.Running() {
			t.Fatalf("%s should not be running", s)
		}
	}
}
