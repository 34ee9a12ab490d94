package uxsimpp

import (
	"testing"
)

func TestSignalPhaseProgression(t *testing.T) {
	w := newTestWorld(1000)
	nd := AddNode(w, "sig", 0, 0, []float64{60, 60}, 0)

	seen := make(map[int]bool)
	last := nd.SignalPhase
	changes := 0
	for i := 0; i < 100; i++ {
		nd.SignalUpdate()
		seen[nd.SignalPhase] = true
		if nd.SignalPhase != last {
			changes++
			last = nd.SignalPhase
		}
		if nd.SignalPhase < 0 || nd.SignalPhase > 1 {
			t.Fatalf("Phase out of range: %d", nd.SignalPhase)
		}
	}
	if !seen[0] || !seen[1] {
		t.Errorf("Both phases must be visited, but got %v", seen)
	}
	if changes < 3 {
		t.Errorf("Phases must alternate over 500 s of a 60+60 cycle, but changed %d times", changes)
	}
}

func TestSignalOffsetSkipsIntoLaterPhase(t *testing.T) {
	w := newTestWorld(1000)
	nd := AddNode(w, "sig", 0, 0, []float64{60, 60}, 65)

	nd.SignalUpdate()
	if nd.SignalPhase != 1 {
		t.Errorf("Offset 65 of a 60+60 signal must start in phase 1, but got %d", nd.SignalPhase)
	}
}

func TestSignalDisabledForSingleInterval(t *testing.T) {
	w := newTestWorld(1000)
	nd := AddNode(w, "plain", 0, 0, nil, 0)

	for i := 0; i < 10; i++ {
		nd.SignalUpdate()
	}
	if nd.SignalPhase != 0 {
		t.Errorf("Unsignalised node must stay in phase 0, but got %d", nd.SignalPhase)
	}

	w2 := newTestWorld(1000)
	AddNode(w2, "up", 0, 0, nil, 0)
	AddNode(w2, "down", 1, 0, nil, 0)
	ln, _ := AddLink(w2, "l", "up", "down", 20, 0.2, 1000, 1, -1.0, []int{3})
	if !ln.EndNode.admits(ln) {
		t.Errorf("Unsignalised node must admit every link regardless of signal group")
	}
}

func TestGenerateRespectsUpstreamRoom(t *testing.T) {
	w := newTestWorld(1000)
	AddNode(w, "orig", 0, 0, nil, 0)
	AddNode(w, "dest", 1, 0, nil, 0)
	ln, _ := AddLink(w, "l", "orig", "dest", 20, 0.2, 1000, 1, -1.0, nil)
	w.InitializeAdjMatrix()

	first, err := AddVehicle(w, "veh1", 0, "orig", "dest")
	if err != nil {
		t.Fatalf("AddVehicle failed: %v", err)
	}
	second, _ := AddVehicle(w, "veh2", 0, "orig", "dest")

	orig, _ := w.GetNode("orig")
	first.Update()  // HOME -> WAIT
	second.Update() // HOME -> WAIT

	orig.Generate()
	if first.State != StateRun || first.Link != ln {
		t.Fatalf("First vehicle must depart onto the link")
	}

	// The trailing vehicle still sits at x=0; no room for another platoon.
	orig.Generate()
	if second.State != StateWait {
		t.Errorf("Second vehicle must stay queued while the link entrance is blocked")
	}

	// Move the trailing vehicle past one jam spacing and retry.
	first.X = ln.Delta*w.DeltaN + 1.0
	orig.Generate()
	if second.State != StateRun {
		t.Errorf("Second vehicle must depart once the entrance has room")
	}
	if second.Leader != first || first.Follower != second {
		t.Errorf("Leader/follower must be stitched on generation")
	}
	if ln.ArrivalCurve[0] != 2*w.DeltaN {
		t.Errorf("Arrival curve must count both platoons, but got %f", ln.ArrivalCurve[0])
	}
}
