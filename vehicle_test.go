package uxsimpp

import (
	"math"
	"testing"
)

func TestSingleVehicleTrip(t *testing.T) {
	w := newTestWorld(600)
	AddNode(w, "orig", 0, 0, nil, 0)
	AddNode(w, "dest", 1, 0, nil, 0)
	ln, _ := AddLink(w, "l", "orig", "dest", 20, 0.2, 1000, 1, -1.0, nil)
	veh, err := AddVehicle(w, "trip", 0, "orig", "dest")
	if err != nil {
		t.Fatalf("AddVehicle failed: %v", err)
	}
	w.InitializeAdjMatrix()

	if err := w.MainLoop(-1, -1); err != nil {
		t.Fatalf("MainLoop failed: %v", err)
	}

	if veh.State != StateEnd {
		t.Fatalf("Vehicle must complete its trip, but is %v", veh.State)
	}
	// HOME->WAIT at tick 0, enters the link at tick 1 (t=5) and already moves
	// 100 m on that tick, so it reaches the link end and ends its trip at
	// tick 10 (t=50).
	if math.Abs(veh.TravelTime-50.0) > 1e-9 {
		t.Errorf("Travel time must be 50 s, but got %f", veh.TravelTime)
	}
	if len(ln.Vehicles) != 0 {
		t.Errorf("Link must be empty after the trip, but holds %d vehicles", len(ln.Vehicles))
	}
	if veh.Link != nil {
		t.Errorf("Ended vehicle must not reference a link")
	}

	last := w.TotalTimesteps - 1
	if ln.ArrivalCurve[last] != w.DeltaN || ln.DepartureCurve[last] != w.DeltaN {
		t.Errorf("Curves must record one platoon through the link, but got A=%f D=%f",
			ln.ArrivalCurve[last], ln.DepartureCurve[last])
	}

	// Link entry at t=5 anchors at t+1, so the 45 s traversal is recorded
	// one second short.
	if len(ln.TraveltimeTT) != 1 {
		t.Fatalf("Exactly one traversal must be recorded, but got %d", len(ln.TraveltimeTT))
	}
	if math.Abs(ln.TraveltimeTT[0]-44.0) > 1e-9 {
		t.Errorf("Recorded traversal must be 44 s, but got %f", ln.TraveltimeTT[0])
	}
}

func TestNewellSpacingAndClamping(t *testing.T) {
	w := newTestWorld(600)
	AddNode(w, "orig", 0, 0, nil, 0)
	AddNode(w, "mid", 1, 0, nil, 0)
	AddNode(w, "dest", 2, 0, nil, 0)
	// Slow short downstream link makes the upstream one congest.
	AddLink(w, "up", "orig", "mid", 20, 0.2, 1000, 1, -1.0, nil)
	AddLink(w, "down", "mid", "dest", 2, 0.2, 500, 1, -1.0, nil)
	if err := AddDemand(w, "orig", "dest", 0, 400, 0.8, nil); err != nil {
		t.Fatalf("AddDemand failed: %v", err)
	}
	w.InitializeAdjMatrix()

	minGap := 5.0*w.DeltaN - 1e-9
	for w.CheckSimulationOngoing() {
		if err := w.MainLoop(50, -1); err != nil {
			t.Fatalf("MainLoop failed: %v", err)
		}
		for _, ln := range w.Links {
			for k := 0; k+1 < len(ln.Vehicles); k++ {
				leader := ln.Vehicles[k]
				follower := ln.Vehicles[k+1]
				if leader.X-follower.X < minGap {
					t.Fatalf("Spacing violated on %s at t=%f: %f - %f", ln.Name, w.Time, leader.X, follower.X)
				}
			}
			for _, veh := range ln.Vehicles {
				if veh.X < 0 || veh.X > ln.Length {
					t.Fatalf("Position out of range on %s: %f", ln.Name, veh.X)
				}
				if veh.XNext < veh.X-1e-9 {
					t.Fatalf("XNext must never fall behind X: %f < %f", veh.XNext, veh.X)
				}
			}
		}
	}
}

func TestVehicleStateLifecycle(t *testing.T) {
	w := newTestWorld(600)
	AddNode(w, "orig", 0, 0, nil, 0)
	AddNode(w, "dest", 1, 0, nil, 0)
	AddLink(w, "l", "orig", "dest", 20, 0.2, 1000, 1, -1.0, nil)
	veh, _ := AddVehicle(w, "trip", 100, "orig", "dest")
	w.InitializeAdjMatrix()

	if err := w.MainLoop(-1, -1); err != nil {
		t.Fatalf("MainLoop failed: %v", err)
	}

	// Log has no rows before departure: one HOME row at the departure tick,
	// then WAIT, RUN, END.
	if len(veh.LogState) == 0 {
		t.Fatal("Vehicle log must not be empty")
	}
	prev := veh.LogState[0]
	for _, state := range veh.LogState[1:] {
		if state < prev {
			t.Fatalf("State must never move backwards: %v after %v", state, prev)
		}
		prev = state
	}
	if veh.LogT[0] < 100.0 {
		t.Errorf("First log row must not precede the departure time, but got t=%f", veh.LogT[0])
	}
	if prev != StateEnd {
		t.Errorf("Last logged state must be END, but got %v", prev)
	}
}
