package uxsimpp

import (
	"github.com/samber/lo"
)

// Node is an intersection or junction where vehicles transfer between
// links. A node may carry a traffic signal and arbitrates competing
// upstream links by merge priority.
type Node struct {
	w *World

	ID   int
	Name string

	InLinks  []*Link
	OutLinks []*Link

	// Vehicles that finished their current link and wait at this node for
	// the transfer phase of the next timestep.
	incomingVehicles []*Vehicle

	// Vehicles waiting to depart onto an outgoing link (vertical queue).
	generationQueue []*Vehicle

	X float64
	Y float64

	SignalIntervals []float64 // green time per phase; a single entry disables the signal
	SignalOffset    float64
	signalT         float64 // elapsed time within the current phase
	SignalPhase     int
}

// AddNode creates a node and registers it in the world. A nil or
// single-element signalIntervals disables signal control.
func AddNode(w *World, nodeName string, x, y float64, signalIntervals []float64, signalOffset float64) *Node {
	if len(signalIntervals) == 0 {
		signalIntervals = []float64{0}
	}
	nd := &Node{
		w:               w,
		ID:              w.nodeID,
		Name:            nodeName,
		X:               x,
		Y:               y,
		SignalIntervals: signalIntervals,
		SignalOffset:    signalOffset,
		signalT:         signalOffset,
	}
	w.Nodes = append(w.Nodes, nd)
	w.nodeID++
	w.nodesMap[nodeName] = nd
	return nd
}

// Generate departs at most one vehicle from the generation queue onto an
// outgoing link, if the chosen link has room for one more platoon.
func (nd *Node) Generate() {
	if len(nd.generationQueue) == 0 {
		return
	}
	veh := nd.generationQueue[0]

	veh.RouteNextLinkChoice(nd.OutLinks)

	if len(nd.OutLinks) == 0 || veh.RouteNextLink == nil {
		return
	}
	outlink := veh.RouteNextLink

	if len(outlink.Vehicles) == 0 || outlink.Vehicles[len(outlink.Vehicles)-1].X > outlink.Delta*nd.w.DeltaN {
		nd.generationQueue = nd.generationQueue[1:]

		veh.State = StateRun
		veh.Link = outlink
		veh.X = 0.0
		veh.recordTravelTime(nil, float64(nd.w.Timestep)*nd.w.DeltaT)

		nd.w.vehiclesRunning = append(nd.w.vehiclesRunning, veh)

		if len(outlink.Vehicles) > 0 {
			veh.Leader = outlink.Vehicles[len(outlink.Vehicles)-1]
			veh.Leader.Follower = veh
		}
		outlink.Vehicles = append(outlink.Vehicles, veh)

		outlink.ArrivalCurve[nd.w.Timestep] += nd.w.DeltaN
	}
}

// SignalUpdate advances the signal state machine by one timestep.
func (nd *Node) SignalUpdate() {
	if len(nd.SignalIntervals) > 1 {
		for nd.signalT > nd.SignalIntervals[nd.SignalPhase] {
			nd.signalT -= nd.SignalIntervals[nd.SignalPhase]
			nd.SignalPhase++
			if nd.SignalPhase >= len(nd.SignalIntervals) {
				nd.SignalPhase = 0
			}
		}
		nd.signalT += nd.w.DeltaT
	}
}

// admits reports whether the signal lets the given upstream link release
// vehicles in the current phase. Unsignalised nodes admit every link.
func (nd *Node) admits(ln *Link) bool {
	if len(nd.SignalIntervals) <= 1 {
		return true
	}
	return lo.Contains(ln.SignalGroup, nd.SignalPhase)
}

// Transfer moves at most one vehicle per outgoing link out of the incoming
// set, chosen by weighted random draw over the merge priorities of the
// competing upstream links.
func (nd *Node) Transfer() {
	for _, outlink := range nd.OutLinks {
		if len(outlink.Vehicles) > 0 && outlink.Vehicles[len(outlink.Vehicles)-1].X <= outlink.Delta*nd.w.DeltaN {
			// No room for one more platoon at the upstream end.
			continue
		}

		var mergingVehs []*Vehicle
		var mergePriorities []float64
		for _, veh := range nd.incomingVehicles {
			if veh.RouteNextLink == outlink &&
				veh.Link.CapacityOutRemain >= nd.w.DeltaN &&
				nd.admits(veh.Link) {
				mergingVehs = append(mergingVehs, veh)
				mergePriorities = append(mergePriorities, veh.Link.MergePriority)
			}
		}
		if len(mergingVehs) == 0 {
			continue
		}

		chosenVeh, ok := randomChoice(mergingVehs, mergePriorities, nd.w.rng)
		if !ok {
			continue
		}

		t := nd.w.Timestep

		chosenVeh.Link.CapacityOutRemain -= nd.w.DeltaN

		chosenVeh.Link.DepartureCurve[t] += nd.w.DeltaN
		outlink.ArrivalCurve[t] += nd.w.DeltaN

		chosenVeh.recordTravelTime(chosenVeh.Link, float64(t)*nd.w.DeltaT)

		// The chosen vehicle is the downstream-most one on its link.
		chosenVeh.Link.Vehicles = chosenVeh.Link.Vehicles[1:]

		chosenVeh.Link = outlink
		chosenVeh.X = 0.0
		chosenVeh.XNext = 0.0

		if chosenVeh.Follower != nil {
			chosenVeh.Follower.Leader = nil
		}
		chosenVeh.Leader = nil
		chosenVeh.Follower = nil

		if len(outlink.Vehicles) > 0 {
			leaderVeh := outlink.Vehicles[len(outlink.Vehicles)-1]
			chosenVeh.Leader = leaderVeh
			leaderVeh.Follower = chosenVeh
		}
		outlink.Vehicles = append(outlink.Vehicles, chosenVeh)

		nd.incomingVehicles = removeFromSlice(nd.incomingVehicles, chosenVeh)
	}

	// Losers of the arbitration re-request on the next timestep.
	nd.incomingVehicles = nd.incomingVehicles[:0]
}
