package uxsimpp

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	// unlimitedCapacity replaces a negative (i.e. "no constraint") outflow
	// capacity at link construction time.
	unlimitedCapacity = 10e10
	// capacityUnbound is the per-tick token balance meaning "no constraint".
	capacityUnbound = 10e9
)

// Link is a road segment connecting two nodes. Traffic on it follows the
// Newell car-following model with a triangular fundamental diagram
// parameterised by the free flow speed, the jam density and the reaction
// time inherited from the world.
type Link struct {
	w *World

	ID   int
	Name string

	Length    float64
	StartNode *Node
	EndNode   *Node

	Vmax              float64 // free flow speed (m/s)
	Delta             float64 // minimum spacing per vehicle (m/veh)
	Tau               float64 // reaction time per vehicle (s/veh)
	Kappa             float64 // jam density (veh/m)
	Capacity          float64 // flow capacity (veh/s)
	BackwardWaveSpeed float64 // m/s

	// Vehicles on the link in FIFO order: index 0 is the downstream-most
	// vehicle (the one to exit next), the last element is the trailing one.
	Vehicles []*Vehicle

	// Completed traversal records, appended on every link exit.
	TraveltimeTT []float64
	TraveltimeT  []float64

	// Per-timestep series of length World.TotalTimesteps.
	ArrivalCurve      []float64
	DepartureCurve    []float64
	TraveltimeReal    []float64
	TraveltimeInstant []float64

	MergePriority float64

	CapacityOut       float64 // veh/s
	CapacityOutRemain float64 // token balance for the current timestep, veh

	SignalGroup []int

	geom orb.LineString
}

// AddLink creates a link between two existing nodes and registers it in the
// world. Non-positive kappa falls back to 0.2 veh/m, negative capacityOut
// means no outflow constraint, nil signalGroup defaults to group 0.
func AddLink(w *World, linkName, startNodeName, endNodeName string, vmax, kappa, length, mergePriority, capacityOut float64, signalGroup []int) (*Link, error) {
	startNode, err := w.GetNode(startNodeName)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't resolve start node for link `%s`", linkName)
	}
	endNode, err := w.GetNode(endNodeName)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't resolve end node for link `%s`", linkName)
	}

	if kappa <= 0.0 {
		kappa = 0.2
	}
	if capacityOut < 0.0 {
		capacityOut = unlimitedCapacity
	}
	if len(signalGroup) == 0 {
		signalGroup = []int{0}
	}

	ln := &Link{
		w:             w,
		ID:            w.linkID,
		Name:          linkName,
		Length:        length,
		StartNode:     startNode,
		EndNode:       endNode,
		Vmax:          vmax,
		Tau:           w.Tau,
		Kappa:         kappa,
		MergePriority: mergePriority,
		CapacityOut:   capacityOut,
		SignalGroup:   signalGroup,
		geom:          orb.LineString{orb.Point{startNode.X, startNode.Y}, orb.Point{endNode.X, endNode.Y}},
	}
	ln.Delta = 1.0 / kappa
	ln.BackwardWaveSpeed = 1.0 / (ln.Tau * kappa)
	ln.Capacity = vmax * ln.BackwardWaveSpeed * kappa / (vmax + ln.BackwardWaveSpeed)
	ln.CapacityOutRemain = capacityOut * w.DeltaT

	ln.ArrivalCurve = make([]float64, w.TotalTimesteps)
	ln.DepartureCurve = make([]float64, w.TotalTimesteps)
	ln.TraveltimeReal = make([]float64, w.TotalTimesteps)
	ln.TraveltimeInstant = make([]float64, w.TotalTimesteps)

	startNode.OutLinks = append(startNode.OutLinks, ln)
	endNode.InLinks = append(endNode.InLinks, ln)

	w.Links = append(w.Links, ln)
	w.linkID++
	w.linksMap[linkName] = ln
	return ln, nil
}

// Update refreshes the travel time series, carries the cumulative curves
// forward and refills the outflow token bucket. Runs once per timestep
// before any node processing.
func (ln *Link) Update() {
	ln.setTravelTime()

	t := ln.w.Timestep
	if t != 0 {
		ln.ArrivalCurve[t] = ln.ArrivalCurve[t-1]
		ln.DepartureCurve[t] = ln.DepartureCurve[t-1]
	}

	if ln.CapacityOut < capacityUnbound {
		// Unused tokens carry over until a transfer becomes possible.
		if ln.CapacityOutRemain < ln.w.DeltaN {
			ln.CapacityOutRemain += ln.CapacityOut * ln.w.DeltaT
		}
	} else {
		ln.CapacityOutRemain = capacityUnbound
	}
}

// setTravelTime records the experienced and the instantaneous travel time
// for the current timestep.
func (ln *Link) setTravelTime() {
	t := ln.w.Timestep

	if len(ln.TraveltimeTT) > 0 && len(ln.Vehicles) > 0 {
		ln.TraveltimeReal[t] = ln.TraveltimeTT[len(ln.TraveltimeTT)-1]
	} else {
		ln.TraveltimeReal[t] = ln.Length / ln.Vmax
	}

	if len(ln.Vehicles) > 0 {
		vsum := 0.0
		for _, veh := range ln.Vehicles {
			vsum += veh.V
		}
		avgV := vsum / float64(len(ln.Vehicles))
		// vmax/10 floors the denominator against stopped traffic.
		if avgV > ln.Vmax/10.0 {
			ln.TraveltimeInstant[t] = ln.Length / avgV
		} else {
			ln.TraveltimeInstant[t] = ln.Length / (ln.Vmax / 10.0)
		}
	} else {
		ln.TraveltimeInstant[t] = ln.Length / ln.Vmax
	}
}

// FreeTravelTime returns the free flow traversal time of the link.
func (ln *Link) FreeTravelTime() float64 {
	return ln.Length / ln.Vmax
}
