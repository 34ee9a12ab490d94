package uxsimpp

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"github.com/pkg/errors"
)

// World is the simulation environment: it owns every node, link and
// vehicle, the clock, the random generator and the route choice state.
type World struct {
	Name string

	TMax                   float64 // simulation duration (s)
	DeltaN                 float64 // platoon size (veh)
	Tau                    float64 // reaction time (s)
	DuoUpdateTime          float64 // route choice update interval (s)
	DuoUpdateWeight        float64 // damping weight of the DUO update
	RouteChoiceUncertainty float64
	PrintMode              int

	DeltaT                 float64 // timestep width (s), tau * deltaN
	TotalTimesteps         int
	TimestepForRouteUpdate int

	nodeID    int
	linkID    int
	vehicleID int

	Vehicles []*Vehicle
	Links    []*Link
	Nodes    []*Node

	// Insertion-ordered registries; the per-tick scan order follows them.
	vehiclesLiving  []*Vehicle
	vehiclesRunning []*Vehicle

	nodesMap    map[string]*Node
	linksMap    map[string]*Link
	vehiclesMap map[string]*Vehicle

	Timestep int
	Time     float64

	// RoutePreference[destID][link] is the DUO weight of taking link when
	// heading for that destination.
	RoutePreference []map[*Link]float64

	AdjMat     [][]int
	AdjMatTime [][]float64
	RouteNext  [][]int
	RouteDist  [][]float64

	flagInitialized bool

	AveV           float64
	AveVRatio      float64
	TripsTotal     float64
	TripsCompleted float64

	RandomSeed int64
	rng        *rand.Rand

	Writer io.Writer

	VehicleLogMode bool
}

// NewWorld creates a simulation environment. The timestep width is
// tau*deltaN and every per-tick series is sized from tMax up front.
func NewWorld(worldName string, tMax, deltaN, tau, duoUpdateTime, duoUpdateWeight, routeChoiceUncertainty float64, printMode int, randomSeed int64, vehicleLogMode bool) *World {
	deltaT := tau * deltaN
	return &World{
		Name:                   worldName,
		TMax:                   tMax,
		DeltaN:                 deltaN,
		Tau:                    tau,
		DuoUpdateTime:          duoUpdateTime,
		DuoUpdateWeight:        duoUpdateWeight,
		RouteChoiceUncertainty: routeChoiceUncertainty,
		PrintMode:              printMode,
		DeltaT:                 deltaT,
		TotalTimesteps:         int(tMax / deltaT),
		TimestepForRouteUpdate: int(duoUpdateTime / deltaT),
		nodesMap:               make(map[string]*Node),
		linksMap:               make(map[string]*Link),
		vehiclesMap:            make(map[string]*Vehicle),
		RandomSeed:             randomSeed,
		rng:                    rand.New(rand.NewSource(randomSeed)),
		Writer:                 os.Stdout,
		VehicleLogMode:         vehicleLogMode,
	}
}

// InitializeAdjMatrix builds the adjacency matrices and the per-destination
// preference table. Must be called after the last AddLink and before
// MainLoop; repeated calls are no-ops, the network is frozen afterwards.
func (w *World) InitializeAdjMatrix() {
	if w.flagInitialized {
		return
	}
	n := w.nodeID
	w.AdjMat = make([][]int, n)
	w.AdjMatTime = make([][]float64, n)
	for i := 0; i < n; i++ {
		w.AdjMat[i] = make([]int, n)
		w.AdjMatTime[i] = make([]float64, n)
	}
	for _, ln := range w.Links {
		i := ln.StartNode.ID
		j := ln.EndNode.ID
		w.AdjMat[i][j] = 1
		w.AdjMatTime[i][j] = ln.Length / ln.Vmax
	}

	w.RoutePreference = make([]map[*Link]float64, len(w.Nodes))
	for _, nd := range w.Nodes {
		prefs := make(map[*Link]float64, len(w.Links))
		for _, ln := range w.Links {
			prefs[ln] = 0.0
		}
		w.RoutePreference[nd.ID] = prefs
	}
	w.flagInitialized = true
}

// updateAdjTimeMatrix writes the latest experienced travel times into the
// time-weighted adjacency, falling back to free flow where nothing has
// been recorded yet.
func (w *World) updateAdjTimeMatrix() {
	for _, ln := range w.Links {
		i := ln.StartNode.ID
		j := ln.EndNode.ID
		if ln.TraveltimeReal[w.Timestep] != 0.0 {
			w.AdjMatTime[i][j] = ln.TraveltimeReal[w.Timestep]
		} else {
			w.AdjMatTime[i][j] = ln.Length / ln.Vmax
		}
	}
}

// MainLoop runs the simulation from the current timestep. At most one of
// durationT and endT may be non-negative: durationT runs for that many
// seconds from the current time, endT runs until that simulation time,
// both negative runs to the end of the scenario. May be called repeatedly
// to resume a paused simulation.
func (w *World) MainLoop(durationT, endT float64) error {
	w.InitializeAdjMatrix()

	startTS := w.Timestep
	var endTS int
	switch {
	case durationT < 0 && endT < 0:
		endTS = w.TotalTimesteps
	case durationT >= 0 && endT < 0:
		endTS = int(math.Floor((durationT+w.Time)/w.DeltaT)) + 1
	case durationT < 0 && endT >= 0:
		endTS = int(math.Floor(endT/w.DeltaT)) + 1
	default:
		return errors.New("cannot specify both `durationT` and `endT` parameters for World.MainLoop")
	}

	if endTS > w.TotalTimesteps {
		endTS = w.TotalTimesteps
	}
	if endTS <= startTS {
		return nil
	}

	for w.Timestep = startTS; w.Timestep < endTS; w.Timestep++ {
		w.Time = float64(w.Timestep) * w.DeltaT

		for _, ln := range w.Links {
			ln.Update()
		}

		for _, nd := range w.Nodes {
			nd.Generate()
			nd.SignalUpdate()
		}

		for _, nd := range w.Nodes {
			nd.Transfer()
		}

		vehCount := 0
		aveSpeed := 0.0
		for _, veh := range w.vehiclesRunning {
			veh.CarFollowNewell()

			vehCount++
			aveSpeed = aveSpeed*float64(vehCount-1)/float64(vehCount) + veh.V/float64(vehCount)
		}

		// Snapshot so that trip completions can unregister mid-scan.
		living := append([]*Vehicle(nil), w.vehiclesLiving...)
		for _, veh := range living {
			veh.Update()
		}

		if w.TimestepForRouteUpdate > 0 && w.Timestep%w.TimestepForRouteUpdate == 0 {
			w.updateAdjTimeMatrix()
			w.RouteDist, w.RouteNext = routeSearchAll(w.AdjMatTime, 0.0)
			w.routeChoiceDUO()
		}

		if w.PrintMode == 1 && w.TotalTimesteps > 0 {
			cadence := w.TotalTimesteps / 10
			if cadence == 0 {
				cadence = 1
			}
			if w.Timestep%cadence == 0 {
				if w.Timestep == 0 {
					fmt.Fprintln(w.Writer, "Simulating...")
					fmt.Fprintf(w.Writer, "%10s|%14s|%11s\n", "time", "# of vehicles", " ave speed")
				}
				fmt.Fprintf(w.Writer, "%8.0f s|%10.0f veh|%7.2f m/s\n", w.Time, float64(vehCount)*w.DeltaN, aveSpeed)
			}
		}
	}
	return nil
}

// CheckSimulationOngoing reports whether the scenario end has not been
// reached yet.
func (w *World) CheckSimulationOngoing() bool {
	return w.Timestep < w.TotalTimesteps
}

// GetNode returns a node by name.
func (w *World) GetNode(nodeName string) (*Node, error) {
	if nd, ok := w.nodesMap[nodeName]; ok {
		return nd, nil
	}
	fmt.Fprintf(w.Writer, "Error at function GetNode(): `%s` not found\n", nodeName)
	return nil, errors.Errorf("node `%s` not found", nodeName)
}

// GetLink returns a link by name.
func (w *World) GetLink(linkName string) (*Link, error) {
	if ln, ok := w.linksMap[linkName]; ok {
		return ln, nil
	}
	fmt.Fprintf(w.Writer, "Error at function GetLink(): `%s` not found\n", linkName)
	return nil, errors.Errorf("link `%s` not found", linkName)
}

// GetLinkByID returns a link by its numeric ID.
func (w *World) GetLinkByID(linkID int) (*Link, error) {
	for _, ln := range w.Links {
		if ln.ID == linkID {
			return ln, nil
		}
	}
	fmt.Fprintf(w.Writer, "Error at function GetLinkByID(): `%d` not found\n", linkID)
	return nil, errors.Errorf("link id `%d` not found", linkID)
}

// GetVehicle returns a vehicle by name.
func (w *World) GetVehicle(vehicleName string) (*Vehicle, error) {
	if veh, ok := w.vehiclesMap[vehicleName]; ok {
		return veh, nil
	}
	fmt.Fprintf(w.Writer, "Error at function GetVehicle(): `%s` not found\n", vehicleName)
	return nil, errors.Errorf("vehicle `%s` not found", vehicleName)
}
