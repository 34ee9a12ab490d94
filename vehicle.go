package uxsimpp

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// VehicleState is the lifecycle state of a vehicle.
type VehicleState int

const (
	StateHome VehicleState = iota // created, not yet departed
	StateWait                     // in the origin's generation queue
	StateRun                      // on a link
	StateEnd                      // trip completed
)

func (s VehicleState) String() string {
	return [...]string{"home", "wait", "run", "end"}[s]
}

// Vehicle is a platoon of World.DeltaN vehicles travelling through the
// network. It follows the Newell car-following model and chooses routes by
// the dynamic user optimum preferences of the world.
type Vehicle struct {
	w *World

	ID   int
	Name string

	DepartureTime float64
	Orig          *Node
	Dest          *Node
	Link          *Link

	ArrivalTime float64
	TravelTime  float64

	X     float64 // position on the current link (m)
	XNext float64 // position candidate for the next timestep
	V     float64 // speed (m/s)

	Leader   *Vehicle
	Follower *Vehicle

	State VehicleState

	arrivalTimeLink float64

	RouteNextLink         *Link
	routeChoiceFlagOnLink bool
	LinksPreferred        []*Link

	LogT     []float64
	LogState []VehicleState
	LogLink  []int
	LogX     []float64
	LogV     []float64
}

// AddVehicle creates a vehicle in the HOME state and registers it in the
// world. AddDemand is the usual entry point; this exists for single trips.
func AddVehicle(w *World, vehicleName string, departureTime float64, origName, destName string) (*Vehicle, error) {
	orig, err := w.GetNode(origName)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't resolve origin for vehicle `%s`", vehicleName)
	}
	dest, err := w.GetNode(destName)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't resolve destination for vehicle `%s`", vehicleName)
	}

	veh := &Vehicle{
		w:             w,
		ID:            w.vehicleID,
		Name:          vehicleName,
		DepartureTime: departureTime,
		Orig:          orig,
		Dest:          dest,
		State:         StateHome,
	}
	w.Vehicles = append(w.Vehicles, veh)
	w.vehiclesLiving = append(w.vehiclesLiving, veh)
	w.vehicleID++
	w.vehiclesMap[vehicleName] = veh
	return veh, nil
}

// Update advances the vehicle state machine by one timestep. Position and
// speed commit here from the XNext computed by CarFollowNewell, so that all
// vehicles of a tick read pre-step leader positions.
func (veh *Vehicle) Update() {
	switch veh.State {
	case StateHome:
		if float64(veh.w.Timestep)*veh.w.DeltaT >= veh.DepartureTime {
			veh.logData()
			veh.State = StateWait
			veh.Orig.generationQueue = append(veh.Orig.generationQueue, veh)
		}
	case StateWait:
		veh.logData()
	case StateRun:
		veh.logData()

		if veh.X == 0.0 {
			veh.routeChoiceFlagOnLink = false
		}

		veh.V = (veh.XNext - veh.X) / veh.w.DeltaT
		veh.X = veh.XNext

		if math.Abs(veh.X-veh.Link.Length) < 1e-9 {
			// Reached the downstream node of the current link.
			if veh.Link.EndNode == veh.Dest {
				veh.endTrip()
				veh.logData()
			} else {
				veh.RouteNextLinkChoice(veh.Link.EndNode.OutLinks)
				veh.Link.EndNode.incomingVehicles = append(veh.Link.EndNode.incomingVehicles, veh)
			}
		}
	case StateEnd:
		// nothing to do
	}
}

// endTrip completes the trip: records the final traversal, unregisters the
// vehicle from the living and running sets and detaches it from its link.
// The follower keeps no leader; Newell treats it as free flowing until a
// new vehicle enters in front of it.
func (veh *Vehicle) endTrip() {
	veh.State = StateEnd

	t := veh.w.Timestep
	veh.Link.DepartureCurve[t] += veh.w.DeltaN
	veh.recordTravelTime(veh.Link, float64(t)*veh.w.DeltaT)

	veh.ArrivalTime = float64(t) * veh.w.DeltaT
	veh.TravelTime = veh.ArrivalTime - veh.DepartureTime

	veh.w.vehiclesLiving = removeFromSlice(veh.w.vehiclesLiving, veh)
	veh.w.vehiclesRunning = removeFromSlice(veh.w.vehiclesRunning, veh)

	veh.Link.Vehicles = veh.Link.Vehicles[1:]

	if veh.Follower != nil {
		veh.Follower.Leader = nil
	}
	veh.Link = nil
	veh.X = 0.0
}

// CarFollowNewell computes the next-position candidate from the free flow
// speed and the congested bound imposed by the leader.
func (veh *Vehicle) CarFollowNewell() {
	veh.XNext = veh.X + veh.Link.Vmax*veh.w.DeltaT

	if veh.Leader != nil {
		gap := veh.Leader.X - veh.Link.Delta*veh.w.DeltaN
		if veh.XNext >= gap {
			veh.XNext = gap
		}
	}

	if veh.XNext < veh.X {
		veh.XNext = veh.X
	}

	if veh.XNext >= veh.Link.Length {
		veh.XNext = veh.Link.Length
	}
}

// RouteNextLinkChoice samples the next link out of the candidate set. A
// non-empty preferred-link whitelist that intersects the candidates wins;
// otherwise the DUO preferences toward the destination weight the draw.
func (veh *Vehicle) RouteNextLinkChoice(linkset []*Link) {
	if len(linkset) == 0 {
		veh.RouteNextLink = nil
		veh.routeChoiceFlagOnLink = true
		return
	}

	var outlinkPref []float64
	preferFlag := false

	if len(veh.LinksPreferred) > 0 {
		for _, lnOut := range linkset {
			weight := 0.0
			if lo.Contains(veh.LinksPreferred, lnOut) {
				weight = 1.0
				preferFlag = true
			}
			outlinkPref = append(outlinkPref, weight)
		}
	}
	if !preferFlag {
		outlinkPref = outlinkPref[:0]
		for _, ln := range linkset {
			outlinkPref = append(outlinkPref, veh.w.RoutePreference[veh.Dest.ID][ln])
		}
	}

	chosen, ok := randomChoice(linkset, outlinkPref, veh.w.rng)
	if ok {
		veh.RouteNextLink = chosen
	} else {
		veh.RouteNextLink = nil
	}
	veh.routeChoiceFlagOnLink = true
}

// recordTravelTime appends a completed traversal record to the given link
// and re-anchors the entry time for the next one.
func (veh *Vehicle) recordTravelTime(ln *Link, t float64) {
	if ln != nil {
		ln.TraveltimeT = append(ln.TraveltimeT, t)
		ln.TraveltimeTT = append(ln.TraveltimeTT, t-veh.arrivalTimeLink)
	}
	veh.arrivalTimeLink = t + 1.0
}

// logData appends one per-timestep log row when vehicle logging is on.
func (veh *Vehicle) logData() {
	if !veh.w.VehicleLogMode {
		return
	}
	veh.LogT = append(veh.LogT, float64(veh.w.Timestep)*veh.w.DeltaT)
	veh.LogState = append(veh.LogState, veh.State)
	if veh.Link != nil {
		veh.LogLink = append(veh.LogLink, veh.Link.ID)
	} else {
		veh.LogLink = append(veh.LogLink, -1)
	}
	veh.LogX = append(veh.LogX, veh.X)
	if veh.Link != nil && math.Abs(veh.X-(veh.Link.Length-1.0)) > 1e-9 {
		veh.LogV = append(veh.LogV, veh.V)
	} else {
		veh.LogV = append(veh.LogV, 0.0)
	}
}
