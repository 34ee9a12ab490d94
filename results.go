package uxsimpp

import (
	"fmt"
)

// PrintScenarioStats writes a short description of the built scenario.
func (w *World) PrintScenarioStats() {
	if w.PrintMode != 1 {
		return
	}
	fmt.Fprintf(w.Writer, "Scenario statistics:\n")
	fmt.Fprintf(w.Writer, "    duration: %g s\n", w.TMax)
	fmt.Fprintf(w.Writer, "    timesteps: %d\n", w.TotalTimesteps)
	fmt.Fprintf(w.Writer, "    nodes: %d\n", len(w.Nodes))
	fmt.Fprintf(w.Writer, "    links: %d\n", len(w.Links))
	fmt.Fprintf(w.Writer, "    platoon size: %g veh\n", w.DeltaN)
	fmt.Fprintf(w.Writer, "    platoons: %d\n", len(w.Vehicles))
	fmt.Fprintf(w.Writer, "    vehicles: %g veh\n", float64(len(w.Vehicles))*w.DeltaN)
}

// PrintSimpleResults computes network-level averages from the per-vehicle
// logs and writes a summary. With vehicle logging disabled the logs are
// empty and the averages stay zero. Totals are in vehicles, platoons times
// DeltaN.
func (w *World) PrintSimpleResults() {
	n := 0.0

	for _, veh := range w.Vehicles {
		w.TripsTotal += w.DeltaN
		for j := range veh.LogState {
			if veh.LogState[j] == StateRun {
				vCur := veh.LogV[j]
				w.AveV += (vCur - w.AveV) / (n + 1.0)

				denomVmax := 1.0
				if veh.LogLink[j] != -1 {
					if ln, err := w.GetLinkByID(veh.LogLink[j]); err == nil {
						denomVmax = ln.Vmax
					}
				}
				w.AveVRatio += (vCur/denomVmax - w.AveVRatio) / (n + 1.0)
				n += 1.0
			} else if veh.LogState[j] == StateEnd {
				w.TripsCompleted += w.DeltaN
				break
			}
		}
	}

	fmt.Fprintf(w.Writer, "Stats:\n")
	fmt.Fprintf(w.Writer, "    Average speed: %g\n", w.AveV)
	fmt.Fprintf(w.Writer, "    Average speed ratio: %g\n", w.AveVRatio)
	fmt.Fprintf(w.Writer, "    Trips completion: %g / %g\n", w.TripsCompleted, w.TripsTotal)
}
