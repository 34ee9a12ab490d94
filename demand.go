package uxsimpp

import (
	"fmt"

	"github.com/pkg/errors"
)

// AddDemand emits vehicles for an origin-destination flow between startT
// and endT. The flow accumulates per timestep and a vehicle departs each
// time one platoon's worth has built up, so roughly
// flow*(endT-startT)/deltaN platoons are produced. linksPreferred names
// links the vehicles stick to when they appear among the candidates.
func AddDemand(w *World, origName, destName string, startT, endT, flow float64, linksPreferred []string) error {
	demand := 0.0
	for t := startT; t < endT; t += w.DeltaT {
		demand += flow * w.DeltaT
		if demand > w.DeltaN {
			veh, err := AddVehicle(w, fmt.Sprintf("%s-%s-%f", origName, destName, t), t, origName, destName)
			if err != nil {
				return errors.Wrap(err, "Can't add demand")
			}
			for _, linkName := range linksPreferred {
				ln, err := w.GetLink(linkName)
				if err != nil {
					return errors.Wrapf(err, "Can't resolve preferred link for vehicle `%s`", veh.Name)
				}
				veh.LinksPreferred = append(veh.LinksPreferred, ln)
			}
			demand -= w.DeltaN
		}
	}
	return nil
}
