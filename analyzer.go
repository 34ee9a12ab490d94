package uxsimpp

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LinkSummary is the aggregated state of one link at the current timestep.
type LinkSummary struct {
	Name              string
	TrafficVolume     float64 // completed departures, veh
	VehiclesRemain    float64 // still on the link, veh
	AverageTravelTime float64 // mean of completed traversals, s
	FreeTravelTime    float64 // length/vmax, s
}

// VehicleSummary is the trip record of one vehicle.
type VehicleSummary struct {
	Name          string
	Orig          string
	Dest          string
	DepartureTime float64
	ArrivalTime   float64
	TravelTime    float64
	Completed     bool
}

// LinkSummaries aggregates every link of the world.
func (w *World) LinkSummaries() []LinkSummary {
	summaries := make([]LinkSummary, 0, len(w.Links))
	for _, ln := range w.Links {
		last := w.Timestep - 1
		if last >= w.TotalTimesteps {
			last = w.TotalTimesteps - 1
		}
		volume := 0.0
		remain := 0.0
		if last >= 0 {
			volume = ln.DepartureCurve[last]
			remain = ln.ArrivalCurve[last] - ln.DepartureCurve[last]
		}
		avgTT := ln.FreeTravelTime()
		if len(ln.TraveltimeTT) > 0 {
			sum := 0.0
			for _, tt := range ln.TraveltimeTT {
				sum += tt
			}
			avgTT = sum / float64(len(ln.TraveltimeTT))
		}
		summaries = append(summaries, LinkSummary{
			Name:              ln.Name,
			TrafficVolume:     volume,
			VehiclesRemain:    remain,
			AverageTravelTime: avgTT,
			FreeTravelTime:    ln.FreeTravelTime(),
		})
	}
	return summaries
}

// VehicleSummaries collects the trip record of every vehicle.
func (w *World) VehicleSummaries() []VehicleSummary {
	summaries := make([]VehicleSummary, 0, len(w.Vehicles))
	for _, veh := range w.Vehicles {
		summaries = append(summaries, VehicleSummary{
			Name:          veh.Name,
			Orig:          veh.Orig.Name,
			Dest:          veh.Dest.Name,
			DepartureTime: veh.DepartureTime,
			ArrivalTime:   veh.ArrivalTime,
			TravelTime:    veh.TravelTime,
			Completed:     veh.State == StateEnd,
		})
	}
	return summaries
}

// ExportSummaryCSV writes the link and vehicle summary tables next to each
// other: `<base>_links.csv` and `<base>_vehicles.csv`.
func (w *World) ExportSummaryCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameLinks := fnameParts[0] + "_links.csv"
	fnameVehicles := fnameParts[0] + "_vehicles.csv"

	err := w.exportLinkSummariesToCSV(fnameLinks)
	if err != nil {
		return errors.Wrap(err, "Can't export links")
	}

	err = w.exportVehicleSummariesToCSV(fnameVehicles)
	if err != nil {
		return errors.Wrap(err, "Can't export vehicles")
	}

	return nil
}

func (w *World) exportLinkSummariesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"name", "start_node", "end_node", "length", "traffic_volume", "vehicles_remain", "average_travel_time", "free_travel_time", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	summaries := w.LinkSummaries()
	for i, ln := range w.Links {
		err = writer.Write([]string{
			ln.Name,
			ln.StartNode.Name,
			ln.EndNode.Name,
			fmt.Sprintf("%f", ln.Length),
			fmt.Sprintf("%f", summaries[i].TrafficVolume),
			fmt.Sprintf("%f", summaries[i].VehiclesRemain),
			fmt.Sprintf("%f", summaries[i].AverageTravelTime),
			fmt.Sprintf("%f", summaries[i].FreeTravelTime),
			ln.WKT(),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write link")
		}
	}
	return nil
}

func (w *World) exportVehicleSummariesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"name", "orig", "dest", "departure_time", "arrival_time", "travel_time", "completed"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, vs := range w.VehicleSummaries() {
		err = writer.Write([]string{
			vs.Name,
			vs.Orig,
			vs.Dest,
			fmt.Sprintf("%f", vs.DepartureTime),
			fmt.Sprintf("%f", vs.ArrivalTime),
			fmt.Sprintf("%f", vs.TravelTime),
			fmt.Sprintf("%t", vs.Completed),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write vehicle")
		}
	}
	return nil
}

// ExportVehicleLogCSV writes the per-timestep vehicle logs. Requires the
// world to have been created with vehicle logging on.
func (w *World) ExportVehicleLogCSV(fname string) error {
	if !w.VehicleLogMode {
		return errors.New("vehicle logging is disabled for this world")
	}
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"vehicle", "t", "state", "link", "x", "v"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, veh := range w.Vehicles {
		for j := range veh.LogT {
			linkName := ""
			if veh.LogLink[j] != -1 {
				if ln, lookupErr := w.GetLinkByID(veh.LogLink[j]); lookupErr == nil {
					linkName = ln.Name
				}
			}
			err = writer.Write([]string{
				veh.Name,
				fmt.Sprintf("%f", veh.LogT[j]),
				veh.LogState[j].String(),
				linkName,
				fmt.Sprintf("%f", veh.LogX[j]),
				fmt.Sprintf("%f", veh.LogV[j]),
			})
			if err != nil {
				return errors.Wrap(err, "Can't write log row")
			}
		}
	}
	return nil
}
