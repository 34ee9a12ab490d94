package main

import (
	"flag"
	"fmt"
	"os"

	uxsimpp "github.com/toruseo/UXsimpp"
)

var (
	gridSize      = flag.Int("grid", 8, "Size of the demo grid network (grid x grid nodes)")
	tMax          = flag.Float64("tmax", 10000, "Simulation duration (seconds)")
	deltaN        = flag.Float64("deltan", 5, "Platoon size (vehicles)")
	tau           = flag.Float64("tau", 1, "Reaction time (seconds)")
	duoTime       = flag.Float64("duot", 300, "Route choice update interval (seconds)")
	duoWeight     = flag.Float64("duow", 0.5, "Route choice update weight")
	flow          = flag.Float64("flow", 0.05, "Demand flow per perimeter OD pair (vehicles/second)")
	seed          = flag.Int64("seed", 42, "Random seed")
	osmFileName   = flag.String("osm", "", "Import network from *.osm.pbf instead of building the demo grid")
	outGeoJSON    = flag.String("geojson", "", "Filename for GeoJSON export of the network and final state")
	outCSV        = flag.String("csv", "", "Filename base for link/vehicle summary CSV export")
	outGraph      = flag.String("graph", "", "Filename base for routing graph CSV export")
	doContraction = flag.Bool("contract", false, "Prepare contraction hierarchies for the routing graph export?")
)

func main() {
	flag.Parse()

	w := uxsimpp.NewWorld(
		"demo",
		*tMax,
		*deltaN,
		*tau,
		*duoTime,
		*duoWeight,
		0.5, // route choice uncertainty
		1,   // print mode
		*seed,
		true,
	)

	if *osmFileName != "" {
		err := uxsimpp.ImportFromOSMFile(w, *osmFileName, &uxsimpp.OSMImportConfig{Verbose: true})
		if err != nil {
			fmt.Println(err)
			return
		}
	} else {
		if err := buildGridScenario(w, *gridSize, *flow); err != nil {
			fmt.Println(err)
			return
		}
	}

	w.InitializeAdjMatrix()
	w.PrintScenarioStats()

	if err := w.MainLoop(-1, -1); err != nil {
		fmt.Println(err)
		return
	}
	w.PrintSimpleResults()

	if *outGeoJSON != "" {
		b, err := w.ExportGeoJSON()
		if err != nil {
			fmt.Println(err)
			return
		}
		if err := os.WriteFile(*outGeoJSON, b, 0644); err != nil {
			fmt.Println(err)
			return
		}
	}
	if *outCSV != "" {
		if err := w.ExportSummaryCSV(*outCSV); err != nil {
			fmt.Println(err)
			return
		}
	}
	if *outGraph != "" {
		if err := w.ExportRoutingGraph(*outGraph, *doContraction); err != nil {
			fmt.Println(err)
			return
		}
	}
}

// buildGridScenario creates a bidirectional grid network with demand
// between the perimeter nodes.
func buildGridScenario(w *uxsimpp.World, size int, flow float64) error {
	coord := func(i, j int) string {
		return fmt.Sprintf("node%d-%d", i, j)
	}

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			uxsimpp.AddNode(w, coord(i, j), float64(i), float64(j), nil, 0.0)
		}
	}
	addLink := func(i, j, k, l int, suffix string) error {
		name := fmt.Sprintf("link%d-%d-%d-%d%s", i, j, k, l, suffix)
		_, err := uxsimpp.AddLink(w, name, coord(i, j), coord(k, l), 10, 0.2, 1000, 1, -1.0, nil)
		return err
	}
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i > 0 {
				if err := addLink(i, j, i-1, j, "a"); err != nil {
					return err
				}
			}
			if i < size-1 {
				if err := addLink(i, j, i+1, j, "b"); err != nil {
					return err
				}
			}
			if j > 0 {
				if err := addLink(i, j, i, j-1, "c"); err != nil {
					return err
				}
			}
			if j < size-1 {
				if err := addLink(i, j, i, j+1, "d"); err != nil {
					return err
				}
			}
		}
	}

	demandEnd := w.TMax * 0.3
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			pairs := [][2]string{
				{coord(0, i), coord(size-1, j)},
				{coord(i, 0), coord(j, size-1)},
				{coord(size-1, i), coord(0, j)},
				{coord(i, size-1), coord(j, 0)},
			}
			for _, pair := range pairs {
				if err := uxsimpp.AddDemand(w, pair[0], pair[1], 0, demandEnd, flow, nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
