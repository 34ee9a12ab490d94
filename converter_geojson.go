package uxsimpp

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// ExportGeoJSON returns the network together with the final link state as
// a GeoJSON FeatureCollection: one LineString feature per link and one
// Point feature per node.
func (w *World) ExportGeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	summaries := w.LinkSummaries()
	for i, ln := range w.Links {
		coords := make([][]float64, len(ln.geom))
		for p := range ln.geom {
			coords[p] = []float64{ln.geom[p].X(), ln.geom[p].Y()}
		}
		f := geojson.NewLineStringFeature(coords)
		f.SetProperty("name", ln.Name)
		f.SetProperty("start_node", ln.StartNode.Name)
		f.SetProperty("end_node", ln.EndNode.Name)
		f.SetProperty("length", ln.Length)
		f.SetProperty("vmax", ln.Vmax)
		f.SetProperty("kappa", ln.Kappa)
		f.SetProperty("capacity", ln.Capacity)
		f.SetProperty("merge_priority", ln.MergePriority)
		f.SetProperty("traffic_volume", summaries[i].TrafficVolume)
		f.SetProperty("vehicles_remain", summaries[i].VehiclesRemain)
		f.SetProperty("average_travel_time", summaries[i].AverageTravelTime)
		f.SetProperty("free_travel_time", summaries[i].FreeTravelTime)
		fc.AddFeature(f)
	}

	for _, nd := range w.Nodes {
		f := geojson.NewPointFeature([]float64{nd.X, nd.Y})
		f.SetProperty("name", nd.Name)
		f.SetProperty("signalised", len(nd.SignalIntervals) > 1)
		fc.AddFeature(f)
	}

	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert network to geojson format")
	}
	return b, nil
}
