package uxsimpp

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
)

// ExportRoutingGraph dumps the network as a routing graph weighted by the
// experienced travel times (free flow where nothing was recorded). The
// output follows the CSV layout `<base>.csv` for edges and
// `<base>_vertices.csv` for vertices; with doContraction the graph is
// additionally prepared as contraction hierarchies and the shortcuts go to
// `<base>_shortcuts.csv`.
func (w *World) ExportRoutingGraph(fname string, doContraction bool) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameEdges := fnameParts[0] + ".csv"
	fnameVertices := fnameParts[0] + "_vertices.csv"
	fnameShortcuts := fnameParts[0] + "_shortcuts.csv"

	graph := ch.Graph{}
	for _, nd := range w.Nodes {
		err := graph.CreateVertex(int64(nd.ID))
		if err != nil {
			return errors.Wrap(err, "Can't create vertex")
		}
	}

	fileEdges, err := os.Create(fnameEdges)
	if err != nil {
		return errors.Wrap(err, "Can't create edges file")
	}
	defer fileEdges.Close()
	writerEdges := csv.NewWriter(fileEdges)
	defer writerEdges.Flush()
	writerEdges.Comma = ';'

	err = writerEdges.Write([]string{"from_vertex_id", "to_vertex_id", "weight", "name", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write edges header")
	}

	for _, ln := range w.Links {
		weight := ln.FreeTravelTime()
		if len(ln.TraveltimeTT) > 0 {
			weight = ln.TraveltimeTT[len(ln.TraveltimeTT)-1]
		}
		err = graph.AddEdge(int64(ln.StartNode.ID), int64(ln.EndNode.ID), weight)
		if err != nil {
			return errors.Wrap(err, "Can't add edge")
		}
		err = writerEdges.Write([]string{
			fmt.Sprintf("%d", ln.StartNode.ID),
			fmt.Sprintf("%d", ln.EndNode.ID),
			fmt.Sprintf("%f", weight),
			ln.Name,
			ln.WKT(),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write edge")
		}
	}

	if doContraction {
		graph.PrepareContractionHierarchies()
	}

	fileVertices, err := os.Create(fnameVertices)
	if err != nil {
		return errors.Wrap(err, "Can't create vertices file")
	}
	defer fileVertices.Close()
	writerVertices := csv.NewWriter(fileVertices)
	defer writerVertices.Flush()
	writerVertices.Comma = ';'

	err = writerVertices.Write([]string{"vertex_id", "order_pos", "importance", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write vertices header")
	}

	vertices := graph.Vertices
	for i := 0; i < len(vertices); i++ {
		label := vertices[i].Label
		geomStr := ""
		if nd, lookupErr := w.nodeByID(int(label)); lookupErr == nil {
			geomStr = nd.WKT()
		}
		err = writerVertices.Write([]string{
			fmt.Sprintf("%d", label),
			fmt.Sprintf("%d", vertices[i].OrderPos()),
			fmt.Sprintf("%d", vertices[i].Importance()),
			geomStr,
		})
		if err != nil {
			return errors.Wrap(err, "Can't write vertex")
		}
	}

	if doContraction {
		err = graph.ExportShortcutsToFile(fnameShortcuts)
		if err != nil {
			return errors.Wrap(err, "Can't export shortcuts")
		}
	}
	return nil
}

func (w *World) nodeByID(nodeID int) (*Node, error) {
	for _, nd := range w.Nodes {
		if nd.ID == nodeID {
			return nd, nil
		}
	}
	return nil, errors.Errorf("node id `%d` not found", nodeID)
}
