package uxsimpp

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
)

const (
	earthRadius = 6370.986884258304
	pi180       = math.Pi / 180.0
)

// Free flow speed (m/s) per OSM highway class.
var freeSpeedByHighway = map[string]float64{
	"motorway":       33.3,
	"motorway_link":  16.7,
	"trunk":          27.8,
	"trunk_link":     13.9,
	"primary":        16.7,
	"primary_link":   11.1,
	"secondary":      13.9,
	"secondary_link": 11.1,
	"tertiary":       11.1,
	"tertiary_link":  8.3,
	"residential":    8.3,
	"living_street":  5.6,
	"service":        8.3,
	"unclassified":   11.1,
	"road":           11.1,
}

// OSMImportConfig controls ImportFromOSMFile. Zero values fall back to the
// default drivable highway set, a jam density of 0.2 veh/m and merge
// priority 1 on every imported link.
type OSMImportConfig struct {
	AllowedHighways []string
	Kappa           float64
	MergePriority   float64
	Verbose         bool
}

type osmWay struct {
	id     int64
	nodes  []int64
	oneway bool
	speed  float64
}

// ImportFromOSMFile builds simulation nodes and links from the highway
// ways of a PBF-formatted OSM extract. Ways are split at crossings, node
// coordinates become (x, y) = (lon, lat) and segment lengths come from
// great-circle distances in meters.
func ImportFromOSMFile(w *World, fileName string, cfg *OSMImportConfig) error {
	if cfg == nil {
		cfg = &OSMImportConfig{}
	}
	allowed := make(map[string]struct{})
	if len(cfg.AllowedHighways) == 0 {
		for highway := range freeSpeedByHighway {
			allowed[highway] = struct{}{}
		}
	} else {
		for _, highway := range cfg.AllowedHighways {
			allowed[highway] = struct{}{}
		}
	}
	kappa := cfg.Kappa
	if kappa <= 0.0 {
		kappa = 0.2
	}
	mergePriority := cfg.MergePriority
	if mergePriority <= 0.0 {
		mergePriority = 1.0
	}

	f, err := os.Open(fileName)
	if err != nil {
		return errors.Wrap(err, "File open")
	}
	defer f.Close()

	scannerWays := osmpbf.New(context.Background(), f, 4)
	defer scannerWays.Close()

	ways := []osmWay{}
	useCount := make(map[int64]int)

	if cfg.Verbose {
		fmt.Fprintf(w.Writer, "Scanning ways...")
	}
	st := time.Now()
	for scannerWays.Scan() {
		obj := scannerWays.Object()
		if obj.ObjectID().Type() != "way" {
			continue
		}
		way := obj.(*osm.Way)
		tagMap := way.TagMap()
		highway, ok := tagMap["highway"]
		if !ok {
			continue
		}
		if _, ok := allowed[highway]; !ok {
			continue
		}
		if len(way.Nodes) < 2 {
			continue
		}
		oneway := false
		if v, ok := tagMap["oneway"]; ok {
			if v == "yes" || v == "1" {
				oneway = true
			}
		}
		speed, ok := freeSpeedByHighway[highway]
		if !ok {
			speed = 11.1
		}
		prepared := osmWay{id: int64(way.ID), oneway: oneway, speed: speed}
		for _, wayNode := range way.Nodes {
			prepared.nodes = append(prepared.nodes, int64(wayNode.ID))
			useCount[int64(wayNode.ID)]++
		}
		// Endpoints always become crossings.
		useCount[prepared.nodes[0]]++
		useCount[prepared.nodes[len(prepared.nodes)-1]]++
		ways = append(ways, prepared)
	}
	if scannerWays.Err() != nil {
		return errors.Wrap(scannerWays.Err(), "Scanner error on Ways")
	}
	if cfg.Verbose {
		fmt.Fprintf(w.Writer, "Done in %v\n\tWays: %d\n", time.Since(st), len(ways))
	}

	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return errors.Wrap(err, "Can't repeat seeking")
	}
	scannerNodes := osmpbf.New(context.Background(), f, 4)
	defer scannerNodes.Close()

	coords := make(map[int64][2]float64)

	if cfg.Verbose {
		fmt.Fprintf(w.Writer, "Scanning nodes...")
	}
	st = time.Now()
	for scannerNodes.Scan() {
		obj := scannerNodes.Object()
		if obj.ObjectID().Type() != "node" {
			continue
		}
		node := obj.(*osm.Node)
		if _, ok := useCount[int64(node.ID)]; ok {
			coords[int64(node.ID)] = [2]float64{node.Lon, node.Lat}
		}
	}
	if scannerNodes.Err() != nil {
		return errors.Wrap(scannerNodes.Err(), "Scanner error on Nodes")
	}
	if cfg.Verbose {
		fmt.Fprintf(w.Writer, "Done in %v\n\tNodes: %d\n", time.Since(st), len(coords))
	}

	ensureNode := func(osmNodeID int64) (*Node, error) {
		name := fmt.Sprintf("osm%d", osmNodeID)
		if nd, ok := w.nodesMap[name]; ok {
			return nd, nil
		}
		pt, ok := coords[osmNodeID]
		if !ok {
			return nil, errors.Errorf("OSM node `%d` has no coordinates", osmNodeID)
		}
		return AddNode(w, name, pt[0], pt[1], nil, 0.0), nil
	}

	for _, way := range ways {
		segStart := 0
		segLength := 0.0
		for i := 1; i < len(way.nodes); i++ {
			p, okP := coords[way.nodes[i-1]]
			q, okQ := coords[way.nodes[i]]
			if !okP || !okQ {
				fmt.Fprintf(w.Writer, "Warning. Way %d references a node without coordinates. This way will be truncated\n", way.id)
				break
			}
			segLength += greatCircleDistance(p, q) * 1000.0

			// Split at crossings and at the way end.
			if useCount[way.nodes[i]] < 2 && i != len(way.nodes)-1 {
				continue
			}
			startNode, err := ensureNode(way.nodes[segStart])
			if err != nil {
				return errors.Wrapf(err, "Can't prepare start node for way %d", way.id)
			}
			endNode, err := ensureNode(way.nodes[i])
			if err != nil {
				return errors.Wrapf(err, "Can't prepare end node for way %d", way.id)
			}
			if segLength <= 0.0 || startNode == endNode {
				segStart = i
				segLength = 0.0
				continue
			}
			linkName := fmt.Sprintf("osmway%d_%d", way.id, segStart)
			_, err = AddLink(w, linkName, startNode.Name, endNode.Name, way.speed, kappa, segLength, mergePriority, -1.0, nil)
			if err != nil {
				return errors.Wrapf(err, "Can't add link for way %d", way.id)
			}
			if !way.oneway {
				_, err = AddLink(w, linkName+"_r", endNode.Name, startNode.Name, way.speed, kappa, segLength, mergePriority, -1.0, nil)
				if err != nil {
					return errors.Wrapf(err, "Can't add reverse link for way %d", way.id)
				}
			}
			segStart = i
			segLength = 0.0
		}
	}
	return nil
}

// greatCircleDistance returns the distance between two (lon, lat) points
// in kilometers.
func greatCircleDistance(p, q [2]float64) float64 {
	lat1 := p[1] * pi180
	lon1 := p[0] * pi180
	lat2 := q[1] * pi180
	lon2 := q[0] * pi180
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return c * earthRadius
}
