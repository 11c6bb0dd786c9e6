package gpx

import (
	"fmt"

	"gpsbridge/internal/vfs"
)

// Layer names produced by GPX conversion, in dataset order.
const (
	LayerWaypoints   = "waypoints"
	LayerRoutes      = "routes"
	LayerRoutePoints = "route_points"
	LayerTracks      = "tracks"
	LayerTrackPoints = "track_points"
)

// LayerNames lists every candidate layer in dataset order.
func LayerNames() []string {
	return []string{LayerWaypoints, LayerRoutes, LayerRoutePoints, LayerTracks, LayerTrackPoints}
}

// Dataset is an opened GPX artifact presented as named layers.
type Dataset struct {
	layers map[string]*Layer
	closed bool
}

// Layer groups the features of one GPX entity kind.
type Layer struct {
	name     string
	features []Point
}

// Name returns the layer's dataset name.
func (l *Layer) Name() string { return l.name }

// FeatureCount returns the number of features in the layer.
func (l *Layer) FeatureCount() int { return len(l.features) }

// Features returns the layer's features. The slice is owned by the dataset
// and shares its lifetime.
func (l *Layer) Features() []Point { return l.features }

// Open reads the GPX artifact at path through fsys and builds its layers.
func Open(fsys vfs.FS, path string) (*Dataset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return newDataset(doc), nil
}

func newDataset(doc *Document) *Dataset {
	var routeFeatures, routePoints []Point
	for _, route := range doc.Routes {
		feature := Point{Name: route.Name}
		if len(route.Points) > 0 {
			feature.Lat = route.Points[0].Lat
			feature.Lon = route.Points[0].Lon
		}
		routeFeatures = append(routeFeatures, feature)
		routePoints = append(routePoints, route.Points...)
	}

	var trackFeatures, trackPoints []Point
	for _, track := range doc.Tracks {
		feature := Point{Name: track.Name}
		for _, segment := range track.Segments {
			if feature.Lat == 0 && feature.Lon == 0 && len(segment) > 0 {
				feature.Lat = segment[0].Lat
				feature.Lon = segment[0].Lon
			}
			trackPoints = append(trackPoints, segment...)
		}
		trackFeatures = append(trackFeatures, feature)
	}

	return &Dataset{layers: map[string]*Layer{
		LayerWaypoints:   {name: LayerWaypoints, features: doc.Waypoints},
		LayerRoutes:      {name: LayerRoutes, features: routeFeatures},
		LayerRoutePoints: {name: LayerRoutePoints, features: routePoints},
		LayerTracks:      {name: LayerTracks, features: trackFeatures},
		LayerTrackPoints: {name: LayerTrackPoints, features: trackPoints},
	}}
}

// Layer looks up a layer by name. Layers remain valid until Close.
func (d *Dataset) Layer(name string) (*Layer, bool) {
	if d.closed {
		return nil, false
	}
	layer, ok := d.layers[name]
	return layer, ok
}

// Close releases the dataset. Layers obtained from it must not be used
// afterwards.
func (d *Dataset) Close() error {
	d.closed = true
	d.layers = nil
	return nil
}
