package bridge

import (
	"gpsbridge/internal/gpx"
	"gpsbridge/internal/vfs"
)

// Layer is one named feature layer borrowed from the opened dataset. Layers
// share the dataset's lifetime: they become invalid when the bridge closes.
type Layer interface {
	Name() string
	FeatureCount() int
}

// Dataset is the artifact-reader surface the bridge consumes: named layer
// lookup over the converted artifact.
type Dataset interface {
	Layer(name string) (Layer, bool)
	Close() error
}

// DatasetOpener opens a converted artifact through the given filesystem.
type DatasetOpener func(fsys vfs.FS, path string) (Dataset, error)

// openGPXDataset is the default opener, reading the GPX interchange output.
func openGPXDataset(fsys vfs.FS, path string) (Dataset, error) {
	ds, err := gpx.Open(fsys, path)
	if err != nil {
		return nil, err
	}
	return gpxDataset{ds}, nil
}

// gpxDataset adapts *gpx.Dataset to the Dataset interface.
type gpxDataset struct {
	ds *gpx.Dataset
}

func (d gpxDataset) Layer(name string) (Layer, bool) {
	layer, ok := d.ds.Layer(name)
	if !ok {
		return nil, false
	}
	return layer, true
}

func (d gpxDataset) Close() error { return d.ds.Close() }

// selectLayers picks the requested, non-empty layers in dataset order:
// waypoints, routes, route_points, tracks, track_points. Layers with zero
// features are silently dropped.
func selectLayers(ds Dataset, req *Request) []Layer {
	var names []string
	if req.Waypoints {
		names = append(names, gpx.LayerWaypoints)
	}
	if req.Routes {
		names = append(names, gpx.LayerRoutes, gpx.LayerRoutePoints)
	}
	if req.Tracks {
		names = append(names, gpx.LayerTracks, gpx.LayerTrackPoints)
	}

	var layers []Layer
	for _, name := range names {
		if layer, ok := ds.Layer(name); ok && layer.FeatureCount() != 0 {
			layers = append(layers, layer)
		}
	}
	return layers
}
