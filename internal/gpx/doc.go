// Package gpx reads converter output in the GPX 1.1 interchange format and
// exposes it as named feature layers.
//
// The conversion bridge only ever sees the Dataset/Layer surface: five
// candidate layers (waypoints, routes, route_points, tracks, track_points)
// with per-layer feature counts. Non-UTF-8 documents are decoded through the
// charset declared in the XML prolog.
//
// Prefer Open over parsing documents by hand so layer naming and feature
// counting stay consistent with what the bridge filters on.
package gpx
