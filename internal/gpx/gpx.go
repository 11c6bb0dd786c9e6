package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Point is a single positioned feature: a waypoint, route point, or track
// point.
type Point struct {
	Name      string
	Lat       float64
	Lon       float64
	Elevation *float64
	Time      time.Time
}

// Route is an ordered sequence of route points.
type Route struct {
	Name   string
	Points []Point
}

// Track is an ordered sequence of segments, each holding track points.
type Track struct {
	Name     string
	Segments [][]Point
}

// Document is a decoded GPX file.
type Document struct {
	Waypoints []Point
	Routes    []Route
	Tracks    []Track
}

type xmlGPX struct {
	XMLName   xml.Name   `xml:"gpx"`
	Waypoints []xmlPoint `xml:"wpt"`
	Routes    []xmlRoute `xml:"rte"`
	Tracks    []xmlTrack `xml:"trk"`
}

type xmlPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Name string   `xml:"name"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
}

type xmlRoute struct {
	Name   string     `xml:"name"`
	Points []xmlPoint `xml:"rtept"`
}

type xmlTrack struct {
	Name     string       `xml:"name"`
	Segments []xmlSegment `xml:"trkseg"`
}

type xmlSegment struct {
	Points []xmlPoint `xml:"trkpt"`
}

// Parse decodes a GPX document from r.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var raw xmlGPX
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode gpx: %w", err)
	}

	doc := &Document{
		Waypoints: convertPoints(raw.Waypoints),
		Routes:    make([]Route, 0, len(raw.Routes)),
		Tracks:    make([]Track, 0, len(raw.Tracks)),
	}
	for _, route := range raw.Routes {
		doc.Routes = append(doc.Routes, Route{
			Name:   route.Name,
			Points: convertPoints(route.Points),
		})
	}
	for _, track := range raw.Tracks {
		segments := make([][]Point, 0, len(track.Segments))
		for _, segment := range track.Segments {
			segments = append(segments, convertPoints(segment.Points))
		}
		doc.Tracks = append(doc.Tracks, Track{Name: track.Name, Segments: segments})
	}
	return doc, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func convertPoints(raw []xmlPoint) []Point {
	points := make([]Point, 0, len(raw))
	for _, p := range raw {
		point := Point{
			Name:      p.Name,
			Lat:       p.Lat,
			Lon:       p.Lon,
			Elevation: p.Ele,
		}
		if p.Time != "" {
			if ts, err := time.Parse(time.RFC3339, p.Time); err == nil {
				point.Time = ts
			}
		}
		points = append(points, point)
	}
	return points
}
