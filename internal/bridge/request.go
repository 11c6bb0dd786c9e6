package bridge

import "strings"

// SchemePrefix introduces the embedded request form, matched
// case-insensitively.
const SchemePrefix = "GPSBABEL:"

const featuresKeyword = "features="

// Request describes one conversion. Immutable once built: treat instances
// as read-only after ParseRequest or NewRequest return.
type Request struct {
	// Source is the vendor file or device path handed to the converter.
	Source string
	// Driver is the converter input-format identifier, optionally carrying
	// comma-separated driver options (e.g. "garmin_txt,snlen=10").
	Driver string

	// ExplicitFeatures records whether the caller filtered categories; only
	// then are per-category flags added to the invocation.
	ExplicitFeatures bool
	Waypoints        bool
	Routes           bool
	Tracks           bool
}

const requestSyntaxHint = "expected GPSBABEL:driver_name[,options]*:[features=waypoints,tracks,routes:]file_name"

// NewRequest builds a request from out-of-band driver and source values,
// behaving identically to the embedded form once parsed. All categories are
// included by default.
func NewRequest(source, driver string) (*Request, error) {
	if source == "" {
		return nil, newError(KindSyntax, "missing source path")
	}
	if driver == "" {
		return nil, newError(KindSyntax, "missing gpsbabel driver name")
	}
	if !ValidDriverName(driver) {
		return nil, newError(KindDriverName, "invalid gpsbabel driver name %q", driver)
	}
	return &Request{
		Source:    source,
		Driver:    driver,
		Waypoints: true,
		Routes:    true,
		Tracks:    true,
	}, nil
}

// ParseRequest parses the embedded request form
// GPSBABEL:driver[,options]*:[features=cat[,cat]*:]source.
func ParseRequest(name string) (*Request, error) {
	if len(name) < len(SchemePrefix) || !strings.EqualFold(name[:len(SchemePrefix)], SchemePrefix) {
		return nil, newError(KindSyntax, "wrong syntax: %s", requestSyntaxHint)
	}
	rest := name[len(SchemePrefix):]

	sep := strings.IndexByte(rest, ':')
	if sep < 0 {
		return nil, newError(KindSyntax, "wrong syntax: %s", requestSyntaxHint)
	}
	driver := rest[:sep]
	if !ValidDriverName(driver) {
		return nil, newError(KindDriverName, "invalid gpsbabel driver name %q", driver)
	}

	req := &Request{
		Driver:    driver,
		Waypoints: true,
		Routes:    true,
		Tracks:    true,
	}

	after := rest[sep+1:]
	if len(after) >= len(featuresKeyword) && strings.EqualFold(after[:len(featuresKeyword)], featuresKeyword) {
		value := after[len(featuresKeyword):]
		end := strings.IndexByte(value, ':')
		if end < 0 {
			return nil, newError(KindSyntax, "wrong syntax: %s", requestSyntaxHint)
		}
		if err := req.applyFeatureFilter(value[:end]); err != nil {
			return nil, err
		}
		after = value[end+1:]
	}

	if after == "" {
		return nil, newError(KindSyntax, "missing source path")
	}
	req.Source = after
	return req, nil
}

// FilterFeatures restricts the request to the named categories, mirroring
// the embedded features= segment for callers that pass the filter
// out-of-band.
func (r *Request) FilterFeatures(list string) error {
	return r.applyFeatureFilter(list)
}

// Categories lists the requested feature categories in canonical order.
func (r *Request) Categories() []string {
	var cats []string
	if r.Waypoints {
		cats = append(cats, "waypoints")
	}
	if r.Routes {
		cats = append(cats, "routes")
	}
	if r.Tracks {
		cats = append(cats, "tracks")
	}
	return cats
}

func (r *Request) applyFeatureFilter(list string) error {
	r.ExplicitFeatures = true
	r.Waypoints = false
	r.Routes = false
	r.Tracks = false

	for _, token := range strings.Split(list, ",") {
		switch strings.ToLower(strings.TrimSpace(token)) {
		case "waypoints":
			r.Waypoints = true
		case "routes":
			r.Routes = true
		case "tracks":
			r.Tracks = true
		case "":
		default:
			return newError(KindSyntax, "wrong value %q for features option", strings.TrimSpace(token))
		}
	}
	return nil
}
