package bridge

// StdinToken is the input-path placeholder telling the converter to read
// from its standard input (piped mode).
const StdinToken = "-"

// stdoutToken tells the converter to write to standard output, which the
// bridge redirects into the temporary artifact.
const stdoutToken = "-"

// outputFormat is the interchange format every conversion targets. The
// artifact reader expects exactly this format and version.
const outputFormat = "gpx,gpxver=1.1"

// BuildArgs assembles the converter argument vector. Pure: identical inputs
// always yield an identical vector, so it is unit-testable without spawning
// anything. inputToken is either the literal source path (direct mode) or
// StdinToken (piped mode).
func BuildArgs(binary string, req *Request, inputToken string) []string {
	args := make([]string, 0, 12)
	args = append(args, binary)
	if req.ExplicitFeatures {
		if req.Waypoints {
			args = append(args, "-w")
		}
		if req.Routes {
			args = append(args, "-r")
		}
		if req.Tracks {
			args = append(args, "-t")
		}
	}
	args = append(args,
		"-i", req.Driver,
		"-f", inputToken,
		"-o", outputFormat,
		"-F", stdoutToken,
	)
	return args
}
