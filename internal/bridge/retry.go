package bridge

import "os"

// retryState tracks where a conversion is in its bounded retry lifecycle.
type retryState int

const (
	retryInitial retryState = iota
	retryingDirect
	retryTerminal
)

// decision is what the policy wants the bridge to do after an attempt.
type decision int

const (
	// decisionSuccess: the attempt succeeded, stop.
	decisionSuccess decision = iota
	// decisionFail: unrecoverable failure, surface the diagnostic.
	decisionFail
	// decisionRetryDirect: the converter refused piped input but the source
	// is a real file; run exactly one direct-mode attempt.
	decisionRetryDirect
	// decisionNeedsRealFile: the converter refused piped input and the
	// source is not a real (stat-able) file, so no retry is possible.
	decisionNeedsRealFile
)

// retryPolicy decides whether a failed attempt warrants the single
// direct-mode retry. Some converters refuse standard-input invocation for
// particular formats but work when given the path directly; that only helps
// when the path denotes an addressable file on real storage, since the
// converter process has to open it itself.
type retryPolicy struct {
	state retryState
	stat  func(string) error
}

func newRetryPolicy() *retryPolicy {
	return &retryPolicy{stat: func(path string) error {
		_, err := os.Stat(path)
		return err
	}}
}

// observe feeds one attempt's outcome into the state machine. piped reports
// whether the attempt streamed the source through standard input; source is
// the original path, consulted only when considering a retry.
func (p *retryPolicy) observe(source string, piped bool, out outcome) decision {
	switch p.state {
	case retryInitial:
		if out.ok() {
			p.state = retryTerminal
			return decisionSuccess
		}
		if !piped || !out.pipeRefused() {
			p.state = retryTerminal
			return decisionFail
		}
		if p.stat(source) != nil {
			p.state = retryTerminal
			return decisionNeedsRealFile
		}
		p.state = retryingDirect
		return decisionRetryDirect
	case retryingDirect:
		p.state = retryTerminal
		if out.ok() {
			return decisionSuccess
		}
		return decisionFail
	default:
		// Terminal: no further attempts regardless of outcome.
		return decisionFail
	}
}
