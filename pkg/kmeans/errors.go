package kmeans

import "fmt"

// ErrorKind is a stable, user-facing error classification. Callers
// that need to branch on the failure mode should use errors.Is against
// the sentinel values below rather than inspecting Error() text.
type ErrorKind string

const (
	ErrKindInvalidInput         ErrorKind = "invalid_input"
	ErrKindOutputExists         ErrorKind = "output_exists"
	ErrKindInsufficientPoints   ErrorKind = "insufficient_points"
	ErrKindSampleTooSmall       ErrorKind = "sample_too_small"
	ErrKindInvalidThreshold     ErrorKind = "invalid_threshold"
	ErrKindThresholdUnavailable ErrorKind = "threshold_unavailable"
	ErrKindUnknownMetric        ErrorKind = "unknown_metric"
	ErrKindUnknownInitMethod    ErrorKind = "unknown_init_method"
	ErrKindCancelled            ErrorKind = "cancelled"
)

// ClusterError is the concrete error type the engine returns for every
// user-facing failure. Wrap with %w and compare with errors.Is against
// one of the package-level sentinels below.
type ClusterError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ClusterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kmeans: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("kmeans: %s: %s", e.Kind, e.Msg)
}

func (e *ClusterError) Unwrap() error { return e.Err }

// Is lets errors.Is match on Kind alone, so callers can write
// errors.Is(err, kmeans.ErrInsufficientPoints) without caring about
// the wrapped detail or message.
func (e *ClusterError) Is(target error) bool {
	t, ok := target.(*ClusterError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind ErrorKind, msg string, cause error) *ClusterError {
	return &ClusterError{Kind: kind, Msg: msg, Err: cause}
}

// Sentinels usable with errors.Is. Only Kind participates in equality.
var (
	ErrInvalidInput         = &ClusterError{Kind: ErrKindInvalidInput}
	ErrOutputExists         = &ClusterError{Kind: ErrKindOutputExists}
	ErrInsufficientPoints   = &ClusterError{Kind: ErrKindInsufficientPoints}
	ErrSampleTooSmall       = &ClusterError{Kind: ErrKindSampleTooSmall}
	ErrInvalidThreshold     = &ClusterError{Kind: ErrKindInvalidThreshold}
	ErrThresholdUnavailable = &ClusterError{Kind: ErrKindThresholdUnavailable}
	ErrUnknownMetric        = &ClusterError{Kind: ErrKindUnknownMetric}
	ErrUnknownInitMethod    = &ClusterError{Kind: ErrKindUnknownInitMethod}
	ErrCancelled            = &ClusterError{Kind: ErrKindCancelled}
)
