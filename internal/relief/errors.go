package relief

import (
	"errors"
	"fmt"

	"github.com/Faultbox/reliefmesh/internal/source"
	"github.com/Faultbox/reliefmesh/pkg/heightmap"
	"github.com/Faultbox/reliefmesh/pkg/mesh"
)

// Kind classifies a conversion failure.
type Kind string

// Failure kinds reported in results.
const (
	KindInputNotFound         Kind = "InputNotFound"
	KindInvalidInputSpecifier Kind = "InvalidInputSpecifier"
	KindRemoteFetchFailed     Kind = "RemoteFetchFailed"
	KindInvalidImage          Kind = "InvalidImage"
	KindInvalidGridDimensions Kind = "InvalidGridDimensions"
	KindInvalidSizeParameter  Kind = "InvalidSizeParameter"
	KindWriteFailure          Kind = "WriteFailure"
	KindUnexpected            Kind = "Unexpected"
)

// Error is a failure tagged with its kind and the stage that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// sentinelKinds maps package errors to kinds, checked in order.
var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{source.ErrInputNotFound, KindInputNotFound},
	{source.ErrInvalidInputSpecifier, KindInvalidInputSpecifier},
	{source.ErrRemoteFetchFailed, KindRemoteFetchFailed},
	{source.ErrInvalidImage, KindInvalidImage},
	{heightmap.ErrInvalidGridDimensions, KindInvalidGridDimensions},
	{heightmap.ErrInvalidDetailLevel, KindInvalidSizeParameter},
	{heightmap.ErrTooManySamples, KindInvalidSizeParameter},
	{mesh.ErrInvalidSizeParameter, KindInvalidSizeParameter},
}

// KindOf returns the kind of err. Tagged errors report their own kind;
// otherwise known sentinels are matched and anything else is Unexpected.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindUnexpected
}

// wrap tags err with op and its classified kind.
func wrap(op string, err error) error {
	return &Error{Kind: KindOf(err), Op: op, Err: err}
}
