package api

import "fmt"

// Kind tags the variant of a normalized response.
type Kind int

const (
	// KindSuccess is a well-formed expected response.
	KindSuccess Kind = iota
	// KindRecognizedFailure is an error status the endpoint explicitly models.
	KindRecognizedFailure
	// KindRateLimited is an HTTP 429 with its rate-limit headers.
	KindRateLimited
	// KindGenericFailure is anything the endpoint does not model: unexpected
	// status, network fault, malformed body.
	KindGenericFailure
	// KindCanceled means the caller aborted the call before completion.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRecognizedFailure:
		return "recognized_failure"
	case KindRateLimited:
		return "rate_limited"
	case KindGenericFailure:
		return "generic_failure"
	case KindCanceled:
		return "canceled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the sealed set of normalized results. Only the variant types in
// this package implement it.
type Outcome interface {
	Kind() Kind
	sealed()
}

// Response is the outcome of an endpoint whose success carries a T.
// Callers switch on the concrete variant:
//
//	switch r := resp.(type) {
//	case api.Success[api.SessionPayload]:
//	case api.RecognizedFailure:
//	case api.RateLimited:
//	case api.GenericFailure:
//	case api.Canceled:
//	default:
//		panic(api.UnexpectedOutcome(resp))
//	}
type Response[T any] interface {
	Outcome
}

type Success[T any] struct {
	Data   T
	Status int
}

func (Success[T]) Kind() Kind { return KindSuccess }
func (Success[T]) sealed()    {}

// RecognizedFailure is an error status the endpoint declares. Message is the
// server supplied reason, empty when the response had no usable body.
type RecognizedFailure struct {
	Status  int
	Message string
}

func (RecognizedFailure) Kind() Kind { return KindRecognizedFailure }
func (RecognizedFailure) sealed()    {}

// RateLimited holds the rate-limit headers of a 429. Absent or non-numeric
// headers are NaN.
type RateLimited struct {
	After     float64 // retry-after
	Limit     float64 // ratelimit-limit
	Remaining float64 // ratelimit-remaining
	Reset     float64 // ratelimit-reset, seconds until the window resets
}

func (RateLimited) Kind() Kind { return KindRateLimited }
func (RateLimited) sealed()    {}

// GenericFailure carries status 0 when no response was received.
type GenericFailure struct {
	Status     int
	StatusText string
}

func (GenericFailure) Kind() Kind { return KindGenericFailure }
func (GenericFailure) sealed()    {}

type Canceled struct{}

func (Canceled) Kind() Kind { return KindCanceled }
func (Canceled) sealed()    {}

// UnexpectedOutcome builds the panic value for an exhaustive switch that met a
// variant it does not handle.
func UnexpectedOutcome(o Outcome) error {
	return fmt.Errorf("unexpected response variant %T (%s)", o, o.Kind())
}
