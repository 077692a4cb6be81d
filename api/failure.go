package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const maxPlainMessageLength = 200

// StatusError is returned by the transport for any non-2xx response.
type StatusError struct {
	Response *http.Response
	Body     []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %s", e.Response.Status)
}

// MalformedResponseError is returned when a 2xx body does not decode into the
// expected shape.
type MalformedResponseError struct {
	Status int
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response (status %d): %v", e.Status, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// DetectRateLimit returns the RateLimited variant when resp is exactly a 429.
// The boolean is false for every other status.
func DetectRateLimit(resp *http.Response) (RateLimited, bool) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return RateLimited{}, false
	}
	return RateLimited{
		After:     headerNumber(resp.Header, "Retry-After"),
		Limit:     headerNumber(resp.Header, "RateLimit-Limit"),
		Remaining: headerNumber(resp.Header, "RateLimit-Remaining"),
		Reset:     headerNumber(resp.Header, "RateLimit-Reset"),
	}, true
}

func headerNumber(h http.Header, name string) float64 {
	v := strings.TrimSpace(h.Get(name))
	if v == "" {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// GenericFailureFrom builds a GenericFailure for a status the caller does not
// special-case.
func GenericFailureFrom(resp *http.Response) GenericFailure {
	return GenericFailure{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
	}
}

// statusText is the reason phrase of the status line, which may be empty.
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, code))
}

// RecognizedFailureFrom extracts the server supplied reason from a declared
// error status. A JSON {"message": ...} body wins; short plain text bodies are
// used as-is; anything else leaves Message empty.
func RecognizedFailureFrom(statusErr *StatusError) RecognizedFailure {
	failure := RecognizedFailure{Status: statusErr.Response.StatusCode}

	body := strings.TrimSpace(string(statusErr.Body))
	if body == "" {
		return failure
	}

	var errBody ErrorBody
	if err := json.Unmarshal(statusErr.Body, &errBody); err == nil {
		failure.Message = errBody.Message
		return failure
	}
	if len(body) <= maxPlainMessageLength && !strings.HasPrefix(body, "<") {
		failure.Message = body
	}
	return failure
}

// UnknownFailure classifies a transport error. Cancellation and faults with no
// usable response come back as a final Outcome. An error carrying a response
// is returned as *StatusError with a nil Outcome so the endpoint can branch on
// its status.
func UnknownFailure(err error) (*StatusError, Outcome) {
	if errors.Is(err, context.Canceled) {
		return nil, Canceled{}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, nil
	}

	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		log.Warn().Err(err).Int("status", malformed.Status).Msg("malformed API response")
		return nil, GenericFailure{Status: malformed.Status, StatusText: "malformed response"}
	}

	log.Error().Err(err).Msg("request failed without a response")
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, GenericFailure{Status: 0, StatusText: "request timed out"}
	}
	return nil, GenericFailure{Status: 0, StatusText: "unknown error"}
}

// classifyFailure runs the shared failure pipeline: UnknownFailure, then
// DetectRateLimit, then the endpoint's declared statuses. Anything else
// degrades to a GenericFailure.
func classifyFailure(err error, recognized ...int) Outcome {
	statusErr, outcome := UnknownFailure(err)
	if outcome != nil {
		return outcome
	}
	if rl, ok := DetectRateLimit(statusErr.Response); ok {
		return rl
	}
	for _, status := range recognized {
		if statusErr.Response.StatusCode == status {
			return RecognizedFailureFrom(statusErr)
		}
	}
	return GenericFailureFrom(statusErr.Response)
}
