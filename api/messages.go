package api

import (
	"fmt"
	"math"
	"net/http"
)

const (
	msgRelogin          = "Your session is no longer valid, please log in again."
	msgDatabaseDisabled = "The server's database is currently disabled, please try again later."
	msgPermissionDenied = "You do not have permission to do that."
)

// UnexpectedStatusError is the panic value raised when a recognized failure
// reaches Message with a status its operation does not declare. It means the
// client and the API disagree about an endpoint's contract.
type UnexpectedStatusError struct {
	Operation Operation
	Status    int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Status, e.Operation)
}

// Message maps an outcome to the text shown to a user. Success and Canceled
// have no message.
func Message(op Operation, outcome Outcome) string {
	switch r := outcome.(type) {
	case RecognizedFailure:
		return recognizedMessage(op, r)
	case RateLimited:
		return rateLimitedMessage(r)
	case GenericFailure:
		return genericMessage(r)
	case Canceled:
		return ""
	}
	if outcome.Kind() == KindSuccess {
		return ""
	}
	panic(UnexpectedOutcome(outcome))
}

func rateLimitedMessage(r RateLimited) string {
	if math.IsNaN(r.Reset) {
		return "You are being rate limited, please try again shortly."
	}
	return fmt.Sprintf("You are being rate limited, please try again in %.0f seconds.", r.Reset)
}

func genericMessage(r GenericFailure) string {
	if r.StatusText == "" {
		return fmt.Sprintf("Request failed with status %d.", r.Status)
	}
	return fmt.Sprintf("Request failed with status %d: %s.", r.Status, r.StatusText)
}

// reason prefers the server supplied message.
func reason(f RecognizedFailure, fallback string) string {
	if f.Message != "" {
		return f.Message
	}
	return fallback
}

func recognizedMessage(op Operation, f RecognizedFailure) string {
	switch op {
	case OpRateLimitProbe:
		if f.Status == http.StatusOK {
			return "The rate limit bypass token is invalid."
		}
	case OpLogin:
		switch f.Status {
		case http.StatusBadRequest:
			return "Discord rejected the login: " + reason(f, "invalid authorization code") + ". Please try logging in again."
		case http.StatusInternalServerError:
			return "The server failed to complete the login: " + reason(f, "internal error") + "."
		case http.StatusNotImplemented:
			return msgDatabaseDisabled
		}
	case OpRefresh:
		switch f.Status {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return msgRelogin
		case http.StatusNotFound:
			return "Your account could not be found, please log in again."
		case http.StatusInternalServerError:
			return "The server failed to refresh your session: " + reason(f, "internal error") + "."
		case http.StatusNotImplemented:
			return msgDatabaseDisabled
		}
	case OpLogout:
		switch f.Status {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return "Logout failed, your session is invalid. " + msgRelogin
		}
	case OpGetUser:
		switch f.Status {
		case http.StatusUnauthorized:
			return msgRelogin
		case http.StatusNotFound:
			return "User not found."
		}
	case OpUpdateUserPermissions:
		switch f.Status {
		case http.StatusBadRequest:
			return "Invalid permissions: " + reason(f, "bad request") + "."
		case http.StatusUnauthorized:
			return msgRelogin
		case http.StatusForbidden:
			return reason(f, msgPermissionDenied)
		case http.StatusNotFound:
			return "User not found."
		case http.StatusNotImplemented:
			return msgDatabaseDisabled
		}
	case OpListUsers:
		switch f.Status {
		case http.StatusBadRequest:
			return "Invalid request: " + reason(f, "bad request") + "."
		case http.StatusUnauthorized:
			return msgRelogin
		case http.StatusForbidden:
			return reason(f, msgPermissionDenied)
		}
	}
	panic(&UnexpectedStatusError{Operation: op, Status: f.Status})
}
