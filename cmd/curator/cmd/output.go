package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/session"
)

// failure turns a non-success outcome into the error the command returns,
// carrying the user-facing message.
func failure(op api.Operation, outcome api.Outcome) error {
	if outcome.Kind() == api.KindCanceled {
		return context.Canceled
	}
	return fmt.Errorf("%s", api.Message(op, outcome))
}

func printUser(w io.Writer, u api.User) {
	fmt.Fprintf(w, "user:        %s (%s)\n", u.Username, u.ID)
	fmt.Fprintf(w, "permissions: %s\n", u.Permissions)
	if !u.Registered.IsZero() {
		fmt.Fprintf(w, "registered:  %s\n", u.Registered.Format(time.RFC3339))
	}
	if !u.LastLogin.IsZero() {
		fmt.Fprintf(w, "last login:  %s\n", u.LastLogin.Format(time.RFC3339))
	}
}

func printSession(w io.Writer, s *session.Session) {
	if s == nil {
		fmt.Fprintln(w, "not logged in")
		return
	}
	printUser(w, s.User)
	fmt.Fprintf(w, "issued:      %s (%s)\n", s.IssuedAt.Format(time.RFC3339), s.OperationType)
	fmt.Fprintf(w, "first login: %s\n", s.FirstIssuedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "expires:     %s\n", s.ExpiresAt().Format(time.RFC3339))
}
