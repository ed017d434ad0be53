package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindAndStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   string
		status int
	}{
		{"validation", Invalid("title", "cannot be empty"), CodeValidation, http.StatusBadRequest},
		{"too large", fmt.Errorf("upload: %w", ErrTooLarge), CodeValidation, http.StatusBadRequest},
		{"not found", NotFound("gig", "g1"), CodeNotFound, http.StatusNotFound},
		{"conflict", &ConflictError{Resource: "proposal", ID: "p1", Expected: "Pending", Actual: "Accepted"}, CodeConflict, http.StatusConflict},
		{"wrapped conflict", fmt.Errorf("accept: %w", &ConflictError{Resource: "proposal", ID: "p1"}), CodeConflict, http.StatusConflict},
		{"unavailable", Unavailable("store get", errors.New("dial tcp")), CodeUnavailable, http.StatusServiceUnavailable},
		{"forbidden", ErrForbidden, CodeForbidden, http.StatusForbidden},
		{"unauthorized", ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
		{"rate limited", ErrRateLimited, CodeRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.kind {
				t.Errorf("Kind = %s, want %s", got, tc.kind)
			}
			if got := HTTPStatus(tc.err); got != tc.status {
				t.Errorf("HTTPStatus = %d, want %d", got, tc.status)
			}
		})
	}
	if Kind(nil) != "" {
		t.Error("nil error should have no kind")
	}
}

func TestMessageHidesInternals(t *testing.T) {
	if got := Message(errors.New("pq: password authentication failed")); got != "an unknown error occurred" {
		t.Errorf("internal error leaked: %q", got)
	}
	if got := Message(Unavailable("store", errors.New("i/o timeout"))); got != "service temporarily unavailable, please try again" {
		t.Errorf("unexpected unavailable message %q", got)
	}
	ce := &ConflictError{Resource: "proposal", ID: "p1", Expected: "Pending", Actual: "Declined"}
	if got := Message(ce); got != ce.Error() {
		t.Errorf("conflict message = %q", got)
	}
	closed := &ConflictError{Resource: "gig", ID: "g1", Expected: "Pending Update", Actual: "Cancelled", Reason: "was cancelled before the update applied"}
	if got := Message(closed); got != "gig g1 was cancelled before the update applied" {
		t.Errorf("conflict with reason = %q", got)
	}
	if Kind(closed) != CodeConflict {
		t.Errorf("conflict with reason should keep the conflict kind")
	}
}

func TestValidationErrorCollectsFields(t *testing.T) {
	verr := &ValidationError{}
	if verr.OrNil() != nil {
		t.Fatal("empty validation error should be nil")
	}
	err := verr.Add("price", "must be greater than zero").Add("title", "cannot be empty").OrNil()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("validation error should match ErrInvalidInput")
	}
	if err.Error() != "validation failed: price: must be greater than zero; title: cannot be empty" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestUnavailableUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("store get", cause)
	if !errors.Is(err, cause) || !errors.Is(err, ErrServiceUnavailable) {
		t.Fatal("unavailable should match both its cause and the sentinel")
	}
	if Unavailable("noop", nil) != nil {
		t.Fatal("nil cause should stay nil")
	}
}
