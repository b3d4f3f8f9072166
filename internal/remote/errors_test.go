package remote

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusPreconditionFailed, ErrConflict},
		{http.StatusTooManyRequests, ErrTransient},
		{http.StatusInternalServerError, ErrTransient},
		{http.StatusBadGateway, ErrTransient},
	}

	for _, tt := range tests {
		err := ClassifyStatus(tt.status, []byte("detail"))
		if !errors.Is(err, tt.want) {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.status, err, tt.want)
		}
	}

	err := ClassifyStatus(http.StatusTeapot, []byte("odd"))
	for _, sentinel := range []error{ErrUnauthorized, ErrNotFound, ErrConflict, ErrTransient} {
		if errors.Is(err, sentinel) {
			t.Errorf("status 418 must not classify as %v", sentinel)
		}
	}
}

func TestClassifyStatusTruncatesBody(t *testing.T) {
	err := ClassifyStatus(http.StatusInternalServerError, []byte(strings.Repeat("x", 2000)))
	if len(err.Error()) > 600 {
		t.Errorf("error message too long: %d bytes", len(err.Error()))
	}
}

func TestWrapTransport(t *testing.T) {
	if WrapTransport(nil) != nil {
		t.Error("nil stays nil")
	}
	err := WrapTransport(errors.New("dial tcp: connection refused"))
	if !errors.Is(err, ErrTransient) {
		t.Errorf("transport errors are transient, got %v", err)
	}
}
