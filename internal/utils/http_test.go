package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type echoResponse struct {
	Value int `json:"value"`
}

func TestDoPostSync_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"value":42}`)
	}))
	defer server.Close()

	_, result, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", map[string]string{"q": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result == nil || result.Value != 42 {
		t.Fatalf("expected Value=42, got %+v", result)
	}
}

// TestDoPostSync_StatusError verifies that a non-2xx answer is reported as a
// *StatusError carrying the status code, so callers can classify it.
func TestDoPostSync_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "slow down")
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", map[string]string{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", statusErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Errorf("expected body in error, got %q", err.Error())
	}
}

func TestDoPostSync_UnmarshalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"not an object"`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", map[string]string{})
	if err == nil || !strings.Contains(err.Error(), "unmarshal") {
		t.Fatalf("expected unmarshal error, got %v", err)
	}
}

func TestDoPostSync_Headers(t *testing.T) {
	var gotAuth, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("x-goog-api-key")
		fmt.Fprint(w, `{"value":1}`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), nil, server.URL, "bearer-key", map[string]string{},
		HeaderOption{Key: "x-goog-api-key", Value: "goog-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer bearer-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotKey != "goog-key" {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
}

func TestDoPostSync_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := DoPostSync[echoResponse](ctx, server.Client(), server.URL, "", map[string]string{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type errCloser struct{}

func (errCloser) Close() error { return errors.New("close error") }

func TestCloseWithLog_DoesNotPanic(t *testing.T) {
	CloseWithLog(errCloser{})
}
