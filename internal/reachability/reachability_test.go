package reachability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReachable_OKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	assert.True(t, p.Reachable(context.Background(), srv.URL))
}

func TestReachable_404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	assert.False(t, p.Reachable(context.Background(), srv.URL))
}

func TestReachable_EmptyURL(t *testing.T) {
	p := New(time.Second)
	assert.False(t, p.Reachable(context.Background(), ""))
}

func TestReachable_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(5 * time.Millisecond)
	assert.False(t, p.Reachable(context.Background(), srv.URL))
}

func TestNew_DefaultsWhenNonPositive(t *testing.T) {
	p := New(0)
	assert.Equal(t, DefaultTimeout, p.client.Timeout)
}
