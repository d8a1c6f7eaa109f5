package httpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(time.Second, &BasicAuth{Username: "alice", Password: "secret"})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHeaderAuthDoesNotMutateRequest(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Ocp-Apim-Subscription-Key")
	}))
	defer srv.Close()

	client := NewClient(time.Second, &HeaderAuth{Header: "Ocp-Apim-Subscription-Key", Value: "k1"})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got != "k1" {
		t.Errorf("server saw key %q, want k1", got)
	}
	if req.Header.Get("Ocp-Apim-Subscription-Key") != "" {
		t.Error("original request was mutated")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(0, nil)
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Errorf("Transport = %T, want *http.Transport", c.Transport)
	}
}
