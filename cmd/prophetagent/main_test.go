package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewManifoldClient_UsesConfiguredKey(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MANIFOLD_API_KEY=stale-dotenv-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("MANIFOLD_API_KEY", "stale-env-key")

	var mu sync.Mutex
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"user-1","username":"agent"}`))
	}))
	defer srv.Close()

	base := srv.URL + "/"
	mc := newManifoldClient(&base, "configured-key")
	if _, err := mc.GetAuthenticatedUser(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(auth) == 0 {
		t.Fatal("expected a request to the manifold api")
	}
	for _, got := range auth {
		if got != "Key configured-key" {
			t.Errorf("expected configured key to be sent, got %q", got)
		}
	}
}
