// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/valleymod/valleymod/pkg/manifest"
)

func TestQuery_RequestShape(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v3.0/mods" {
			t.Errorf("path = %s, want /v3.0/mods", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "valleymod/test" {
			t.Errorf("User-Agent = %q", ua)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithUserAgent("valleymod/test"), WithGOOS("windows"))
	_, err := client.Query(context.Background(), []Identity{
		{ID: "Pathoschild.ContentPatcher", InstalledVersion: "1.0.0", UpdateKeys: []string{"Nexus:1915"}},
		{ID: "Other.Mod"},
	}, "1.5.6.1", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if got["apiVersion"] != "3.0" {
		t.Errorf("apiVersion = %v", got["apiVersion"])
	}
	if got["gameVersion"] != "1.5.6" {
		t.Errorf("gameVersion = %v, want 1.5.6", got["gameVersion"])
	}
	if got["platform"] != "Windows" {
		t.Errorf("platform = %v, want Windows", got["platform"])
	}
	if got["includeExtendedMetadata"] != true {
		t.Errorf("includeExtendedMetadata = %v", got["includeExtendedMetadata"])
	}
	mods, ok := got["mods"].([]any)
	if !ok || len(mods) != 2 {
		t.Fatalf("mods = %v", got["mods"])
	}
	first := mods[0].(map[string]any)
	if first["id"] != "Pathoschild.ContentPatcher" || first["installedVersion"] != "1.0.0" {
		t.Errorf("first identity = %v", first)
	}
	second := mods[1].(map[string]any)
	if _, present := second["installedVersion"]; present {
		t.Errorf("empty installedVersion should be omitted: %v", second)
	}
}

func TestQuery_OmitsExtendedFlagWhenFalse(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithGOOS("darwin"))
	if _, err := client.Query(context.Background(), []Identity{{ID: "A"}}, "1.6", false); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if _, present := got["includeExtendedMetadata"]; present {
		t.Error("includeExtendedMetadata should be omitted when false")
	}
	if got["platform"] != "Mac" {
		t.Errorf("platform = %v, want Mac", got["platform"])
	}
}

func TestQuery_EmptyBatchMakesNoRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	results, err := client.Query(context.Background(), nil, "1.5.6", true)
	if err != nil || results != nil {
		t.Errorf("Query(nil) = %v, %v; want nil, nil", results, err)
	}
	if calls.Load() != 0 {
		t.Errorf("empty batch made %d requests", calls.Load())
	}
}

func TestQuery_MissingGameVersionFailsClosed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Query(context.Background(), []Identity{{ID: "A"}}, "", true)
	if !errors.Is(err, ErrGameVersionUnavailable) {
		t.Errorf("error = %v, want ErrGameVersionUnavailable", err)
	}
	if calls.Load() != 0 {
		t.Error("no request should be sent without a game version")
	}
}

func TestQuery_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			status:  http.StatusBadGateway,
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `{"not":"an array"`) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL))
			results, err := client.Query(context.Background(), []Identity{{ID: "A"}}, "1.5.6", true)
			if results != nil {
				t.Errorf("results = %v, want nil", results)
			}
			if !errors.Is(err, ErrServiceUnavailable) {
				t.Fatalf("error = %v, want ErrServiceUnavailable", err)
			}
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("error should be *ServiceError, got %T", err)
			}
			if svcErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", svcErr.StatusCode, tt.status)
			}
		})
	}
}

func TestQuery_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(WithBaseURL(url))
	_, err := client.Query(context.Background(), []Identity{{ID: "A"}}, "1.5.6", true)
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("error = %v, want ErrServiceUnavailable", err)
	}
}

func TestQuery_LimiterRespectsContext(t *testing.T) {
	t.Parallel()

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow() // drain the only token

	client := NewClient(WithBaseURL("http://127.0.0.1:1"), WithLimiter(limiter))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Query(ctx, []Identity{{ID: "A"}}, "1.5.6", false)
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("error = %v, want ErrServiceUnavailable", err)
	}
}

func TestFindResult_CaseInsensitive(t *testing.T) {
	t.Parallel()

	results := []Result{{ID: "second.mod"}, {ID: "First.Mod", Errors: []string{"x"}}}
	r, ok := FindResult(results, "FIRST.MOD")
	if !ok || len(r.Errors) != 1 {
		t.Errorf("FindResult = %+v, %v", r, ok)
	}
	if _, ok := FindResult(results, "third"); ok {
		t.Error("FindResult should not match unknown ids")
	}
}

func TestTruncateGameVersion(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"1.5.6.1":      "1.5.6",
		"1.5.6":        "1.5.6",
		"1.6":          "1.6.0",
		"1.6.0-beta.1": "1.6.0",
		" 1.5.4 ":      "1.5.4",
		"":             "",
		"unknown":      "",
	}
	for in, want := range tests {
		if got := TruncateGameVersion(in); got != want {
			t.Errorf("TruncateGameVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetadata_DownloadURL(t *testing.T) {
	t.Parallel()

	var nilMeta *Metadata
	if nilMeta.DownloadURL() != "" {
		t.Error("nil metadata should have no download URL")
	}

	m := &Metadata{Optional: &Release{URL: "https://example/opt"}, CustomURL: "https://example/custom"}
	if got := m.DownloadURL(); got != "https://example/opt" {
		t.Errorf("DownloadURL = %q", got)
	}
	m.Main = &Release{URL: "https://example/main"}
	if got := m.DownloadURL(); got != "https://example/main" {
		t.Errorf("DownloadURL = %q", got)
	}
	if got := (&Metadata{CustomURL: "https://example/custom"}).DownloadURL(); got != "https://example/custom" {
		t.Errorf("DownloadURL = %q", got)
	}
}

func TestCheckUpdates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id":"a.mod","suggestedUpdate":{"version":"2.0.0","url":"https://example/a"},"errors":[]},
			{"id":"B.Mod","errors":["no update keys"]}
		]`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	updates := client.CheckUpdates(context.Background(), []manifest.Manifest{
		{UniqueID: "A.Mod", Name: "A", Version: "1.0.0"},
		{UniqueID: "B.Mod", Version: "1.0.0"},
		{Name: "no id"},
	}, "1.5.6")

	if len(updates) != 1 {
		t.Fatalf("updates = %+v, want one", updates)
	}
	if updates[0].UniqueID != "A.Mod" || updates[0].Suggested.Version != "2.0.0" {
		t.Errorf("update = %+v", updates[0])
	}
}

func TestCheckUpdates_FailureIsEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	updates := client.CheckUpdates(context.Background(), []manifest.Manifest{{UniqueID: "A"}}, "1.5.6")
	if updates != nil {
		t.Errorf("updates = %+v, want nil on failure", updates)
	}
}
