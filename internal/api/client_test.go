package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/corax/nail/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000/", "secret123")

	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret123", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/healthcheck", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "").Healthcheck()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, "").Healthcheck())
}

func TestUpload(t *testing.T) {
	received := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, key := range []string{"secret", "filename", "flightId", "programName", "flightDuration", "finalPhase", "ticks", "targetLocks"} {
			received[key] = r.FormValue(key)
		}

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "missile_3_20260301_120000.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("flight data"), 0644))

	summary := core.FlightSummary{
		FlightID:    3,
		ProgramName: "missile",
		Duration:    92.25,
		FinalPhase:  core.PhaseGuiding,
		Ticks:       1480,
		TargetLocks: 2,
	}
	require.NoError(t, New(server.URL, "mysecret").Upload(path, summary))

	assert.Equal(t, map[string]string{
		"secret":         "mysecret",
		"filename":       "missile_3_20260301_120000.json.gz",
		"flightId":       "3",
		"programName":    "missile",
		"flightDuration": "92.250",
		"finalPhase":     "guiding",
		"ticks":          "1480",
		"targetLocks":    "2",
	}, received)
	assert.Equal(t, "flight data", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload("/nonexistent/file.json.gz", core.FlightSummary{})
	assert.ErrorContains(t, err, "failed to open file")
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "flight.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	err := New(server.URL, "wrong-secret").Upload(path, core.FlightSummary{})
	assert.ErrorContains(t, err, "upload returned status 403")
}
