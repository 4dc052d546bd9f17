package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	tests := []struct {
		name                   string
		version, commit, built string
		want                   versionResponse
	}{
		{
			name:    "ldflags set",
			version: "0.3.0", commit: "9f2c1ab", built: "2026-09-30T08:15:00Z",
			want: versionResponse{Version: "0.3.0", GitCommit: "9f2c1ab", BuildDate: "2026-09-30T08:15:00Z"},
		},
		{
			name: "local build",
			want: versionResponse{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
		{
			name:    "commit missing",
			version: "0.3.0", built: "2026-09-30T08:15:00Z",
			want: versionResponse{Version: "0.3.0", GitCommit: "unknown", BuildDate: "2026-09-30T08:15:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			VersionHandler(tt.version, tt.commit, tt.built).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var got versionResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

			tt.want.Service = "social-events"
			tt.want.GoVersion = runtime.Version()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionHandlerRejectsWrites(t *testing.T) {
	handler := VersionHandler("0.3.0", "9f2c1ab", "")

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/version", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
}
