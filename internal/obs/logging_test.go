package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = newLogger(&buf, "json", "nonsense")
	logger.Info().Msg("default level is info")
	require.Contains(t, buf.String(), "default level is info")
}

func TestRequestLoggerLevelFollowsStatus(t *testing.T) {
	for status, level := range map[int]string{
		http.StatusOK:                 "info",
		http.StatusConflict:           "warn",
		http.StatusServiceUnavailable: "error",
	} {
		var buf bytes.Buffer
		h := RequestLogger{Logger: newLogger(&buf, "json", "debug")}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, level, line["level"])
		require.EqualValues(t, status, line["status"])
	}
}
