package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trackbot/backend/internal/models"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostTiming(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/timing", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"entries":3,"errors":1}`))
	}))
	defer srv.Close()

	res, err := postTiming(context.Background(), srv.Client(), srv.URL+"/", "secret", -100, models.Coordinates{Latitude: 19.43, Longitude: -99.15})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, "19.43,-99.15", got["coordinates"])
	assert.Equal(t, float64(-100), got["chatId"])
}

func TestPostTiming_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Token de API inválido"}`))
	}))
	defer srv.Close()

	_, err := postTiming(context.Background(), srv.Client(), srv.URL, "bad", -100, models.Coordinates{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Token de API inválido")
}

func TestPrinters(t *testing.T) {
	color.NoColor = true

	var b bytes.Buffer
	printTimingResult(&b, timingResult{Success: true, Entries: 2, Errors: 1})
	assert.Equal(t, "Report sent: 2 units, 1 failed\n", b.String())

	b.Reset()
	printTimingResult(&b, timingResult{Message: "No hay datos de ubicación disponibles"})
	assert.Equal(t, "Report not sent: No hay datos de ubicación disponibles\n", b.String())

	b.Reset()
	printReportLog(&b, models.ReportLog{
		Kind:         models.ReportKindTiming,
		TargetChatID: -100,
		EntryCount:   4,
		Destination:  "19.43,-99.15",
		CreatedAt:    time.Now(),
	})
	assert.Contains(t, b.String(), "timing")
	assert.Contains(t, b.String(), "chat -100  entries 4  dest 19.43,-99.15")
	assert.NotContains(t, b.String(), "errors")
}
