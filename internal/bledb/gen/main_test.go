package main

import (
	"bytes"
	"context"
	"go/parser"
	"go/token"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := map[string]string{
		"2A19":                                 "2a19",
		"0x2902":                               "2902",
		"0000180F-0000-1000-8000-00805F9B34FB": "180f",
		"6E400001-B5A3-F393-E0A9-E50E24DCCA9E": "6e400001b5a3f393e0a9e50e24dcca9e",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, normalizeUUID(input), input)
	}
}

func TestConvertEntries(t *testing.T) {
	var warn bytes.Buffer
	result := convertEntries([]rawEntry{
		{UUID: "180F", Name: "Battery Service"},
		{UUID: "1800", Name: "Generic Access"},
		{UUID: "0000180f-0000-1000-8000-00805f9b34fb", Name: "Battery"},
		{UUID: "180A", Name: " "},
		{UUID: "", Name: "Nameless"},
		{UUID: "1800", Name: "Generic Access"},
	}, Service, &warn)

	assert.Equal(t, []tableEntry{
		{UUID: "1800", Name: "Generic Access"},
		{UUID: "180f", Name: "Battery Service"},
	}, result)
	assert.Equal(t, "WARNING: duplicate Service UUID \"180f\" (keeping \"Battery Service\", skipping \"Battery\")\n", warn.String(),
		"identical duplicates are dropped silently")
}

func TestParseEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Battery Service", "identifier": "org.bluetooth.service.battery_service", "uuid": "180F", "source": "gss"}
	]`), 0o600))

	entries, err := parseEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []rawEntry{{UUID: "180F", Name: "Battery Service"}}, entries)

	require.NoError(t, os.WriteFile(path, []byte(`{"uuid": "180F"}`), 0o600))
	_, err = parseEntries(path)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestEnsureCached(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"uuid": "2902", "name": "Client Characteristic Configuration"}]`))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "cache")
	src := source{File: "descriptors.json", URL: srv.URL + "/descriptors.json", Kind: Descriptor}
	var log bytes.Buffer

	path, err := ensureCached(context.Background(), srv.Client(), dir, src, false, &log)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "descriptors.json"), path)
	assert.Equal(t, int32(1), requests.Load())

	_, err = ensureCached(context.Background(), srv.Client(), dir, src, false, &log)
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load(), "second run uses the cache")
	assert.Contains(t, log.String(), "Using cached file")

	_, err = ensureCached(context.Background(), srv.Client(), dir,
		source{File: "missing.json", URL: srv.URL + "/missing.json"}, false, &log)
	assert.ErrorContains(t, err, "status 404")

	_, err = ensureCached(context.Background(), srv.Client(), dir,
		source{File: "characteristics.json", URL: srv.URL + "/characteristics.json"}, true, &log)
	assert.ErrorContains(t, err, "characteristics.json is not cached")
	assert.Equal(t, int32(2), requests.Load(), "offline mode never downloads")
}

func TestRun_FromSeed(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bledb_generated.go")
	var log bytes.Buffer

	err := run(context.Background(), options{cacheDir: "seed", out: out, offline: true}, &log)
	require.NoError(t, err)
	assert.Contains(t, log.String(), "Generated "+out)

	code, err := os.ReadFile(out)
	require.NoError(t, err)

	file, err := parser.ParseFile(token.NewFileSet(), out, code, parser.ParseComments)
	require.NoError(t, err, "generated code parses")
	assert.Equal(t, "bledb", file.Name.Name)

	text := string(code)
	assert.Contains(t, text, "// Code generated by \"go run ./gen\"; DO NOT EDIT.")
	assert.Contains(t, text, "// Built from: seed")
	assert.Contains(t, text, "const DataVersion = ")
	assert.Contains(t, text, `"Battery Service",`)
	assert.Contains(t, text, `"Nordic UART Service",`)
	assert.Contains(t, text, `"Client Characteristic Configuration",`)
	assert.NotContains(t, text, `"180F"`, "keys are normalized")
}
