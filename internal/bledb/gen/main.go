// Package main generates the bledb lookup tables from Nordic Semiconductor's
// bluetooth-numbers-database.
//
// The service, characteristic and descriptor JSON files are downloaded into a
// cache directory on first use and reused on later runs. Running with
// --cache-dir gen/seed --offline rebuilds the tables from the checked-in seed
// without network access.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"go/format"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/pflag"
)

const (
	serviceURL        = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/service_uuids.json"
	characteristicURL = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/characteristic_uuids.json"
	descriptorURL     = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/descriptor_uuids.json"

	sigBaseSuffix   = "00001000800000805f9b34fb"
	downloadTimeout = 30 * time.Second
)

//go:embed bledb.go.tmpl
var codeTemplate string

// Kind is the attribute category a JSON file describes.
type Kind string

const (
	Service        Kind = "Service"
	Characteristic Kind = "Characteristic"
	Descriptor     Kind = "Descriptor"
)

// source is one file of the database.
type source struct {
	File string
	URL  string
	Kind Kind
}

var sources = []source{
	{File: "services.json", URL: serviceURL, Kind: Service},
	{File: "characteristics.json", URL: characteristicURL, Kind: Characteristic},
	{File: "descriptors.json", URL: descriptorURL, Kind: Descriptor},
}

// rawEntry is a database record as published. Only uuid and name are used.
type rawEntry struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type tableEntry struct {
	UUID string
	Name string
}

type templateData struct {
	Timestamp             string
	Origin                string
	ServiceURL            string
	CharacteristicURL     string
	DescriptorURL         string
	ServiceEntries        []tableEntry
	CharacteristicEntries []tableEntry
	DescriptorEntries     []tableEntry
}

type options struct {
	cacheDir string
	out      string
	offline  bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("gen", pflag.ExitOnError)
	flags.StringVar(&opts.cacheDir, "cache-dir", "../../.tmp/bledb-cache", "Directory holding the downloaded JSON files")
	flags.StringVar(&opts.out, "out", "bledb_generated.go", "Generated Go file")
	flags.BoolVar(&opts.offline, "offline", false, "Fail instead of downloading files missing from the cache")
	_ = flags.Parse(os.Args[1:])

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, log io.Writer) error {
	fmt.Fprintln(log, "Generating BLE database...")

	client := &http.Client{Timeout: downloadTimeout}
	tables := make(map[Kind][]tableEntry, len(sources))
	for _, src := range sources {
		path, err := ensureCached(ctx, client, opts.cacheDir, src, opts.offline, log)
		if err != nil {
			return err
		}
		entries, err := parseEntries(path)
		if err != nil {
			return err
		}
		tables[src.Kind] = convertEntries(entries, src.Kind, log)
	}

	code, err := render(templateData{
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
		Origin:                filepath.ToSlash(opts.cacheDir),
		ServiceURL:            serviceURL,
		CharacteristicURL:     characteristicURL,
		DescriptorURL:         descriptorURL,
		ServiceEntries:        tables[Service],
		CharacteristicEntries: tables[Characteristic],
		DescriptorEntries:     tables[Descriptor],
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.out, code, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}
	fmt.Fprintln(log, "Generated", opts.out)
	return nil
}

// ensureCached returns the path of src inside dir, downloading it first when
// it is missing and offline is false.
func ensureCached(ctx context.Context, client *http.Client, dir string, src source, offline bool, log io.Writer) (string, error) {
	path := filepath.Join(dir, src.File)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(log, "Using cached file", path)
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to check cache file %s: %w", path, err)
	}

	if offline {
		return "", fmt.Errorf("%s is not cached in %s", src.File, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	fmt.Fprintln(log, "Downloading", src.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", src.File, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %d", src.File, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", src.File, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write cache file %s: %w", path, err)
	}
	return path, nil
}

func parseEntries(path string) ([]rawEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}

// normalizeUUID mirrors bledb.NormalizeUUID. The generator cannot import
// bledb because it has to build while the generated file is being replaced.
func normalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "0x")
	u = strings.NewReplacer("-", "", "{", "", "}", "").Replace(u)

	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, sigBaseSuffix) {
		return u[4:8]
	}
	return u
}

// convertEntries normalizes and sorts entries. When a UUID appears twice the
// first record in file order wins; conflicting names are reported to warn.
func convertEntries(entries []rawEntry, kind Kind, warn io.Writer) []tableEntry {
	normalized := make([]tableEntry, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if e.UUID == "" || name == "" {
			continue
		}
		normalized = append(normalized, tableEntry{UUID: normalizeUUID(e.UUID), Name: name})
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].UUID < normalized[j].UUID
	})

	result := make([]tableEntry, 0, len(normalized))
	seen := make(map[string]string, len(normalized))
	for _, e := range normalized {
		if existing, ok := seen[e.UUID]; ok {
			if existing != e.Name {
				fmt.Fprintf(warn, "WARNING: duplicate %s UUID %q (keeping %q, skipping %q)\n", kind, e.UUID, existing, e.Name)
			}
			continue
		}
		seen[e.UUID] = e.Name
		result = append(result, e)
	}
	return result
}

func render(data templateData) ([]byte, error) {
	tmpl, err := template.New("bledb").Parse(codeTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	code, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code: %w", err)
	}
	return code, nil
}
