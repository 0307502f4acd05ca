// Package main regenerates names_gen.go from Nordic Semiconductor's
// bluetooth-numbers-database.
//
// The full database carries thousands of entries; the server only needs
// names for the attributes it annotates, so generation filters the fetched
// data through the allowlists below and fails if an allowlisted ID has
// disappeared upstream.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

const (
	cacheDir = "../../.tmp/bledb-cache"
	outFile  = "../../internal/bledb/names_gen.go"

	serviceURL        = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/service_uuids.json"
	characteristicURL = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/characteristic_uuids.json"
	descriptorURL     = "https://raw.githubusercontent.com/NordicSemiconductor/bluetooth-numbers-database/master/v1/descriptor_uuids.json"
)

// Allowlists are the 16-bit SIG IDs the curated tables carry. Extend these
// and rerun go generate to teach the annotator new names.
var (
	serviceAllowlist = []string{
		"1800", "1801", "180a", "180d", "180f", "1810", "1816", "181a",
	}
	characteristicAllowlist = []string{
		"2a00", "2a01", "2a05", "2a19", "2a29", "2a37", "2a38", "2a39",
	}
	descriptorAllowlist = []string{
		"2900", "2901", "2902", "2903", "2904",
	}
)

// nameOverrides corrects upstream entries that diverge from the SIG
// registry. Nordic names 0x2901 "Characteristic User Descriptor"; the
// assigned-numbers document says "Characteristic User Description".
var nameOverrides = map[string]string{
	"2901": "Characteristic User Description",
}

const codeTemplate = `// Code generated by go run ./gen; DO NOT EDIT.
//
// Curated subset of Nordic Semiconductor's bluetooth-numbers-database:
// https://github.com/NordicSemiconductor/bluetooth-numbers-database

package bledb

var serviceNames = map[string]string{
{{- range .Services}}
	"{{.ID}}": "{{.Name}}",
{{- end}}
}

var characteristicNames = map[string]string{
{{- range .Characteristics}}
	"{{.ID}}": "{{.Name}}",
{{- end}}
}

var descriptorNames = map[string]string{
{{- range .Descriptors}}
	"{{.ID}}": "{{.Name}}",
{{- end}}
}
`

type entry struct {
	ID   string
	Name string
}

type templateData struct {
	Services        []entry
	Characteristics []entry
	Descriptors     []entry
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println("Regenerating curated BLE name tables...")

	services, err := fetchNames("services.json", serviceURL, serviceAllowlist)
	if err != nil {
		return err
	}
	characteristics, err := fetchNames("characteristics.json", characteristicURL, characteristicAllowlist)
	if err != nil {
		return err
	}
	descriptors, err := fetchNames("descriptors.json", descriptorURL, descriptorAllowlist)
	if err != nil {
		return err
	}

	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	tmpl, err := template.New("names").Parse(codeTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	data := templateData{
		Services:        services,
		Characteristics: characteristics,
		Descriptors:     descriptors,
	}
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write generated file: %w", err)
	}
	fmt.Println("Generated", outFile)
	return nil
}

// fetchNames downloads one category file, indexes it by normalized 16-bit
// ID, and resolves every allowlisted ID against it.
func fetchNames(filename, url string, allowlist []string) ([]entry, error) {
	path, err := ensureCached(filename, url)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached file %s: %w", path, err)
	}

	var raw []struct {
		UUID string `json:"uuid"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	// First entry wins on duplicate IDs; conflicting names get a warning.
	byID := make(map[string]string, len(raw))
	for _, r := range raw {
		id := normalizeShortID(r.UUID)
		if id == "" || r.Name == "" {
			continue
		}
		if existing, ok := byID[id]; ok {
			if existing != r.Name {
				fmt.Fprintf(os.Stderr, "WARNING: duplicate ID %q in %s (keeping %q, skipping %q)\n",
					id, filename, existing, r.Name)
			}
			continue
		}
		byID[id] = r.Name
	}

	entries := make([]entry, 0, len(allowlist))
	var missing []string
	for _, id := range allowlist {
		name, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if override, ok := nameOverrides[id]; ok {
			name = override
		}
		entries = append(entries, entry{ID: id, Name: name})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing allowlisted IDs %s", filename, strings.Join(missing, ", "))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// normalizeShortID lowercases an upstream UUID and keeps only 16-bit SIG
// IDs; full 128-bit vendor UUIDs are outside the curated tables.
func normalizeShortID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.ReplaceAll(u, "-", "")
	if len(u) != 4 {
		return ""
	}
	return u
}

// ensureCached downloads url into the cache dir unless already present and
// returns the cached path.
func ensureCached(filename, url string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	path := filepath.Join(cacheDir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("Downloading", filename)
		resp, err := http.Get(url)
		if err != nil {
			return "", fmt.Errorf("failed to download %s: %w", filename, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("failed to download %s: status %d", filename, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read response body for %s: %w", filename, err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write cache file %s: %w", filename, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to check cache file %s: %w", filename, err)
	} else {
		fmt.Println("Using cached file", filename)
	}
	return path, nil
}
