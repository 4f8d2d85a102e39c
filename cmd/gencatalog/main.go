// Command gencatalog fetches a public Messier dataset and converts it to the
// catalog schema consumed by the assessment engine: one JSON array sorted by
// Messier number, with coordinates in degrees and sizes in arcminutes.
//
// Usage:
//
//	go run ./cmd/gencatalog -out data/catalog/messier.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
)

const defaultSourceURL = "https://osricdienda.com/messier-api/messier.json"

var (
	hmsRe     = regexp.MustCompile(`^\s*(\d+):(\d+):(\d+(?:\.\d+)?)\s*$`)
	hmRe      = regexp.MustCompile(`^\s*(\d+):(\d+(?:\.\d+)?)\s*$`)
	dmsRe     = regexp.MustCompile(`^\s*([+-]?)(\d+):(\d+):(\d+(?:\.\d+)?)\s*$`)
	dmRe      = regexp.MustCompile(`^\s*([+-]?)(\d+):(\d+(?:\.\d+)?)\s*$`)
	nonDigits = regexp.MustCompile(`[^0-9]`)
)

// sourceRecord is one entry of the upstream dataset. Magnitude and Size stay
// untyped because the API mixes numbers and strings.
type sourceRecord struct {
	Name           string `json:"name"`
	NGC            string `json:"NGC"`
	Type           string `json:"type"`
	Constellation  string `json:"constellation"`
	RightAscension string `json:"rightAscension"`
	Declination    string `json:"declination"`
	Magnitude      any    `json:"magnitude"`
	Size           any    `json:"size"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	url := flag.String("url", defaultSourceURL, "Messier dataset URL")
	out := flag.String("out", "data/catalog/messier.json", "output path for catalog JSON")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP fetch timeout")
	flag.Parse()

	log.Printf("fetching %s", *url)
	records, err := fetchCatalog(*url, *timeout)
	if err != nil {
		return fmt.Errorf("fetching dataset: %w", err)
	}
	log.Printf("fetched %d records", len(records))

	objects := transform(records)
	if len(objects) == 0 {
		return fmt.Errorf("dataset produced no catalog objects")
	}

	if err := writeJSON(*out, objects); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	log.Printf("wrote %d objects to %s", len(objects), *out)
	return nil
}

// fetchCatalog downloads the dataset and unwraps an optional top-level "data"
// envelope, returning the record map keyed by designation ("M31").
func fetchCatalog(url string, timeout time.Duration) (map[string]json.RawMessage, error) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	if inner, ok := top["data"]; ok {
		var records map[string]json.RawMessage
		if err := json.Unmarshal(inner, &records); err == nil {
			return records, nil
		}
	}
	return top, nil
}

// transform converts the record map to catalog objects sorted by Messier
// number. Keys without a parseable number are skipped; bad field types leave
// zero values rather than dropping the record.
func transform(records map[string]json.RawMessage) []domain.CatalogObject {
	out := make([]domain.CatalogObject, 0, len(records))
	for key, raw := range records {
		num, err := strconv.Atoi(nonDigits.ReplaceAllString(key, ""))
		if err != nil {
			continue
		}

		var rec sourceRecord
		_ = json.Unmarshal(raw, &rec)

		name := rec.Name
		if name == "" {
			name = fmt.Sprintf("Messier %d", num)
		}

		obj := domain.CatalogObject{
			Catalog:       "M",
			Number:        num,
			NGC:           rec.NGC,
			Name:          name,
			Type:          rec.Type,
			Constellation: rec.Constellation,
			Magnitude:     magnitudeOf(rec.Magnitude),
			SizeArcmin:    sizeArcmin(rec.Size),
		}
		if deg, ok := hmsToDeg(rec.RightAscension); ok {
			obj.RADeg = deg
		}
		if deg, ok := dmsToDeg(rec.Declination); ok {
			obj.DecDeg = deg
		}
		out = append(out, obj)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// hmsToDeg converts "hh:mm:ss.ss" (or "hh:mm") right ascension to degrees.
func hmsToDeg(s string) (float64, bool) {
	if m := hmsRe.FindStringSubmatch(s); m != nil {
		h := parseFloat(m[1])
		min := parseFloat(m[2])
		sec := parseFloat(m[3])
		return (h + min/60.0 + sec/3600.0) * 15.0, true
	}
	if m := hmRe.FindStringSubmatch(s); m != nil {
		h := parseFloat(m[1])
		min := parseFloat(m[2])
		return (h + min/60.0) * 15.0, true
	}
	return 0, false
}

// dmsToDeg converts "±dd:mm:ss.s" (or "±dd:mm") declination to degrees.
func dmsToDeg(s string) (float64, bool) {
	if m := dmsRe.FindStringSubmatch(s); m != nil {
		deg := parseFloat(m[2]) + parseFloat(m[3])/60.0 + parseFloat(m[4])/3600.0
		if m[1] == "-" {
			deg = -deg
		}
		return deg, true
	}
	if m := dmRe.FindStringSubmatch(s); m != nil {
		deg := parseFloat(m[2]) + parseFloat(m[3])/60.0
		if m[1] == "-" {
			deg = -deg
		}
		return deg, true
	}
	return 0, false
}

// sizeArcmin extracts the major axis in arcminutes from size values like
// "178x63", "178 × 63", "90 arcmin", or a bare number. Unparseable → nil.
func sizeArcmin(v any) *float64 {
	if v == nil {
		return nil
	}
	s := strings.ToLower(fmt.Sprintf("%v", v))
	s = strings.NewReplacer(
		"×", "x",
		"arcminutes", "",
		"arcminute", "",
		"arcmin", "",
		"’", "",
		"′", "",
		"'", "",
		"″", "",
		`"`, "",
		" ", "",
	).Replace(s)
	if s == "" {
		return nil
	}
	if i := strings.IndexByte(s, 'x'); i >= 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// magnitudeOf coerces a magnitude that may arrive as a number or a string.
func magnitudeOf(v any) *float64 {
	switch m := v.(type) {
	case float64:
		return &m
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
