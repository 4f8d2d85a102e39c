package domain

import (
	"context"
	"encoding/json"
	"time"
)

// RawRequest represents an unprocessed message from the source topic.
type RawRequest struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// AssessmentRequest is the decoded JSON body of a source message: one
// observing site and night to assess. Seen stays raw because clients send it
// as a string, an array, or a number; CoerceSeen sorts that out later.
type AssessmentRequest struct {
	RequestID   string          `json:"request_id,omitempty"`
	Lat         float64         `json:"lat"`
	Lon         float64         `json:"lon"`
	BortleClass int             `json:"bortle_class,omitempty"`
	Seen        json.RawMessage `json:"seen,omitempty"`
	TopN        int             `json:"top_n,omitempty"`
	MinAltDeg   float64         `json:"min_alt_deg,omitempty"`
	ObsDate     string          `json:"obs_date,omitempty"` // YYYY-MM-DD, local to the site
	CloudPct    *float64        `json:"cloud_pct,omitempty"`
	SkipWeather bool            `json:"skip_weather,omitempty"`

	// DisableWeatherHardStop ranks targets even in hard-stop weather,
	// for planning ahead of a clearing forecast.
	DisableWeatherHardStop bool `json:"disable_weather_hard_stop,omitempty"`
}

// AssessmentEnvelope is the published value on the sink topic.
type AssessmentEnvelope struct {
	RequestID   string           `json:"request_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Assessment  AssessmentResult `json:"assessment"`
}

// ResultMessage is the serialized form destined for the sink topic.
type ResultMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
