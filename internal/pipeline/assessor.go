package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
	"github.com/couchcryptid/night-sky-guidance-service/internal/observability"
)

// ErrInvalidRequest marks a request that can never succeed: malformed JSON,
// impossible coordinates, an unparseable date. These are counted separately
// from internal failures.
var ErrInvalidRequest = errors.New("invalid request")

// TargetAssessor implements Assessor: it decodes a raw request, attaches
// tonight's weather for the site, runs the assessment engine over the
// Messier catalog, and assembles the publishable result.
type TargetAssessor struct {
	engine  *domain.Engine
	catalog []domain.CatalogObject
	weather domain.WeatherProvider
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAssessor creates a TargetAssessor. Pass a nil weather provider to assess
// without live conditions; requests then rely on their cloud_pct override.
func NewAssessor(engine *domain.Engine, catalog []domain.CatalogObject, weather domain.WeatherProvider, logger *slog.Logger, metrics *observability.Metrics) *TargetAssessor {
	return &TargetAssessor{
		engine:  engine,
		catalog: catalog,
		weather: weather,
		logger:  logger,
		metrics: metrics,
	}
}

func (a *TargetAssessor) Assess(ctx context.Context, raw domain.RawRequest) (domain.ResultMessage, error) {
	start := time.Now()
	msg, err := a.assess(ctx, raw)
	a.metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := "error"
		if errors.Is(err, ErrInvalidRequest) {
			status = "invalid"
		}
		a.metrics.Assessments.WithLabelValues(status).Inc()
		return domain.ResultMessage{}, err
	}
	a.metrics.Assessments.WithLabelValues("ok").Inc()
	return msg, nil
}

func (a *TargetAssessor) assess(ctx context.Context, raw domain.RawRequest) (domain.ResultMessage, error) {
	var req domain.AssessmentRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.ResultMessage{}, fmt.Errorf("%w: decode assessment request: %v", ErrInvalidRequest, err)
	}

	if err := domain.ValidateCoordinates(req.Lat, req.Lon); err != nil {
		return domain.ResultMessage{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = raw.Headers["request_id"]
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var obsDate time.Time
	if req.ObsDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ObsDate)
		if err != nil {
			return domain.ResultMessage{}, fmt.Errorf("%w: obs_date %q is not YYYY-MM-DD", ErrInvalidRequest, req.ObsDate)
		}
		obsDate = parsed
	}

	var seen any
	if len(req.Seen) > 0 {
		if err := json.Unmarshal(req.Seen, &seen); err != nil {
			return domain.ResultMessage{}, fmt.Errorf("%w: decode seen list: %v", ErrInvalidRequest, err)
		}
	}

	weather, cloudPct := a.nightConditions(ctx, &req, requestID, obsDate)

	result, err := a.engine.Assess(domain.AssessParams{
		Catalog:                a.catalog,
		Lat:                    req.Lat,
		Lon:                    req.Lon,
		CloudPct:               cloudPct,
		BortleClass:            req.BortleClass,
		Seen:                   seen,
		TopN:                   req.TopN,
		MinAlt:                 req.MinAltDeg,
		Weather:                weather,
		ObsDate:                obsDate,
		DisableWeatherHardStop: req.DisableWeatherHardStop,
	})
	if err != nil {
		return domain.ResultMessage{}, err
	}

	a.metrics.TargetsRanked.Observe(float64(len(result.RankedTargets)))
	for _, o := range result.Outcomes {
		a.metrics.Dispositions.WithLabelValues(string(o.Disposition)).Inc()
	}

	now := domain.Now().UTC()
	envelope, err := json.Marshal(domain.AssessmentEnvelope{
		RequestID:   requestID,
		GeneratedAt: now,
		Assessment:  result,
	})
	if err != nil {
		return domain.ResultMessage{}, fmt.Errorf("serialize assessment: %w", err)
	}

	return domain.ResultMessage{
		Key:   []byte(requestID),
		Value: envelope,
		Headers: map[string]string{
			"request_id":     requestID,
			"processed_at":   now.Format(time.RFC3339),
			"targets":        strconv.Itoa(len(result.RankedTargets)),
			"weather_unsafe": strconv.FormatBool(result.WeatherUnsafe),
		},
	}, nil
}

// nightConditions resolves the weather snapshot and cloud cover for a
// request. A fetch failure degrades to an assessment without live weather
// rather than failing the request; an explicit cloud_pct keeps overriding
// the gate either way.
func (a *TargetAssessor) nightConditions(ctx context.Context, req *domain.AssessmentRequest, requestID string, obsDate time.Time) (*domain.WeatherSnapshot, float64) {
	var snap *domain.WeatherSnapshot

	if !req.SkipWeather && a.weather != nil {
		when := a.engine.ReferenceEvening(req.Lat, req.Lon, obsDate)
		fetched, err := a.weather.NightWeather(ctx, req.Lat, req.Lon, when)
		if err != nil {
			a.logger.Warn("weather lookup failed, assessing without conditions",
				"error", err,
				"request_id", requestID,
			)
		} else {
			snap = &fetched
		}
	}

	switch {
	case req.CloudPct != nil:
		return snap, *req.CloudPct
	case snap != nil:
		return snap, snap.CloudPct
	default:
		return nil, 0
	}
}
