package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"nasi-kandar-bot/apperr"
	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/metrics"

	"github.com/shopspring/decimal"
)

const (
	defaultGeocoderBaseURL       = "https://nominatim.openstreetmap.org"
	defaultGeocoderTimeout       = 8 * time.Second
	geocoderBodyReadLimit  int64 = 1024
	minAddressChars              = 5
)

var (
	errUserAgentRequired = errors.New("geocoder user agent is required")

	// ErrImplausibleAddress rejects text that cannot be an address before any lookup.
	ErrImplausibleAddress = apperr.New(apperr.CodeValidation, "address text is too short or has no letters")

	qualifierPattern = regexp.MustCompile(`(?i)\b(?:unit|block|blk|level|lvl|lot|suite|ste|no|floor)\b\.?\s*[#:]?\s*(?:[a-z]?\d[\w-]*|[a-z]\b)?`)
	punctPattern     = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// TextMatch is the outcome of resolving a typed address.
type TextMatch struct {
	Found         bool
	CanonicalName string
	Lat           float64
	Lon           float64
}

// CoordinateMatch is the outcome of resolving a shared GPS location.
type CoordinateMatch struct {
	CanonicalName       string
	DistanceKm          float64
	Fee                 decimal.Decimal
	WithinServiceRadius bool
}

// GeocodingClient resolves addresses against a Nominatim-compatible service.
type GeocodingClient struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	countryCode string
	countryName string
	timeout     time.Duration
	restaurant  Restaurant
	fees        FeeSchedule
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// GeocoderOption configures optional client behavior.
type GeocoderOption func(*GeocodingClient)

func WithGeocoderHTTPClient(client *http.Client) GeocoderOption {
	return func(c *GeocodingClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithGeocoderBaseURL(baseURL string) GeocoderOption {
	return func(c *GeocodingClient) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

func WithCountry(code, name string) GeocoderOption {
	return func(c *GeocodingClient) {
		if code != "" {
			c.countryCode = strings.ToLower(code)
		}
		if name != "" {
			c.countryName = name
		}
	}
}

func WithGeocoderTimeout(d time.Duration) GeocoderOption {
	return func(c *GeocodingClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithRestaurant(r Restaurant) GeocoderOption {
	return func(c *GeocodingClient) {
		c.restaurant = r
	}
}

func WithCoordinateFee(f FeeSchedule) GeocoderOption {
	return func(c *GeocodingClient) {
		c.fees = f
	}
}

func WithGeocoderLogger(l *logger.Logger) GeocoderOption {
	return func(c *GeocodingClient) {
		c.log = l
	}
}

func WithGeocoderMetrics(m *metrics.Metrics) GeocoderOption {
	return func(c *GeocodingClient) {
		c.metrics = m
	}
}

// NewGeocodingClient builds the client. Nominatim's usage policy requires a User-Agent.
func NewGeocodingClient(userAgent string, opts ...GeocoderOption) (*GeocodingClient, error) {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return nil, errUserAgentRequired
	}
	c := &GeocodingClient{
		httpClient:  &http.Client{},
		baseURL:     defaultGeocoderBaseURL,
		userAgent:   ua,
		countryCode: "my",
		countryName: "Malaysia",
		timeout:     defaultGeocoderTimeout,
		restaurant:  Restaurant{Origin: Coordinates{Lat: 5.4164, Lon: 100.3327}, RadiusKm: DefaultServiceRadiusKm},
		fees:        CoordinateFee,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Restaurant returns the configured origin and radius.
func (c *GeocodingClient) Restaurant() Restaurant {
	return c.restaurant
}

// ValidateAddressText rejects input that cannot plausibly be an address.
func ValidateAddressText(text string) error {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minAddressChars {
		return ErrImplausibleAddress
	}
	if strings.IndexFunc(trimmed, unicode.IsLetter) < 0 {
		return ErrImplausibleAddress
	}
	return nil
}

// SimplifyAddress drops unit/block/level style qualifiers and punctuation.
func SimplifyAddress(text string) string {
	s := qualifierPattern.ReplaceAllString(text, " ")
	s = punctPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// BroadAddress keeps the first three words and appends the country.
func BroadAddress(text, country string) string {
	fields := strings.Fields(text)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	if country != "" {
		fields = append(fields, country)
	}
	return strings.Join(fields, " ")
}

// ResolveText tries the raw text, then a simplified form, then a broad form.
// The first hit wins. Any transport or protocol error stops the search and reports not found.
func (c *GeocodingClient) ResolveText(ctx context.Context, text string) (TextMatch, error) {
	if c == nil {
		return TextMatch{}, apperr.New(apperr.CodeDependency, "geocoder not configured")
	}
	if err := ValidateAddressText(text); err != nil {
		return TextMatch{}, err
	}

	raw := strings.TrimSpace(text)
	queries := []string{raw, SimplifyAddress(raw), BroadAddress(raw, c.countryName)}
	tried := make(map[string]bool, len(queries))

	for i, q := range queries {
		attempt := strconv.Itoa(i + 1)
		if q == "" || tried[q] {
			continue
		}
		tried[q] = true

		p, err := c.search(ctx, q)
		if err != nil {
			c.metrics.GeocodeAttempt(attempt, "error")
			c.log.Warn(ctx, "geocode search failed", err, "attempt", i+1)
			return TextMatch{}, err
		}
		if p == nil {
			c.metrics.GeocodeAttempt(attempt, "empty")
			continue
		}
		c.metrics.GeocodeAttempt(attempt, "found")
		return TextMatch{Found: true, CanonicalName: p.name, Lat: p.lat, Lon: p.lon}, nil
	}
	return TextMatch{}, nil
}

// ResolveCoordinates prices a shared location. The coordinates are authoritative;
// reverse lookup only supplies a readable name.
func (c *GeocodingClient) ResolveCoordinates(ctx context.Context, lat, lon float64) CoordinateMatch {
	p := Coordinates{Lat: lat, Lon: lon}
	d, areaErr := c.restaurant.Locate(p)
	m := CoordinateMatch{
		CanonicalName:       p.String(),
		DistanceKm:          d,
		Fee:                 c.fees.Fee(d),
		WithinServiceRadius: areaErr == nil,
	}
	if areaErr != nil {
		c.log.Info(ctx, "location outside service area", "code", string(apperr.CodeOf(areaErr)), "reason", areaErr.Error())
		return m
	}
	name, err := c.reverse(ctx, lat, lon)
	if err != nil {
		c.log.Warn(ctx, "reverse geocode failed, using coordinates", err)
		return m
	}
	if name != "" {
		m.CanonicalName = name
	}
	return m
}

type place struct {
	name string
	lat  float64
	lon  float64
}

func (c *GeocodingClient) search(ctx context.Context, q string) (*place, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "jsonv2")
	params.Set("countrycodes", c.countryCode)
	params.Set("limit", "1")

	var results []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := c.getJSON(ctx, "/search", params, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "parse search latitude")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "parse search longitude")
	}
	return &place{name: results[0].DisplayName, lat: lat, lon: lon}, nil
}

func (c *GeocodingClient) reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")

	var result struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := c.getJSON(ctx, "/reverse", params, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", apperr.New(apperr.CodeNotFound, "reverse geocode: "+result.Error)
	}
	return result.DisplayName, nil
}

func (c *GeocodingClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperr.Wrap(apperr.CodeDependency, err, "build geocode request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeDependency, err, "execute geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, geocoderBodyReadLimit))
		return apperr.Wrap(apperr.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "geocode request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.CodeDependency, err, "decode geocode response")
	}
	return nil
}
