package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	AddressComponents []struct {
		LongName string   `json:"long_name"`
		Types    []string `json:"types"`
	} `json:"address_components"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleProvider geocodes via the Google Geocoding API.
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// GoogleOption configures the GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) GoogleOption {
	return func(g *GoogleProvider) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) GoogleOption {
	return func(g *GoogleProvider) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) GoogleOption {
	return func(g *GoogleProvider) {
		g.baseURL = u
	}
}

// WithLanguage sets the response language for formatted addresses.
func WithLanguage(lang string) GoogleOption {
	return func(g *GoogleProvider) {
		g.language = lang
	}
}

// NewGoogleProvider creates a GoogleProvider with the given API key.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) *GoogleProvider {
	g := &GoogleProvider{
		apiKey:     apiKey,
		baseURL:    googleGeocodeURL,
		language:   "de",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements Provider.
func (g *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (g *GoogleProvider) Available() bool { return g.apiKey != "" }

// Geocode implements Provider. An OVER_QUERY_LIMIT status maps to
// ErrQuotaExceeded; ZERO_RESULTS is a regular non-match.
func (g *GoogleProvider) Geocode(ctx context.Context, q Query) (*Result, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit")
	}

	params := url.Values{
		"address":  {q.SearchString()},
		"key":      {g.apiKey},
		"language": {g.language},
	}
	if q.Country != "" {
		params.Set("components", "country:"+q.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google read body")
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch googleResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Matched: false}, nil
	case "OVER_QUERY_LIMIT":
		return nil, ErrQuotaExceeded
	default:
		return nil, eris.Errorf("geocode: google status %s", googleResp.Status)
	}

	if len(googleResp.Results) == 0 {
		return &Result{Matched: false}, nil
	}

	first := googleResp.Results[0]
	payload, err := json.Marshal(first)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google encode payload")
	}

	return &Result{
		Lat:      first.Geometry.Location.Lat,
		Lng:      first.Geometry.Location.Lng,
		Matched:  true,
		Postcode: first.postcode(),
		Payload:  payload,
	}, nil
}

// postcode extracts the postal_code address component, if present.
func (r googleResult) postcode() string {
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			if t == "postal_code" {
				return comp.LongName
			}
		}
	}
	return ""
}
