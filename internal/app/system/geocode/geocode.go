// Package geocode is a small client for a Nominatim-compatible geocoding
// service, used to turn device coordinates into addresses and back.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
)

// DefaultBaseURL is the public OpenStreetMap instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

var (
	ErrNotFound      = apperr.NotFound("no place found")
	ErrEmptyQuery    = apperr.Validation("search query is required")
	ErrBadCoordinate = apperr.Validation("lat must be within [-90,90] and lng within [-180,180]")
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string // Nominatim's usage policy requires an identifying agent
	Timeout   time.Duration
}

// Place is a geocoding result.
type Place struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
}

// Client talks to the geocoding service.
type Client struct {
	base string
	ua   string
	http *http.Client
}

// New builds a Client. Zero values fall back to DefaultBaseURL and a 10s
// timeout.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "hopelink"
	}
	return &Client{base: base, ua: ua, http: &http.Client{Timeout: timeout}}
}

// wire format of a Nominatim result; coordinates arrive as strings
type result struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error"`
	Address     struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		State    string `json:"state"`
		Country  string `json:"country"`
		Postcode string `json:"postcode"`
	} `json:"address"`
}

func (r result) place() Place {
	lat, _ := strconv.ParseFloat(r.Lat, 64)
	lng, _ := strconv.ParseFloat(r.Lon, 64)
	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}
	return Place{
		DisplayName: r.DisplayName,
		Lat:         lat,
		Lng:         lng,
		City:        city,
		State:       r.Address.State,
		Country:     r.Address.Country,
		Postcode:    r.Address.Postcode,
	}
}

// ValidCoordinate reports whether lat/lng are within WGS84 bounds.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Reverse returns the address nearest to lat/lng.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	if !ValidCoordinate(lat, lng) {
		return Place{}, ErrBadCoordinate
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var r result
	if err := c.get(ctx, "/reverse", q, &r); err != nil {
		return Place{}, err
	}
	if r.Error != "" || r.DisplayName == "" {
		return Place{}, ErrNotFound
	}
	return r.place(), nil
}

// Search returns up to limit places matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var rs []result
	if err := c.get(ctx, "/search", q, &rs); err != nil {
		return nil, err
	}
	out := make([]Place, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.place())
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geocode %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("geocode %s: decode: %w", path, err)
	}
	return nil
}
