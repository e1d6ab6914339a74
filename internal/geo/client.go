package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/middleware"
)

var ErrRateLimited = errors.New("geo provider rate limit exceeded")

// Point 经纬度坐标。
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place 地理编码结果。
type Place struct {
	Label string `json:"label"`
	Point Point  `json:"point"`
}

// RouteResult 路径规划结果，距离和时长用于报价输入。
// Geometry 是供应商返回的编码折线，原样透传给前端画图。
type RouteResult struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	Geometry        string  `json:"geometry,omitempty"`
}

// Client 外部地图服务客户端。出站调用统一走令牌桶限流加熔断，
// 供应商抖动不拖垮下单链路。
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *middleware.TokenBucket
	breaker *middleware.CircuitBreaker
}

func NewClient(cfg config.GeoConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rate := cfg.RatePerSecond
	if rate <= 0 {
		rate = 10
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: middleware.NewTokenBucket(rate, rate),
		breaker: middleware.NewCircuitBreaker("geo", 5, 30*time.Second),
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if !c.limiter.Allow(ctx) {
		return ErrRateLimited
	}
	return c.breaker.Call(ctx, func() error {
		query.Set("key", c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("geo request %s: %w", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("geo request %s: status %d", path, resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// Geocode 地址转坐标。
func (c *Client) Geocode(ctx context.Context, address string) (*Place, error) {
	q := url.Values{}
	q.Set("q", address)
	var out struct {
		Results []Place `json:"results"`
	}
	if err := c.get(ctx, "/geocode", q, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("no geocode result for %q", address)
	}
	return &out.Results[0], nil
}

// ReverseGeocode 坐标转地址。
func (c *Client) ReverseGeocode(ctx context.Context, p Point) (*Place, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", p.Lat))
	q.Set("lng", fmt.Sprintf("%f", p.Lng))
	var out Place
	if err := c.get(ctx, "/reverse", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Route 两点间路径规划，返回里程与预计时长。
func (c *Client) Route(ctx context.Context, from, to Point) (*RouteResult, error) {
	q := url.Values{}
	q.Set("from", fmt.Sprintf("%f,%f", from.Lat, from.Lng))
	q.Set("to", fmt.Sprintf("%f,%f", to.Lat, to.Lng))
	var out RouteResult
	if err := c.get(ctx, "/route", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Autocomplete 地址联想。
func (c *Client) Autocomplete(ctx context.Context, prefix string) ([]Place, error) {
	q := url.Values{}
	q.Set("q", prefix)
	var out struct {
		Results []Place `json:"results"`
	}
	if err := c.get(ctx, "/autocomplete", q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
