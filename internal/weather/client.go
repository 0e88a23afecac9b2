package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/py-sit/skyalert/internal/config"
	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
	"github.com/py-sit/skyalert/internal/utils"
)

const fetchRetryDelay = 2 * time.Second

// Client fetches daily forecasts from the QWeather API, going through the
// TTL cache to avoid redundant network calls within one cache window.
type Client struct {
	httpClient *http.Client
	apiKey     string
	geoHost    string
	apiHost    string
	cache      *Cache
	logger     *logging.Logger
}

// NewClient builds a Client from static config.
func NewClient(cfg config.Config, cache *Cache, logger *logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Weather.Timeout},
		apiKey:     cfg.Weather.APIKey,
		geoHost:    cfg.Weather.GeoHost,
		apiHost:    cfg.Weather.APIHost,
		cache:      cache,
		logger:     logger,
	}
}

type geoResponse struct {
	Code     string `json:"code"`
	Location []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"location"`
}

type forecastResponse struct {
	Code  string `json:"code"`
	Daily []struct {
		FxDate       string `json:"fxDate"`
		TempMax      string `json:"tempMax"`
		TempMin      string `json:"tempMin"`
		TextDay      string `json:"textDay"`
		TextNight    string `json:"textNight"`
		WindSpeedDay string `json:"windSpeedDay"`
		WindDirDay   string `json:"windDirDay"`
		Precip       string `json:"precip"`
		Vis          string `json:"vis"`
	} `json:"daily"`
}

// horizonDays returns how many forecast days a cycle needs: the 7-day
// endpoint when looking more than 2 days ahead, the 3-day one otherwise.
func horizonDays(advanceDays int) int {
	if advanceDays > 2 {
		return 7
	}
	return 3
}

// FetchAll fetches forecasts for every region, returning partial results
// plus the list of regions that failed. A region failure never aborts the
// rest of the batch.
func (c *Client) FetchAll(ctx context.Context, regions []string, advanceDays, retryCount int) (map[string]models.RegionForecast, []string) {
	if retryCount <= 0 {
		retryCount = 3
	}
	days := horizonDays(advanceDays)
	c.logger.Infof("Fetching %d-day forecasts for %d regions", days, len(regions))

	results := make(map[string]models.RegionForecast)
	var failures []string

	for _, region := range regions {
		cityID, err := c.lookupCity(ctx, region)
		if err != nil {
			c.logger.Errorf("City lookup failed for %s: %v", region, err)
			failures = append(failures, fmt.Sprintf("%s (city lookup failed)", region))
			continue
		}

		forecast, err := c.fetchForecast(ctx, region, cityID, days, retryCount)
		if err != nil {
			c.logger.Errorf("Forecast fetch failed for %s: %v", region, err)
			failures = append(failures, fmt.Sprintf("%s (forecast failed)", region))
			continue
		}
		results[region] = forecast
	}

	return results, failures
}

// lookupCity resolves a region name to a QWeather city ID, caching hits.
func (c *Client) lookupCity(ctx context.Context, region string) (string, error) {
	if v, ok := c.cache.Get(CityKey(region)); ok {
		if id, ok := v.(string); ok {
			return id, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v2/city/lookup?location=%s&key=%s",
		c.geoHost, url.QueryEscape(region), c.apiKey)
	var resp geoResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if resp.Code != "200" || len(resp.Location) == 0 {
		return "", fmt.Errorf("no city id for %q (code %s)", region, resp.Code)
	}

	id := resp.Location[0].ID
	c.cache.Set(CityKey(region), id)
	return id, nil
}

// fetchForecast retrieves the daily forecast for a city, retrying transient
// failures with a fixed delay, and rejects responses shorter than the
// required horizon.
func (c *Client) fetchForecast(ctx context.Context, region, cityID string, days, retryCount int) (models.RegionForecast, error) {
	if v, ok := c.cache.Get(WeatherKey(cityID)); ok {
		if rf, ok := v.(models.RegionForecast); ok && len(rf.Days) >= days {
			return rf, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v7/weather/%dd?location=%s&key=%s",
		c.apiHost, days, url.QueryEscape(cityID), c.apiKey)

	var resp forecastResponse
	err := utils.Retry(c.logger, retryCount, fetchRetryDelay, func() error {
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return err
		}
		if resp.Code != "200" {
			return fmt.Errorf("api error code %s", resp.Code)
		}
		if len(resp.Daily) < days {
			return fmt.Errorf("forecast has %d days, need %d", len(resp.Daily), days)
		}
		return nil
	})
	if err != nil {
		return models.RegionForecast{}, err
	}

	rf := models.RegionForecast{
		Region:    region,
		UpdatedAt: time.Now(),
		Days:      make([]models.ForecastPoint, 0, len(resp.Daily)),
	}
	for _, d := range resp.Daily {
		rf.Days = append(rf.Days, models.ForecastPoint{
			Date:      d.FxDate,
			TempMax:   d.TempMax,
			TempMin:   d.TempMin,
			TextDay:   d.TextDay,
			TextNight: d.TextNight,
			WindSpeed: d.WindSpeedDay,
			WindDir:   d.WindDirDay,
			Precip:    d.Precip,
			Vis:       d.Vis,
		})
	}

	c.cache.Set(WeatherKey(cityID), rf)
	return rf, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
