package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/py-sit/skyalert/internal/config"
	"github.com/py-sit/skyalert/internal/logging"
)

const geoBody = `{"code":"200","location":[{"id":"101010100","name":"北京"}]}`

const forecastBody = `{"code":"200","daily":[
  {"fxDate":"2026-08-31","tempMax":"36","tempMin":"26","textDay":"晴","textNight":"晴","windSpeedDay":"12","precip":"0.0","vis":"25"},
  {"fxDate":"2026-09-01","tempMax":"34","tempMin":"25","textDay":"多云","textNight":"阴","windSpeedDay":"15","precip":"1.2","vis":"20"},
  {"fxDate":"2026-09-02","tempMax":"30","tempMin":"24","textDay":"小雨","textNight":"中雨","windSpeedDay":"18","precip":"8.5","vis":"10"}
]}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var cfg config.Config
	cfg.Weather.APIKey = "test-key"
	cfg.Weather.GeoHost = srv.URL
	cfg.Weather.APIHost = srv.URL
	cfg.Weather.Timeout = 2 * time.Second

	cache := NewCache(time.Hour, clockwork.NewFakeClock())
	return NewClient(cfg, cache, logging.Discard()), srv
}

func TestFetchAll_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/city/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geoBody))
	})
	mux.HandleFunc("/v7/weather/3d", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(forecastBody))
	})
	client, _ := newTestClient(t, mux)

	results, failures := client.FetchAll(context.Background(), []string{"北京"}, 1, 3)
	require.Empty(t, failures)
	require.Contains(t, results, "北京")

	rf := results["北京"]
	assert.Equal(t, "北京", rf.Region)
	require.Len(t, rf.Days, 3)
	assert.Equal(t, "2026-08-31", rf.Days[0].Date)
	assert.Equal(t, "36", rf.Days[0].TempMax)
	assert.Equal(t, "中雨", rf.Days[2].TextNight)
}

func TestFetchAll_UsesSevenDayEndpointForLongHorizon(t *testing.T) {
	var sevenDayHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/city/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geoBody))
	})
	mux.HandleFunc("/v7/weather/7d", func(w http.ResponseWriter, r *http.Request) {
		sevenDayHits.Add(1)
		// 3 days is short of the required 7; the fetch must fail.
		w.Write([]byte(forecastBody))
	})
	client, _ := newTestClient(t, mux)

	_, failures := client.FetchAll(context.Background(), []string{"北京"}, 3, 1)
	assert.Equal(t, int32(1), sevenDayHits.Load())
	assert.Len(t, failures, 1, "insufficient horizon must be rejected")
}

func TestFetchAll_PartialFailureIsolated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/city/lookup", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("location") == "无名镇" {
			w.Write([]byte(`{"code":"404","location":[]}`))
			return
		}
		w.Write([]byte(geoBody))
	})
	mux.HandleFunc("/v7/weather/3d", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(forecastBody))
	})
	client, _ := newTestClient(t, mux)

	results, failures := client.FetchAll(context.Background(), []string{"北京", "无名镇"}, 1, 1)
	assert.Contains(t, results, "北京")
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "无名镇")
}

func TestFetchAll_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/city/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geoBody))
	})
	mux.HandleFunc("/v7/weather/3d", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(forecastBody))
	})
	client, _ := newTestClient(t, mux)

	results, failures := client.FetchAll(context.Background(), []string{"北京"}, 1, 3)
	assert.Empty(t, failures)
	assert.Contains(t, results, "北京")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAll_SecondFetchServedFromCache(t *testing.T) {
	var forecastHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/city/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geoBody))
	})
	mux.HandleFunc("/v7/weather/3d", func(w http.ResponseWriter, r *http.Request) {
		forecastHits.Add(1)
		w.Write([]byte(forecastBody))
	})
	client, _ := newTestClient(t, mux)

	client.FetchAll(context.Background(), []string{"北京"}, 1, 1)
	client.FetchAll(context.Background(), []string{"北京"}, 1, 1)
	assert.Equal(t, int32(1), forecastHits.Load())
}
