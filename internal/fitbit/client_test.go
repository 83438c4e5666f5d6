package fitbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

type httpGetter struct {
	client *http.Client
}

func (g httpGetter) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return g.client.Do(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{session: httpGetter{srv.Client()}, base: srv.URL}
}

// serveBodies answers each path with its canned body, "{}" for anything
// else.
func serveBodies(bodies map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			body = "{}"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestActivitySummary(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/activities/date/2025-08-01.json": `{
			"summary": {
				"steps": 12345,
				"floors": 11,
				"caloriesOut": 2410,
				"activityCalories": 980,
				"distances": [
					{"activity": "tracker", "distance": 8.1},
					{"activity": "total", "distance": 8.23456}
				]
			}
		}`,
	}))

	m, err := c.ActivitySummary(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, 12345, m["steps"])
	assert.Equal(t, 8.23, m["distance_km"])
	assert.Equal(t, 11, m["floors"])
	assert.Equal(t, 2410, m["calories_total"])
	assert.Equal(t, 980, m["calories_activity"])
}

func TestActivitySummaryNoTotalDistance(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/activities/date/2025-08-01.json": `{
			"summary": {"distances": [{"activity": "tracker", "distance": 8.1}]}
		}`,
	}))

	m, err := c.ActivitySummary(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m["distance_km"])
}

func TestActiveZoneMinutes(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/activities/active-zone-minutes/date/2025-08-01/1d.json": `{
			"activities-active-zone-minutes": [{
				"value": {
					"fatBurnActiveZoneMinutes": 20,
					"cardioActiveZoneMinutes": 12,
					"peakActiveZoneMinutes": 3,
					"activeZoneMinutes": 47
				}
			}]
		}`,
	}))

	m, err := c.ActiveZoneMinutes(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, Metrics{
		"azm_fat_burn": 20,
		"azm_cardio":   12,
		"azm_peak":     3,
		"azm_total":    47,
	}, m)
}

func TestSleepPrefersMainSleep(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1.2/user/-/sleep/date/2025-08-01.json": `{
			"sleep": [
				{"isMainSleep": false, "startTime": "2025-08-01T14:00:00.000", "duration": 1800000},
				{
					"isMainSleep": true,
					"startTime": "2025-07-31T23:12:00.000",
					"endTime": "2025-08-01T07:02:30.000",
					"duration": 27000000,
					"efficiency": 94,
					"levels": {"summary": {
						"deep": {"minutes": 85},
						"light": {"minutes": 230},
						"rem": {"minutes": 95},
						"wake": {"minutes": 40}
					}}
				}
			]
		}`,
	}))

	m, err := c.Sleep(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, "2025-07-31T23:12:00.000", m["sleep_start"])
	assert.Equal(t, "2025-08-01T07:02:30.000", m["sleep_end"])
	assert.Equal(t, 7.5, m["sleep_duration_hrs"])
	assert.Equal(t, 94, m["sleep_efficiency"])
	assert.Equal(t, 85, m["sleep_deep_min"])
	assert.Equal(t, 230, m["sleep_light_min"])
	assert.Equal(t, 95, m["sleep_rem_min"])
	assert.Equal(t, 40, m["sleep_wake_min"])
}

func TestSleepFallsBackToFirstEntry(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1.2/user/-/sleep/date/2025-08-01.json": `{
			"sleep": [
				{"startTime": "nap-one", "duration": 3600000},
				{"startTime": "nap-two", "duration": 1800000}
			]
		}`,
	}))

	m, err := c.Sleep(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, "nap-one", m["sleep_start"])
	assert.Equal(t, 1.0, m["sleep_duration_hrs"])
}

func TestSleepEmpty(t *testing.T) {
	c := newTestClient(t, serveBodies(nil))

	m, err := c.Sleep(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, "", m["sleep_start"])
	assert.Equal(t, 0.0, m["sleep_duration_hrs"])
	assert.Equal(t, 0, m["sleep_deep_min"])
}

func TestHeartRate(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/activities/heart/date/2025-08-01/1d.json": `{
			"activities-heart": [{"value": {"restingHeartRate": 56}}]
		}`,
	}))

	m, err := c.HeartRate(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 56, m["rhr"])
}

func TestHeartRateAbsent(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/activities/heart/date/2025-08-01/1d.json": `{
			"activities-heart": [{"value": {}}]
		}`,
	}))

	m, err := c.HeartRate(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, "", m["rhr"])
}

func TestHRVRounds(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/hrv/date/2025-08-01.json": `{
			"hrv": [{"value": {"dailyRmssd": 42.128}}]
		}`,
	}))

	m, err := c.HRV(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 42.13, m["hrv_rmssd"])
}

func TestSpO2Object(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/spo2/date/2025-08-01.json": `{
			"value": {"avg": 96.5, "min": 92.0, "max": 99.0}
		}`,
	}))

	m, err := c.SpO2(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, 96.5, m["spo2_avg"])
	assert.Equal(t, 92.0, m["spo2_min"])
	assert.Equal(t, 99.0, m["spo2_max"])
}

func TestSpO2List(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/spo2/date/2025-08-01.json": `{
			"value": [{"avg": 95.1, "min": 91.0, "max": 98.2}, {"avg": 90.0}]
		}`,
	}))

	m, err := c.SpO2(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 95.1, m["spo2_avg"])
}

func TestBreathingRateRounds(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/br/date/2025-08-01.json": `{
			"br": [{"value": {"breathingRate": 15.68}}]
		}`,
	}))

	m, err := c.BreathingRate(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 15.7, m["breathing_rate"])
}

func TestSkinTemperature(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/temp/skin/date/2025-08-01.json": `{
			"tempSkin": [{"value": {"nightlyRelative": -0.4}}]
		}`,
	}))

	m, err := c.SkinTemperature(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, -0.4, m["skin_temp_variation"])
}

func TestVO2MaxRange(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/cardioscore/date/2025-08-01.json": `{
			"cardioScore": [{"value": {"vo2Max": {"low": 42, "high": 46}}}]
		}`,
	}))

	m, err := c.VO2Max(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, "42-46", m["vo2_max"])
}

func TestVO2MaxScalar(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/cardioscore/date/2025-08-01.json": `{
			"cardioScore": [{"value": {"vo2Max": 44.2}}]
		}`,
	}))

	m, err := c.VO2Max(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, "44.2", m["vo2_max"])
}

func TestVO2MaxAbsent(t *testing.T) {
	c := newTestClient(t, serveBodies(nil))

	m, err := c.VO2Max(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, "", m["vo2_max"])
}

func TestExercisesFiltersByDate(t *testing.T) {
	c := newTestClient(t, serveBodies(map[string]string{
		"/1/user/-/activities/list.json": `{
			"activities": [
				{"startDate": "2025-08-01", "activityName": "Run", "activeDuration": 1800000, "calories": 250},
				{"startDate": "2025-08-02", "activityName": "Swim", "activeDuration": 2400000, "calories": 400},
				{"originalStartTime": "2025-08-01T18:05:00.000+01:00", "activityName": "Walk", "activeDuration": 930000, "calories": 80}
			]
		}`,
	}))

	m, err := c.Exercises(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, "Run (30.0min, 250cal); Walk (15.5min, 80cal)", m["exercises"])
}

func TestExercisesNone(t *testing.T) {
	c := newTestClient(t, serveBodies(nil))

	m, err := c.Exercises(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, "None", m["exercises"])
}

func TestFetchAllEmptyBodies(t *testing.T) {
	c := newTestClient(t, serveBodies(nil))

	row := c.FetchAll(context.Background(), testDay)

	assert.Equal(t, Metrics{
		"steps":               0,
		"distance_km":         0.0,
		"floors":              0,
		"calories_total":      0,
		"calories_activity":   0,
		"azm_fat_burn":        0,
		"azm_cardio":          0,
		"azm_peak":            0,
		"azm_total":           0,
		"sleep_start":         "",
		"sleep_end":           "",
		"sleep_duration_hrs":  0.0,
		"sleep_efficiency":    0,
		"sleep_deep_min":      0,
		"sleep_light_min":     0,
		"sleep_rem_min":       0,
		"sleep_wake_min":      0,
		"rhr":                 "",
		"hrv_rmssd":           "",
		"spo2_avg":            "",
		"spo2_min":            "",
		"spo2_max":            "",
		"breathing_rate":      "",
		"skin_temp_variation": "",
		"vo2_max":             "",
		"exercises":           "None",
	}, row)
}

func TestFetchAllPartialFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/1.2/user/-/sleep/date/2025-08-01.json" {
			http.Error(w, "upstream broke", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("{}"))
	})

	row := c.FetchAll(context.Background(), testDay)

	assert.NotContains(t, row, "sleep_start")
	assert.NotContains(t, row, "sleep_duration_hrs")
	assert.Contains(t, row, "steps")
	assert.Contains(t, row, "rhr")
	assert.Contains(t, row, "exercises")
	assert.Len(t, row, 18)
}

func TestGetJSONErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	})

	_, err := c.HeartRate(context.Background(), testDay)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
