package fitbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erika-dike/fitbit-uploader/internal/config"
)

const dateLayout = "2006-01-02"

// Metrics is a flat row of named metric values for one calendar date.
type Metrics map[string]any

// Getter issues authenticated GET requests. Satisfied by *Session.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client fetches daily health metrics from the Fitbit Web API.
type Client struct {
	session Getter
	base    string
}

func NewClient(session Getter) *Client {
	return &Client{session: session, base: config.FitbitAPIBase}
}

// FetchAll runs every metric fetcher for the given date and merges the
// results into one row. A failing fetcher is logged and skipped; partial
// data is preferred over no data.
func (c *Client) FetchAll(ctx context.Context, day time.Time) Metrics {
	fetchers := []struct {
		name string
		fn   func(context.Context, time.Time) (Metrics, error)
	}{
		{"activity summary", c.ActivitySummary},
		{"active zone minutes", c.ActiveZoneMinutes},
		{"sleep", c.Sleep},
		{"heart rate", c.HeartRate},
		{"hrv", c.HRV},
		{"spo2", c.SpO2},
		{"breathing rate", c.BreathingRate},
		{"skin temperature", c.SkinTemperature},
		{"vo2 max", c.VO2Max},
		{"exercises", c.Exercises},
	}

	row := Metrics{}
	for _, f := range fetchers {
		m, err := f.fn(ctx, day)
		if err != nil {
			log.Printf("Warning: %s fetch failed: %v", f.name, err)
			continue
		}
		for k, v := range m {
			row[k] = v
		}
	}
	return row
}

// ActivitySummary returns steps, distance, floors and calories for the day.
func (c *Client) ActivitySummary(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		Summary struct {
			Steps            int `json:"steps"`
			Floors           int `json:"floors"`
			CaloriesOut      int `json:"caloriesOut"`
			ActivityCalories int `json:"activityCalories"`
			Distances        []struct {
				Activity string  `json:"activity"`
				Distance float64 `json:"distance"`
			} `json:"distances"`
		} `json:"summary"`
	}
	path := fmt.Sprintf("/1/user/-/activities/date/%s.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	// The distances list carries one entry per activity type; the row wants
	// the one tagged "total".
	distance := 0.0
	for _, d := range body.Summary.Distances {
		if d.Activity == "total" {
			distance = round2(d.Distance)
			break
		}
	}

	return Metrics{
		"steps":             body.Summary.Steps,
		"distance_km":       distance,
		"floors":            body.Summary.Floors,
		"calories_total":    body.Summary.CaloriesOut,
		"calories_activity": body.Summary.ActivityCalories,
	}, nil
}

// ActiveZoneMinutes returns the AZM breakdown for the day.
func (c *Client) ActiveZoneMinutes(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		Minutes []struct {
			Value struct {
				FatBurn int `json:"fatBurnActiveZoneMinutes"`
				Cardio  int `json:"cardioActiveZoneMinutes"`
				Peak    int `json:"peakActiveZoneMinutes"`
				Total   int `json:"activeZoneMinutes"`
			} `json:"value"`
		} `json:"activities-active-zone-minutes"`
	}
	path := fmt.Sprintf("/1/user/-/activities/active-zone-minutes/date/%s/1d.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	m := Metrics{"azm_fat_burn": 0, "azm_cardio": 0, "azm_peak": 0, "azm_total": 0}
	if len(body.Minutes) > 0 {
		v := body.Minutes[0].Value
		m["azm_fat_burn"] = v.FatBurn
		m["azm_cardio"] = v.Cardio
		m["azm_peak"] = v.Peak
		m["azm_total"] = v.Total
	}
	return m, nil
}

type sleepEntry struct {
	IsMainSleep bool   `json:"isMainSleep"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Duration    int64  `json:"duration"`
	Efficiency  int    `json:"efficiency"`
	Levels      struct {
		Summary map[string]struct {
			Minutes int `json:"minutes"`
		} `json:"summary"`
	} `json:"levels"`
}

// Sleep returns data for the night ending on the given date. When multiple
// sleep logs exist the one flagged as main sleep wins, otherwise the first.
func (c *Client) Sleep(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		Sleep []sleepEntry `json:"sleep"`
	}
	path := fmt.Sprintf("/1.2/user/-/sleep/date/%s.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	var main *sleepEntry
	for i := range body.Sleep {
		if body.Sleep[i].IsMainSleep {
			main = &body.Sleep[i]
			break
		}
	}
	if main == nil && len(body.Sleep) > 0 {
		main = &body.Sleep[0]
	}
	if main == nil {
		return Metrics{
			"sleep_start": "", "sleep_end": "",
			"sleep_duration_hrs": 0.0, "sleep_efficiency": 0,
			"sleep_deep_min": 0, "sleep_light_min": 0,
			"sleep_rem_min": 0, "sleep_wake_min": 0,
		}, nil
	}

	stage := func(name string) int { return main.Levels.Summary[name].Minutes }

	return Metrics{
		"sleep_start":        main.StartTime,
		"sleep_end":          main.EndTime,
		"sleep_duration_hrs": round2(float64(main.Duration) / 3_600_000),
		"sleep_efficiency":   main.Efficiency,
		"sleep_deep_min":     stage("deep"),
		"sleep_light_min":    stage("light"),
		"sleep_rem_min":      stage("rem"),
		"sleep_wake_min":     stage("wake"),
	}, nil
}

// HeartRate returns the resting heart rate, or "" when none was recorded.
func (c *Client) HeartRate(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		Entries []struct {
			Value struct {
				RestingHeartRate *int `json:"restingHeartRate"`
			} `json:"value"`
		} `json:"activities-heart"`
	}
	path := fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	var rhr any = ""
	if len(body.Entries) > 0 && body.Entries[0].Value.RestingHeartRate != nil {
		rhr = *body.Entries[0].Value.RestingHeartRate
	}
	return Metrics{"rhr": rhr}, nil
}

// HRV returns the daily RMSSD, rounded to 2 decimals, or "".
func (c *Client) HRV(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		HRV []struct {
			Value struct {
				DailyRmssd float64 `json:"dailyRmssd"`
			} `json:"value"`
		} `json:"hrv"`
	}
	path := fmt.Sprintf("/1/user/-/hrv/date/%s.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	var rmssd any = ""
	if len(body.HRV) > 0 && body.HRV[0].Value.DailyRmssd != 0 {
		rmssd = round2(body.HRV[0].Value.DailyRmssd)
	}
	return Metrics{"hrv_rmssd": rmssd}, nil
}

// SpO2 returns blood oxygen saturation stats. The upstream value is an
// object for a single day but a list for ranges; both shapes are accepted.
func (c *Client) SpO2(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		Value json.RawMessage `json:"value"`
	}
	path := fmt.Sprintf("/1/user/-/spo2/date/%s.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	type spo2Values struct {
		Avg *float64 `json:"avg"`
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}
	var v spo2Values
	if len(body.Value) > 0 {
		if err := json.Unmarshal(body.Value, &v); err != nil {
			var list []spo2Values
			if err := json.Unmarshal(body.Value, &list); err == nil && len(list) > 0 {
				v = list[0]
			}
		}
	}

	return Metrics{
		"spo2_avg": valueOrEmpty(v.Avg),
		"spo2_min": valueOrEmpty(v.Min),
		"spo2_max": valueOrEmpty(v.Max),
	}, nil
}

// BreathingRate returns breaths per minute during sleep, rounded to 1
// decimal, or "".
func (c *Client) BreathingRate(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		BR []struct {
			Value struct {
				BreathingRate float64 `json:"breathingRate"`
			} `json:"value"`
		} `json:"br"`
	}
	path := fmt.Sprintf("/1/user/-/br/date/%s.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	var rate any = ""
	if len(body.BR) > 0 && body.BR[0].Value.BreathingRate != 0 {
		rate = math.Round(body.BR[0].Value.BreathingRate*10) / 10
	}
	return Metrics{"breathing_rate": rate}, nil
}

// SkinTemperature returns the nightly variation from baseline, or "".
func (c *Client) SkinTemperature(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		TempSkin []struct {
			Value struct {
				NightlyRelative *float64 `json:"nightlyRelative"`
			} `json:"value"`
		} `json:"tempSkin"`
	}
	path := fmt.Sprintf("/1/user/-/temp/skin/date/%s.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	var variation any = ""
	if len(body.TempSkin) > 0 && body.TempSkin[0].Value.NightlyRelative != nil {
		variation = *body.TempSkin[0].Value.NightlyRelative
	}
	return Metrics{"skin_temp_variation": variation}, nil
}

// VO2Max returns the cardio fitness score. A range renders as "low-high",
// a scalar as-is, absent as "".
func (c *Client) VO2Max(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		CardioScore []struct {
			Value struct {
				VO2Max json.RawMessage `json:"vo2Max"`
			} `json:"value"`
		} `json:"cardioScore"`
	}
	path := fmt.Sprintf("/1/user/-/cardioscore/date/%s.json", day.Format(dateLayout))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	vo2 := ""
	if len(body.CardioScore) > 0 {
		vo2 = renderVO2(body.CardioScore[0].Value.VO2Max)
	}
	return Metrics{"vo2_max": vo2}, nil
}

func renderVO2(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}

	if bytes.HasPrefix(trimmed, []byte("{")) {
		var rng struct {
			Low  json.Number `json:"low"`
			High json.Number `json:"high"`
		}
		if err := json.Unmarshal(trimmed, &rng); err != nil {
			return ""
		}
		return fmt.Sprintf("%s-%s", rng.Low, rng.High)
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n.String()
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return ""
}

// Exercises returns a one-line summary of the day's logged workouts, or
// "None". The list endpoint returns everything after the date, so entries
// from later days are filtered out.
func (c *Client) Exercises(ctx context.Context, day time.Time) (Metrics, error) {
	var body struct {
		Activities []struct {
			StartDate         string  `json:"startDate"`
			OriginalStartTime string  `json:"originalStartTime"`
			ActivityName      string  `json:"activityName"`
			ActiveDuration    float64 `json:"activeDuration"`
			Calories          int     `json:"calories"`
		} `json:"activities"`
	}
	date := day.Format(dateLayout)
	path := fmt.Sprintf("/1/user/-/activities/list.json?afterDate=%s&sort=asc&offset=0&limit=20", date)
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}

	var parts []string
	for _, a := range body.Activities {
		logDate := a.StartDate
		if logDate == "" {
			logDate = a.OriginalStartTime
		}
		if len(logDate) > 10 {
			logDate = logDate[:10]
		}
		if logDate != date {
			continue
		}

		name := a.ActivityName
		if name == "" {
			name = "Unknown"
		}
		minutes := math.Round(a.ActiveDuration/60_000*10) / 10
		parts = append(parts, fmt.Sprintf("%s (%smin, %dcal)", name, strconv.FormatFloat(minutes, 'f', 1, 64), a.Calories))
	}

	if len(parts) == 0 {
		return Metrics{"exercises": "None"}, nil
	}
	return Metrics{"exercises": strings.Join(parts, "; ")}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.session.Get(ctx, c.base+path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func valueOrEmpty(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}
