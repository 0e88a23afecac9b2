package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/py-sit/skyalert/internal/models"
)

// Metric identifies the forecast field a comparison reads.
type Metric int

const (
	MetricTempMax Metric = iota
	MetricTempMin
	MetricPrecip
	MetricWindSpeed
	MetricVisibility
)

var metricNames = map[Metric]string{
	MetricTempMax:    "temp_max",
	MetricTempMin:    "temp_min",
	MetricPrecip:     "precip",
	MetricWindSpeed:  "wind_speed",
	MetricVisibility: "visibility",
}

func (m Metric) String() string { return metricNames[m] }

// metricPhrases maps condition phrases to metrics. Order matters: the more
// specific phrases must be tried before the bare 温度 alias, and the legacy
// rainfall aliases before each other.
var metricPhrases = []struct {
	phrase string
	metric Metric
}{
	{"最高温度", MetricTempMax},
	{"最低温度", MetricTempMin},
	{"24h降雨量", MetricPrecip}, // legacy alias for precipitation
	{"降雨量", MetricPrecip},    // older legacy alias
	{"降水量", MetricPrecip},
	{"风速", MetricWindSpeed},
	{"能见度", MetricVisibility},
	{"温度", MetricTempMax},
}

// Condition is a parsed rule condition, built once at rule load and
// evaluated against forecast entries.
type Condition interface {
	// Matches reports whether the forecast entry satisfies the condition.
	// Missing or malformed forecast fields make a condition non-matching,
	// never an error.
	Matches(fp models.ForecastPoint) bool
}

// Comparison compares one numeric forecast metric against a threshold.
type Comparison struct {
	Metric    Metric
	Op        string
	Threshold float64
}

func (c Comparison) Matches(fp models.ForecastPoint) bool {
	raw := metricValue(fp, c.Metric)
	if raw == "" {
		return false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false
	}
	switch c.Op {
	case ">":
		return value > c.Threshold
	case "<":
		return value < c.Threshold
	case ">=":
		return value >= c.Threshold
	case "<=":
		return value <= c.Threshold
	}
	return false
}

// Keyword matches when the day or night weather text contains any term.
type Keyword struct {
	Terms []string
}

func (k Keyword) Matches(fp models.ForecastPoint) bool {
	for _, term := range k.Terms {
		if term == "" {
			continue
		}
		if strings.Contains(fp.TextDay, term) || strings.Contains(fp.TextNight, term) {
			return true
		}
	}
	return false
}

// Parse builds the condition AST for a rule. Parameter rules take the form
// "<metric phrase> <op> <threshold>"; keyword and text rules take
// "包含 A 或 B" (or "contains A or B").
func Parse(condition, alertKind string) (Condition, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, fmt.Errorf("empty condition")
	}
	if alertKind == models.AlertKindKeyword || alertKind == models.AlertKindText {
		return parseKeyword(condition)
	}
	return parseComparison(condition)
}

func parseComparison(condition string) (Condition, error) {
	var metric Metric
	found := false
	for _, mp := range metricPhrases {
		if strings.Contains(condition, mp.phrase) {
			metric = mp.metric
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown metric in condition %q", condition)
	}

	fields := strings.Fields(condition)
	for i, f := range fields {
		switch f {
		case ">", "<", ">=", "<=":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("missing threshold in condition %q", condition)
			}
			threshold, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid threshold in condition %q: %w", condition, err)
			}
			return Comparison{Metric: metric, Op: f, Threshold: threshold}, nil
		}
	}
	return nil, fmt.Errorf("no comparison operator in condition %q", condition)
}

func parseKeyword(condition string) (Condition, error) {
	rest := condition
	if idx := strings.Index(condition, "包含"); idx >= 0 {
		rest = condition[idx+len("包含"):]
	} else if idx := strings.Index(condition, "contains"); idx >= 0 {
		rest = condition[idx+len("contains"):]
	}
	rest = strings.TrimSpace(rest)

	var parts []string
	if strings.Contains(rest, "或") {
		parts = strings.Split(rest, "或")
	} else {
		parts = strings.Split(rest, " or ")
	}

	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			terms = append(terms, p)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("no keywords in condition %q", condition)
	}
	return Keyword{Terms: terms}, nil
}

func metricValue(fp models.ForecastPoint, m Metric) string {
	switch m {
	case MetricTempMax:
		return fp.TempMax
	case MetricTempMin:
		return fp.TempMin
	case MetricPrecip:
		return fp.Precip
	case MetricWindSpeed:
		return fp.WindSpeed
	case MetricVisibility:
		return fp.Vis
	}
	return ""
}
