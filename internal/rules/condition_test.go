package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/py-sit/skyalert/internal/models"
)

func TestParse_Comparison(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		metric    Metric
		op        string
		threshold float64
	}{
		{"max temp", "最高温度 >= 30", MetricTempMax, ">=", 30},
		{"min temp", "最低温度 < -5", MetricTempMin, "<", -5},
		{"bare temp maps to max", "温度 >= 35", MetricTempMax, ">=", 35},
		{"precip", "降水量 > 50", MetricPrecip, ">", 50},
		{"legacy 24h rainfall alias", "24h降雨量 >= 100", MetricPrecip, ">=", 100},
		{"older rainfall alias", "降雨量 > 25", MetricPrecip, ">", 25},
		{"wind speed", "风速 >= 20", MetricWindSpeed, ">=", 20},
		{"visibility", "能见度 <= 1", MetricVisibility, "<=", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := Parse(tt.condition, models.AlertKindParameter)
			require.NoError(t, err)
			cmp, ok := cond.(Comparison)
			require.True(t, ok)
			assert.Equal(t, tt.metric, cmp.Metric)
			assert.Equal(t, tt.op, cmp.Op)
			assert.Equal(t, tt.threshold, cmp.Threshold)
		})
	}
}

func TestParse_ComparisonErrors(t *testing.T) {
	for _, condition := range []string{
		"",
		"湿度 >= 30",   // unknown metric
		"最高温度 >=",    // missing threshold
		"最高温度 >= 高温", // non-numeric threshold
		"最高温度 30",    // no operator
	} {
		_, err := Parse(condition, models.AlertKindParameter)
		assert.Error(t, err, "condition %q", condition)
	}
}

func TestParse_Keyword(t *testing.T) {
	cond, err := Parse("包含 暴雨 或 大暴雨", models.AlertKindKeyword)
	require.NoError(t, err)
	kw, ok := cond.(Keyword)
	require.True(t, ok)
	assert.Equal(t, []string{"暴雨", "大暴雨"}, kw.Terms)
}

func TestParse_KeywordEnglishForm(t *testing.T) {
	cond, err := Parse("contains snow or sleet", models.AlertKindText)
	require.NoError(t, err)
	kw, ok := cond.(Keyword)
	require.True(t, ok)
	assert.Equal(t, []string{"snow", "sleet"}, kw.Terms)
}

func TestComparison_ThresholdBoundary(t *testing.T) {
	cond, err := Parse("最高温度 >= 30", models.AlertKindParameter)
	require.NoError(t, err)

	assert.True(t, cond.Matches(models.ForecastPoint{TempMax: "30"}))
	assert.True(t, cond.Matches(models.ForecastPoint{TempMax: "30.0"}))
	assert.False(t, cond.Matches(models.ForecastPoint{TempMax: "29.999"}))
}

func TestComparison_MissingOrMalformedField(t *testing.T) {
	cond, err := Parse("风速 >= 20", models.AlertKindParameter)
	require.NoError(t, err)

	// Missing field and numeric coercion failure are non-matching, not errors.
	assert.False(t, cond.Matches(models.ForecastPoint{}))
	assert.False(t, cond.Matches(models.ForecastPoint{WindSpeed: "breezy"}))
}

func TestKeyword_MatchesDayOrNightText(t *testing.T) {
	cond, err := Parse("包含 雪 或 雾", models.AlertKindKeyword)
	require.NoError(t, err)

	assert.True(t, cond.Matches(models.ForecastPoint{TextDay: "小雪"}))
	assert.True(t, cond.Matches(models.ForecastPoint{TextNight: "大雾"}))
	assert.False(t, cond.Matches(models.ForecastPoint{TextDay: "晴", TextNight: "多云"}))
}
