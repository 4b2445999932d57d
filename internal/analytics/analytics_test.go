package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZScoreAnomalies_ShortSeriesIsEmpty(t *testing.T) {
	assert.Empty(t, ZScoreAnomalies([]float64{1, 2}, DefaultZThreshold))
}

func TestZScoreAnomalies_ZeroVarianceIsEmpty(t *testing.T) {
	assert.Empty(t, ZScoreAnomalies([]float64{5, 5, 5, 5}, DefaultZThreshold))
}

func TestZScoreAnomalies_FlagsOutliers(t *testing.T) {
	series := []float64{120, 122, 121, 123, 165}
	anomalies := ZScoreAnomalies(series, DefaultZThreshold)
	require.NotEmpty(t, anomalies)
	last := anomalies[len(anomalies)-1]
	assert.Equal(t, 4, last.Index)
	assert.Equal(t, 165.0, last.Value)
	assert.GreaterOrEqual(t, last.Z, DefaultZThreshold)
}

func TestBuildTrend_SinglePointDeltaZero(t *testing.T) {
	trend := BuildTrend("BP", []VitalPoint{{RecordedAtUnix: 100, Numeric: 120}}, DefaultZThreshold)
	assert.Equal(t, 0.0, trend.Delta)
	assert.Equal(t, 120.0, trend.Latest)
}

func TestBuildTrend_SortsByTimeAndComputesDelta(t *testing.T) {
	points := []VitalPoint{
		{RecordedAtUnix: 300, Numeric: 165},
		{RecordedAtUnix: 100, Numeric: 120},
		{RecordedAtUnix: 200, Numeric: 122},
	}
	trend := BuildTrend("BP", points, DefaultZThreshold)
	assert.Equal(t, []float64{120, 122, 165}, trend.Points)
	assert.Equal(t, 165.0, trend.Latest)
	assert.Equal(t, 45.0, trend.Delta)
}

func TestParseReferenceRange(t *testing.T) {
	cases := []struct {
		in       string
		wantLow  *float64
		wantHigh *float64
	}{
		{"70-110", f(70), f(110)},
		{"70 – 110", f(70), f(110)},
		{"< 5.0", nil, f(5.0)},
		{"≤ 5.0", nil, f(5.0)},
		{"> 3", f(3), nil},
		{"≥ 3", f(3), nil},
		{"not a range", nil, nil},
		{"", nil, nil},
	}
	for _, c := range cases {
		got := ParseReferenceRange(c.in)
		if c.wantLow == nil {
			assert.Nil(t, got.Low, c.in)
		} else {
			require.NotNil(t, got.Low, c.in)
			assert.Equal(t, *c.wantLow, *got.Low, c.in)
		}
		if c.wantHigh == nil {
			assert.Nil(t, got.High, c.in)
		} else {
			require.NotNil(t, got.High, c.in)
			assert.Equal(t, *c.wantHigh, *got.High, c.in)
		}
	}
}

func TestFlagLab(t *testing.T) {
	rng := ReferenceRange{Low: f(4), High: f(10)}
	assert.Equal(t, LabHigh, FlagLab(f(12), rng))
	assert.Equal(t, LabLow, FlagLab(f(1), rng))
	assert.Equal(t, LabNormal, FlagLab(f(5), rng))
	assert.Equal(t, LabUnknown, FlagLab(nil, rng))
	assert.Equal(t, LabUnknown, FlagLab(f(5), ReferenceRange{}))
}

func TestComputeRiskScore_Tiers(t *testing.T) {
	low := ComputeRiskScore(RiskScoreInput{})
	assert.Equal(t, "low", low.Tier)
	assert.Equal(t, 0, low.Score)

	critical := ComputeRiskScore(RiskScoreInput{
		AnomalyCount:   5,
		ActiveAIFlags:  4,
		LabStatuses:    []LabFlagStatus{LabHigh, LabHigh, LabNormal},
		RecentSymptoms: []string{"patient reports chest pain and dyspnea"},
	})
	assert.Equal(t, "critical", critical.Tier)
	assert.GreaterOrEqual(t, critical.Score, 75)
	assert.Len(t, critical.Contributors, 4)
}

func TestComputeRiskScore_NoLabsEvaluatedYieldsZeroSubscore(t *testing.T) {
	r := ComputeRiskScore(RiskScoreInput{})
	for _, c := range r.Contributors {
		if c.Source == "lab_out_of_range" {
			assert.Equal(t, 0.0, c.Subscore)
		}
	}
}

func f(v float64) *float64 { return &v }
