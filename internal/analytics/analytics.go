// Package analytics implements the clinical analytics engine: z-score
// anomaly detection, per-metric vital trends, reference-range parsing, lab
// flagging, and the composite risk score. Every function here is pure and
// deterministic — no I/O, no clock reads, no randomness.
package analytics

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
)

// Anomaly is a single out-of-band point in a numeric series.
type Anomaly struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
	Z     float64 `json:"z"`
}

// DefaultZThreshold is the z-score magnitude above which a point is
// considered anomalous, absent an explicit threshold.
const DefaultZThreshold = 2.0

// ZScoreAnomalies returns every point in series whose z-score, rounded to
// two decimals, has a magnitude at or above threshold. A series shorter
// than 3 points, or one with zero variance, yields no anomalies rather than
// a divide-by-zero.
func ZScoreAnomalies(series []float64, threshold float64) []Anomaly {
	n := len(series)
	if n < 3 {
		return []Anomaly{}
	}

	mean := 0.0
	for _, x := range series {
		mean += x
	}
	mean /= float64(n)

	variance := 0.0
	for _, x := range series {
		d := x - mean
		variance += d * d
	}
	variance /= float64(n)
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return []Anomaly{}
	}

	out := make([]Anomaly, 0)
	for i, x := range series {
		z := round2((x - mean) / stddev)
		if math.Abs(z) >= threshold {
			out = append(out, Anomaly{Index: i, Value: x, Z: z})
		}
	}
	return out
}

// VitalPoint is one parsed, timestamp-ordered vital-sign reading.
type VitalPoint struct {
	RecordedAtUnix int64
	Numeric        float64
}

// Trend is the per-metric summary the analytics endpoint returns: the
// ordered numeric series, the latest/delta pair, and any z-score anomalies.
type Trend struct {
	Metric    string    `json:"metric"`
	Points    []float64 `json:"points"`
	Latest    float64   `json:"latest"`
	Delta     float64   `json:"delta"`
	Anomalies []Anomaly `json:"anomalies"`
}

// BuildTrend sorts points ascending by RecordedAtUnix, extracts the numeric
// series, and computes latest/delta/anomalies. A single point yields
// delta = 0; an empty series yields a zero-value trend with an empty slice.
func BuildTrend(metric string, points []VitalPoint, threshold float64) Trend {
	sorted := make([]VitalPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAtUnix < sorted[j].RecordedAtUnix
	})

	series := make([]float64, len(sorted))
	for i, p := range sorted {
		series[i] = p.Numeric
	}

	t := Trend{Metric: metric, Points: series, Anomalies: ZScoreAnomalies(series, threshold)}
	if len(series) == 0 {
		return t
	}
	t.Latest = series[len(series)-1]
	if len(series) == 1 {
		t.Delta = 0
		return t
	}
	t.Delta = round2(series[len(series)-1] - series[0])
	return t
}

// ReferenceRange is a lab's normal band; either bound may be unbounded.
type ReferenceRange struct {
	Low  *float64
	High *float64
}

var (
	rangeBetween = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*[-\x{2013}]\s*(-?\d+(?:\.\d+)?)\s*$`)
	rangeUpper   = regexp.MustCompile(`^\s*[<\x{2264}]\s*(-?\d+(?:\.\d+)?)\s*$`)
	rangeLower   = regexp.MustCompile(`^\s*[>\x{2265}]\s*(-?\d+(?:\.\d+)?)\s*$`)
)

// ParseReferenceRange accepts "A-B", "A – B" (en-dash), "< A"/"≤ A", and
// "> A"/"≥ A". Anything else parses to {nil, nil}.
func ParseReferenceRange(s string) ReferenceRange {
	if m := rangeBetween.FindStringSubmatch(s); m != nil {
		low, lok := parseFloat(m[1])
		high, hok := parseFloat(m[2])
		if lok && hok {
			return ReferenceRange{Low: &low, High: &high}
		}
	}
	if m := rangeUpper.FindStringSubmatch(s); m != nil {
		if high, ok := parseFloat(m[1]); ok {
			return ReferenceRange{High: &high}
		}
	}
	if m := rangeLower.FindStringSubmatch(s); m != nil {
		if low, ok := parseFloat(m[1]); ok {
			return ReferenceRange{Low: &low}
		}
	}
	return ReferenceRange{}
}

// LabFlagStatus is the tagged outcome of comparing a lab value to its range.
type LabFlagStatus string

const (
	LabHigh    LabFlagStatus = "high"
	LabLow     LabFlagStatus = "low"
	LabNormal  LabFlagStatus = "normal"
	LabUnknown LabFlagStatus = "unknown"
)

// FlagLab compares a numeric lab value against a reference range. A missing
// numeric value or a fully unbounded range yields unknown.
func FlagLab(numeric *float64, rng ReferenceRange) LabFlagStatus {
	if numeric == nil {
		return LabUnknown
	}
	if rng.Low == nil && rng.High == nil {
		return LabUnknown
	}
	if rng.High != nil && *numeric > *rng.High {
		return LabHigh
	}
	if rng.Low != nil && *numeric < *rng.Low {
		return LabLow
	}
	return LabNormal
}

var concerningSymptomPattern = regexp.MustCompile(`(?i)(chest pain|dyspnea|fatigue|syncope|dizziness|palpitation|edema|blurred vision)`)

// IsConcerningSymptom reports whether a free-text symptom string matches
// the fixed concerning-symptom vocabulary.
func IsConcerningSymptom(symptom string) bool {
	return concerningSymptomPattern.MatchString(symptom)
}

// LatestZScore computes the z-score of series[0] against the mean/stddev of
// every point behind it (the "baseline"). series is expected most-recent
// first, matching structuredinput.Builder's trend ordering, so series[0] is
// the newest reading and series[1:] is its history. Used by the AI
// pipeline's risk-flag derivation, which judges the newest reading against
// history rather than against itself. Fewer than 2 prior points, or a
// zero-variance baseline, yields ok=false.
func LatestZScore(series []float64) (z float64, ok bool) {
	if len(series) < 3 {
		return 0, false
	}
	baseline := series[1:]
	latest := series[0]

	mean := 0.0
	for _, x := range baseline {
		mean += x
	}
	mean /= float64(len(baseline))

	variance := 0.0
	for _, x := range baseline {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(baseline))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0, false
	}

	return (latest - mean) / stddev, true
}

// RiskContributor is one named, weighted input to the composite risk score.
type RiskContributor struct {
	Source   string  `json:"source"`
	Weight   float64 `json:"weight"`
	Subscore float64 `json:"subscore"`
	Detail   string  `json:"detail"`
}

// RiskScore is the composite [0,100] score plus its tier and contributors.
type RiskScore struct {
	Score        int               `json:"score"`
	Tier         string            `json:"tier"`
	Contributors []RiskContributor `json:"contributors"`
}

// RiskScoreInput collects everything the composite score needs. LabStatuses
// is every evaluated lab's flag status; RecentSymptoms is the patient's
// recent free-text symptom strings (unanonymized is fine, only regex
// matched, never echoed back).
type RiskScoreInput struct {
	AnomalyCount    int
	ActiveAIFlags   int
	LabStatuses     []LabFlagStatus
	RecentSymptoms  []string
}

// ComputeRiskScore combines the four weighted sub-scores into the composite
// clinical risk score and its tier.
func ComputeRiskScore(in RiskScoreInput) RiskScore {
	vitalSub := clamp(float64(in.AnomalyCount) * 20)
	aiSub := clamp(float64(in.ActiveAIFlags) * 25)

	evaluated, outOfRange := 0, 0
	for _, s := range in.LabStatuses {
		if s == LabUnknown {
			continue
		}
		evaluated++
		if s == LabHigh || s == LabLow {
			outOfRange++
		}
	}
	labSub := 0.0
	if evaluated > 0 {
		labSub = clamp(math.Round(100 * float64(outOfRange) / float64(evaluated)))
	}

	matches := 0
	for _, s := range in.RecentSymptoms {
		if concerningSymptomPattern.MatchString(s) {
			matches++
		}
	}
	symptomSub := clamp(float64(matches) * 25)

	contributors := []RiskContributor{
		{Source: "vital_anomalies", Weight: 0.30, Subscore: vitalSub, Detail: detailCount("anomalous vital reading", in.AnomalyCount)},
		{Source: "ai_risk_flags", Weight: 0.30, Subscore: aiSub, Detail: detailCount("active AI risk flag", in.ActiveAIFlags)},
		{Source: "lab_out_of_range", Weight: 0.25, Subscore: labSub, Detail: detailFraction(outOfRange, evaluated)},
		{Source: "concerning_symptoms", Weight: 0.15, Subscore: symptomSub, Detail: detailCount("concerning symptom match", matches)},
	}

	total := 0.0
	for _, c := range contributors {
		total += c.Weight * c.Subscore
	}
	score := int(math.Round(total))

	return RiskScore{Score: score, Tier: tierFor(score), Contributors: contributors}
}

func tierFor(score int) string {
	switch {
	case score < 25:
		return "low"
	case score < 50:
		return "moderate"
	case score < 75:
		return "high"
	default:
		return "critical"
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func detailCount(noun string, n int) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func detailFraction(outOfRange, evaluated int) string {
	if evaluated == 0 {
		return "no labs evaluated"
	}
	return fmt.Sprintf("%d of %d labs out of range", outOfRange, evaluated)
}
