package aiqueue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/medibrief/api/internal/anonymize"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/structuredinput"
)

// Disclaimer is the fixed closing statement every summary and chat answer
// carries, LLM-generated or fallback (§4.8).
const Disclaimer = "This summary is generated to support clinical review and is not a diagnosis. All findings must be verified by a licensed clinician before any care decision is made."

const summarySystemPrompt = `You are a clinical documentation assistant. Given a patient's anonymized vital-sign trends, lab results, and recent symptoms, produce a structured summary with exactly these sections, each on its own line starting with the section name followed by a colon:

Clinical Overview
Vital Sign Trends
Laboratory Findings
Symptom Analysis
Risk Assessment
Recommended Monitoring
Disclaimer

Never state or imply a diagnosis. Base every statement strictly on the provided data. If data for a section is absent, say so plainly.`

const chatSystemPrompt = `You are a clinical assistant answering a question about a single patient using only the anonymized context provided below. Do not speculate beyond the given data, never state or imply a diagnosis, and end your answer with a brief disclaimer that this is not medical advice.`

// Caller invokes an external LLM and returns its raw text response.
type Caller interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RestyCaller calls an OpenAI-compatible chat-completions endpoint.
// Grounded on the external-API client shape used elsewhere in the
// retrieved pack (resty with a base URL, bearer auth, and a bounded
// timeout).
type RestyCaller struct {
	client *resty.Client
	model  string
}

func NewRestyCaller(baseURL, apiKey, model string) *RestyCaller {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(1).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")
	return &RestyCaller{client: client, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *RestyCaller) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out chatCompletionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: 0.25,
			MaxTokens:   1500,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("call llm: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("llm returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// chatUserPrompt anonymizes the structured input (C6) before it is ever
// embedded in a prompt sent to an external LLM provider.
func chatUserPrompt(input *structuredinput.Input, flags models.RiskFlags) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Patient age band: %s\n", anonymize.AgeBand(input.Age))
	fmt.Fprintf(&b, "Blood pressure trend: %v\n", input.BPTrend)
	fmt.Fprintf(&b, "Glucose trend: %v\n", input.GlucoseTrend)
	fmt.Fprintf(&b, "Heart rate trend: %v\n", input.HeartRateTrend)
	fmt.Fprintf(&b, "Weight trend: %v\n", input.WeightTrend)

	b.WriteString("Recent lab values:\n")
	for _, l := range input.RecentLabValues {
		fmt.Fprintf(&b, "- %s: %s\n", l.TestName, l.Value)
	}

	b.WriteString("Recent symptoms (anonymized):\n")
	for _, s := range anonymize.NormalizeSymptoms(input.RecentSymptoms) {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("Risk flags: ")
	b.WriteString(strconv.Itoa(flags.ActiveCount()))
	b.WriteString(" of 4 active.\n")

	return b.String()
}

// RenderFallback produces the deterministic structured text used whenever
// no LLM provider is configured, or the LLM call errors (§4.8 step 3).
func RenderFallback(input *structuredinput.Input, flags models.RiskFlags) string {
	var b strings.Builder

	b.WriteString("Clinical Overview:\n")
	fmt.Fprintf(&b, "Patient age band %s. %d active AI risk flag(s) detected across tracked vitals.\n\n", structuredAgeBand(input), flags.ActiveCount())

	b.WriteString("Vital Sign Trends:\n")
	writeTrendLine(&b, "Blood pressure", input.BPTrend)
	writeTrendLine(&b, "Glucose", input.GlucoseTrend)
	writeTrendLine(&b, "Heart rate", input.HeartRateTrend)
	writeTrendLine(&b, "Weight", input.WeightTrend)
	b.WriteString("\n")

	b.WriteString("Laboratory Findings:\n")
	if len(input.RecentLabValues) == 0 {
		b.WriteString("No recent lab results on file.\n\n")
	} else {
		for _, l := range input.RecentLabValues {
			fmt.Fprintf(&b, "%s: %s\n", l.TestName, l.Value)
		}
		b.WriteString("\n")
	}

	b.WriteString("Symptom Analysis:\n")
	if len(input.RecentSymptoms) == 0 {
		b.WriteString("No recent symptoms reported.\n\n")
	} else {
		for _, s := range input.RecentSymptoms {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	b.WriteString("Risk Assessment:\n")
	writeFlagLine(&b, "High blood pressure trend", flags.HighBloodPressureTrend)
	writeFlagLine(&b, "Rising glucose trend", flags.RisingGlucoseTrend)
	writeFlagLine(&b, "Tachycardia trend", flags.TachycardiaTrend)
	writeFlagLine(&b, "Rapid weight change", flags.RapidWeightChange)
	writeFlagLine(&b, "Concerning symptoms reported", flags.ConcerningSymptoms)
	b.WriteString("\n")

	b.WriteString("Recommended Monitoring:\n")
	if flags.ActiveCount() > 0 {
		b.WriteString("Continue close monitoring of the flagged trends above and schedule a clinician follow-up.\n\n")
	} else {
		b.WriteString("No flagged trends; continue routine monitoring at the standard interval.\n\n")
	}

	b.WriteString("Disclaimer:\n")
	b.WriteString(Disclaimer)

	return b.String()
}

func structuredAgeBand(input *structuredinput.Input) string {
	if input == nil {
		return "unknown"
	}
	low := (input.Age / 5) * 5
	return fmt.Sprintf("%d-%d", low, low+4)
}

func writeTrendLine(b *strings.Builder, label string, series []float64) {
	if len(series) == 0 {
		fmt.Fprintf(b, "%s: no data.\n", label)
		return
	}
	// series is most-recent first (structuredinput.Builder), so series[0] is the latest reading.
	fmt.Fprintf(b, "%s: latest %.2f over %d recorded point(s).\n", label, series[0], len(series))
}

func writeFlagLine(b *strings.Builder, label string, active bool) {
	state := "not flagged"
	if active {
		state = "flagged"
	}
	fmt.Fprintf(b, "%s: %s.\n", label, state)
}
