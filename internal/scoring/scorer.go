// internal/scoring/scorer.go
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// FailedReasoning is the reasoning of a score the model could not produce
const FailedReasoning = "LLM error"

// Scorer rates one business
type Scorer interface {
	Score(ctx context.Context, record types.BusinessRecord) (types.LeadScore, error)
}

const scoreInstruction = "You are a business analyst estimating demand for website development services."

var scoreSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"reasoning":             {Type: genai.TypeString},
		"predicted_roi":         {Type: genai.TypeNumber},
		"predicted_probability": {Type: genai.TypeNumber},
	},
	Required: []string{"reasoning", "predicted_roi", "predicted_probability"},
}

// LeadScorer asks the model how much a business would gain from a website
type LeadScorer struct {
	gen    JSONGenerator
	logger utils.Logger
}

// NewLeadScorer creates a scorer backed by gen
func NewLeadScorer(gen JSONGenerator) *LeadScorer {
	return &LeadScorer{gen: gen, logger: utils.NewComponentLogger("scoring")}
}

func scorePrompt(r types.BusinessRecord) string {
	website := r.Website
	if website == "" {
		website = "none found"
	}
	return "Business:\n" + describe(
		[2]string{"Name", r.Name},
		[2]string{"Region", r.Region},
		[2]string{"Industry", r.Industry},
		[2]string{"Website", website},
		[2]string{"Description", r.Description},
		[2]string{"Reviews", r.ReviewSiteDescription},
	) + `
Consider how much this business would benefit from a new or better website.
Estimate the return on investment of building one as a number from 0 to 100
and the probability that the owner would buy one as a number from 0 to 1.
Answer with JSON holding reasoning, predicted_roi and predicted_probability.`
}

// Score rates a business. A failed model call is not an error: the lead
// gets a zero score with FailedReasoning. Only cancellation is returned.
func (s *LeadScorer) Score(ctx context.Context, record types.BusinessRecord) (types.LeadScore, error) {
	log := s.logger.WithField("business", record.Name)

	text, err := s.gen.GenerateJSON(ctx, scoreInstruction, scorePrompt(record), scoreSchema)
	if err != nil {
		if utils.CodeOf(err) == utils.ErrCodeContextCanceled || ctx.Err() != nil {
			return types.LeadScore{}, utils.WrapError(err, utils.ErrCodeContextCanceled, "scoring interrupted")
		}
		log.Warnf("scoring failed: %v", err)
		return types.LeadScore{Reasoning: FailedReasoning}, nil
	}

	score, err := parseScore(text)
	if err != nil {
		log.Warnf("unusable score: %v", err)
		return types.LeadScore{Reasoning: FailedReasoning}, nil
	}
	log.Debugf("scored roi=%.0f probability=%.2f", score.PredictedROI, score.PredictedProbability)
	return score, nil
}

func parseScore(text string) (types.LeadScore, error) {
	var score types.LeadScore
	if err := json.Unmarshal([]byte(stripFence(text)), &score); err != nil {
		return types.LeadScore{}, fmt.Errorf("parse score json: %w", err)
	}
	score.Reasoning = strings.TrimSpace(score.Reasoning)
	return score.Clamp(), nil
}

// stripFence removes a markdown code fence around a JSON answer
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

// ScoreAll scores records with up to workers calls in flight and returns
// the leads ranked by predicted probability
func ScoreAll(ctx context.Context, scorer Scorer, records []types.BusinessRecord, workers int) ([]types.Lead, error) {
	if workers < 1 {
		workers = 1
	}
	leads := make([]types.Lead, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, record := range records {
		g.Go(func() error {
			score, err := scorer.Score(gctx, record)
			if err != nil {
				return err
			}
			leads[i] = types.Lead{Business: record, Score: score, Status: types.LeadNew}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	types.RankLeads(leads)
	return leads, nil
}
