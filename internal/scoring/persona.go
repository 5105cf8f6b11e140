// internal/scoring/persona.go
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// PersonaGenerator drafts a customer persona and outreach for a lead
type PersonaGenerator interface {
	Generate(ctx context.Context, lead types.Lead) (types.PersonaResult, error)
}

const personaInstruction = "You are a marketing strategist who writes short, personal outreach for small businesses."

// personaProfileSchema describes the persona_json object
var personaProfileSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":               {Type: genai.TypeString},
		"age":                {Type: genai.TypeInteger},
		"interests":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"pain_points":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"goals":              {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"preferred_channels": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"name", "age", "interests", "pain_points", "goals", "preferred_channels"},
}

// OutreachWriter asks the model for a persona and one message per channel
type OutreachWriter struct {
	gen      JSONGenerator
	channels []string
	logger   utils.Logger
}

// NewOutreachWriter creates a persona generator. No channels means
// types.DefaultChannels.
func NewOutreachWriter(gen JSONGenerator, channels []string) *OutreachWriter {
	if len(channels) == 0 {
		channels = types.DefaultChannels
	}
	return &OutreachWriter{
		gen:      gen,
		channels: channels,
		logger:   utils.NewComponentLogger("outreach"),
	}
}

// schema returns the response schema with one required string per channel
func (w *OutreachWriter) schema() *genai.Schema {
	contents := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	for _, ch := range w.channels {
		contents.Properties[ch] = &genai.Schema{Type: genai.TypeString}
		contents.Required = append(contents.Required, ch)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"persona_json":     personaProfileSchema,
			"channel_contents": contents,
		},
		Required: []string{"persona_json", "channel_contents"},
	}
}

func (w *OutreachWriter) prompt(lead types.Lead) string {
	b := lead.Business
	return "Business:\n" + describe(
		[2]string{"Name", b.Name},
		[2]string{"Industry", b.Industry},
		[2]string{"Region", b.Region},
		[2]string{"Description", b.Description},
		[2]string{"Why it is a lead", lead.Score.Reasoning},
	) + fmt.Sprintf(`
1. Describe the ideal customer of this business as a persona with name, age,
   interests, pain_points, goals and preferred_channels.
2. Write an outreach message offering website development to the owner for
   each of these channels: %s. Match the tone of each channel.
Answer with JSON holding persona_json and channel_contents keyed by channel.`,
		strings.Join(w.channels, ", "))
}

// Generate drafts the persona. A failed model call is not an error: the
// result carries an empty persona, an "error" channel entry and Error set.
// Only cancellation is returned.
func (w *OutreachWriter) Generate(ctx context.Context, lead types.Lead) (types.PersonaResult, error) {
	log := w.logger.WithFields(map[string]interface{}{"lead_id": lead.ID, "business": lead.Business.Name})

	schema := w.schema()
	text, err := w.gen.GenerateJSON(ctx, personaInstruction, w.prompt(lead), schema)
	if err != nil {
		if utils.CodeOf(err) == utils.ErrCodeContextCanceled || ctx.Err() != nil {
			return types.PersonaResult{}, utils.WrapError(err, utils.ErrCodeContextCanceled, "persona generation interrupted")
		}
		log.Warnf("persona generation failed: %v", err)
		return failedPersona(lead.ID, err), nil
	}

	var result types.PersonaResult
	if err := json.Unmarshal([]byte(stripFence(text)), &result); err != nil {
		log.Warnf("unusable persona: %v", err)
		return failedPersona(lead.ID, err), nil
	}
	result.LeadID = lead.ID

	// keep only the requested channels
	contents := make(map[string]string, len(w.channels))
	for _, ch := range w.channels {
		if v := strings.TrimSpace(result.ChannelContents[ch]); v != "" {
			contents[ch] = v
		}
	}
	result.ChannelContents = contents
	return result, nil
}

func failedPersona(leadID int64, err error) types.PersonaResult {
	msg := "Error: " + err.Error()
	return types.PersonaResult{
		LeadID:          leadID,
		ChannelContents: map[string]string{"error": msg},
		Error:           msg,
	}
}

// GenerateAll drafts personas for leads in order, stopping only on cancellation
func GenerateAll(ctx context.Context, gen PersonaGenerator, leads []types.Lead) ([]types.PersonaResult, error) {
	results := make([]types.PersonaResult, 0, len(leads))
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return results, utils.WrapError(err, utils.ErrCodeContextCanceled, "persona generation interrupted")
		}
		res, err := gen.Generate(ctx, lead)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
