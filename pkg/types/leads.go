// pkg/types/leads.go
package types

import (
	"sort"
	"time"
)

// LeadStatus tracks where a lead is in the outreach funnel
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadSelected  LeadStatus = "selected"
	LeadContacted LeadStatus = "contacted"
)

// LeadScore is the model's estimate of how much a business would gain from
// a website. PredictedROI is in [0,100], PredictedProbability in [0,1].
type LeadScore struct {
	Reasoning            string  `json:"reasoning" yaml:"reasoning"`
	PredictedROI         float64 `json:"predicted_roi" yaml:"predicted_roi"`
	PredictedProbability float64 `json:"predicted_probability" yaml:"predicted_probability"`
}

// Clamp forces the numbers into their valid ranges
func (s LeadScore) Clamp() LeadScore {
	s.PredictedROI = clamp(s.PredictedROI, 0, 100)
	s.PredictedProbability = clamp(s.PredictedProbability, 0, 1)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lead is a scored business
type Lead struct {
	ID        int64          `json:"id,omitempty"`
	Business  BusinessRecord `json:"business"`
	Score     LeadScore      `json:"score"`
	Status    LeadStatus     `json:"status"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// RankLeads orders leads by predicted probability, highest first. Ties keep
// their input order.
func RankLeads(leads []Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].Score.PredictedProbability > leads[j].Score.PredictedProbability
	})
}

// Outreach channels
const (
	ChannelEmail     = "email"
	ChannelInstagram = "instagram"
	ChannelTikTok    = "tiktok"
)

// DefaultChannels are the channels outreach content is written for
var DefaultChannels = []string{ChannelEmail, ChannelInstagram, ChannelTikTok}

// Persona describes the ideal customer of a lead's business
type Persona struct {
	Name              string   `json:"name"`
	Age               int      `json:"age"`
	Interests         []string `json:"interests"`
	PainPoints        []string `json:"pain_points"`
	Goals             []string `json:"goals"`
	PreferredChannels []string `json:"preferred_channels"`
}

// PersonaResult is the persona and per-channel content for one lead
type PersonaResult struct {
	LeadID          int64             `json:"lead_id"`
	Persona         Persona           `json:"persona_json"`
	ChannelContents map[string]string `json:"channel_contents"`
	Error           string            `json:"error,omitempty"`
}
