package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"tennisweb/models"
)

// MatchSystemPrompt pins the match completion to strict JSON output
const MatchSystemPrompt = "You are a strict JSON-emitting tennis partner match assistant."

// promptUser is the compact user shape embedded in the match prompt. Only
// compatibility-relevant attributes go in; contact fields and avatars stay
// out of the model's context.
type promptUser struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	SkillLevel   *float64 `json:"skill_level,omitempty"`
	Location     string   `json:"location,omitempty"`
	Gender       string   `json:"gender,omitempty"`
	Age          *int     `json:"age,omitempty"`
	YearsPlaying *int     `json:"years_playing,omitempty"`
	DominantHand string   `json:"dominant_hand,omitempty"`
	BackhandType string   `json:"backhand_type,omitempty"`
	CourtTypes   []string `json:"preferred_court_types,omitempty"`
	MatchTypes   []string `json:"preferred_match_types,omitempty"`
	Intentions   []string `json:"play_intentions,omitempty"`
	Languages    []string `json:"preferred_languages,omitempty"`
}

func simplifyUser(u models.UserWithProfile) promptUser {
	pu := promptUser{ID: u.ID, Username: u.Username}
	if p := u.Profile; p != nil {
		pu.SkillLevel = p.SkillLevel
		pu.Location = p.Location
		pu.Gender = p.Gender
		pu.Age = p.Age
		pu.YearsPlaying = p.YearsPlaying
		pu.DominantHand = p.DominantHand
		pu.BackhandType = p.BackhandType
		pu.CourtTypes = p.PreferredCourtTypes
		pu.MatchTypes = p.PreferredMatchTypes
		pu.Intentions = p.PlayIntentions
		pu.Languages = p.PreferredLanguages
	}
	return pu
}

// BuildMatchPrompt renders the current user and the scored candidate pool
// into the user message for a match completion.
func BuildMatchPrompt(current models.UserWithProfile, candidates []models.Recommendation) string {
	var b strings.Builder

	b.WriteString("CURRENT_USER:\n")
	writeJSONLine(&b, simplifyUser(current))

	b.WriteString("\nCANDIDATES:\n")
	scores := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		entry := struct {
			promptUser
			Score float64 `json:"score"`
		}{simplifyUser(c.User), c.Score}
		writeJSONLine(&b, entry)
		scores = append(scores, c.Score)
	}

	if line := scoreSummary(scores); line != "" {
		b.WriteString("\n" + line + "\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Pick exactly one candidate from CANDIDATES.\n")
	b.WriteString("- Prefer similar skill_level (difference <=1), overlapping court/match preferences, shared play_intentions.\n")
	b.WriteString("- Higher algorithmic score is a useful guide but can be overridden if another candidate has clearly better holistic compatibility.\n")
	b.WriteString("- Respond with ONLY a JSON object: {\"user_id\": <id>, \"reason\": \"<short reason>\"}.\n")
	b.WriteString("- Keep reason concise (<220 chars), highlight 2-3 strongest matching points.\n")
	b.WriteString("\nOutput JSON now:")

	return b.String()
}

func writeJSONLine(b *strings.Builder, v any) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.Write(encoded)
	b.WriteByte('\n')
}

// scoreSummary gives the model the pool's score distribution as advisory
// context. Empty pools and degenerate stats produce no line.
func scoreSummary(scores []float64) string {
	if len(scores) < 2 {
		return ""
	}
	mean, err := stats.Mean(scores)
	if err != nil {
		return ""
	}
	max, err := stats.Max(scores)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("POOL_SCORES: mean=%.3f max=%.3f (advisory context only)", mean, max)
}
