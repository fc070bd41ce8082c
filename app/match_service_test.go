package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennisweb/ai"
	"tennisweb/internal/config"
	"tennisweb/internal/errors"
	"tennisweb/models"
	"tennisweb/ports"
)

type fakeBackend struct {
	profile    models.UserWithProfile
	candidates []models.Recommendation
	topPick    *models.Recommendation

	gotExclude []int64
	gotLimit   int
}

func (f *fakeBackend) FetchProfile(ctx context.Context) (*models.UserWithProfile, error) {
	p := f.profile
	return &p, nil
}

func (f *fakeBackend) Recommend(ctx context.Context, exclude []int64) (*models.Recommendation, error) {
	f.gotExclude = exclude
	if f.topPick == nil {
		return nil, errors.NoCandidates()
	}
	return f.topPick, nil
}

func (f *fakeBackend) Candidates(ctx context.Context, exclude []int64, limit int) ([]models.Recommendation, error) {
	f.gotExclude = exclude
	f.gotLimit = limit
	return f.candidates, nil
}

type fakeLLM struct {
	reply     string
	err       error
	gotTurns  []models.ChatTurn
	gotTemp   float64
	gotTokens int
}

func (f *fakeLLM) Complete(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int) (string, error) {
	f.gotTurns = turns
	f.gotTemp = temperature
	f.gotTokens = maxTokens
	return f.reply, f.err
}

func (f *fakeLLM) Stream(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int, sink ports.TokenSink) error {
	f.gotTurns = turns
	if f.err != nil {
		return f.err
	}
	return sink(f.reply)
}

func candidate(id int64, username string, score float64) models.Recommendation {
	return models.Recommendation{
		User:  models.UserWithProfile{ID: id, Username: username},
		Score: score,
	}
}

func newMatchService(llm ports.LLMClient) *MatchService {
	resolver := ai.NewResolver(config.AIConfig{
		AppOpenAIKey:  "sk-test",
		OpenRouterKey: "sk-or-test",
		OpenAIModel:   "gpt-4o-mini",
		SiteURL:       "https://tennisweb.app",
	})
	return NewMatchService(llm, resolver, 0.7, 500, zerolog.Nop())
}

func TestNextAISuccess(t *testing.T) {
	be := &fakeBackend{
		profile:    models.UserWithProfile{ID: 1, Username: "me"},
		candidates: []models.Recommendation{candidate(5, "rafa", 0.9), candidate(6, "iga", 0.8)},
	}
	llm := &fakeLLM{reply: `{"user_id": 6, "reason": "closest skill match"}`}
	svc := newMatchService(llm)

	exclude := models.NewExclusionSet(2, 3)
	result, err := svc.NextAI(context.Background(), be, exclude, 0, "")
	require.NoError(t, err)

	assert.Equal(t, int64(6), result.User.ID)
	assert.Equal(t, 0.8, result.Score, "score comes from the backend, not the model")
	assert.Equal(t, "closest skill match", result.Reason)
	assert.Equal(t, models.ModeAI, result.Mode)
	assert.Equal(t, "gpt-4o-mini", result.Model)

	assert.Equal(t, []int64{2, 3}, be.gotExclude, "exclusions forwarded to the backend")
	assert.Equal(t, 8, be.gotLimit, "default pool size")
	assert.Equal(t, 2, exclude.Len(), "the caller owns the set; the service never grows it")
}

func TestNextAIPromptContents(t *testing.T) {
	skill := 4.0
	be := &fakeBackend{
		profile: models.UserWithProfile{
			ID: 1, Username: "me",
			Profile: &models.Profile{SkillLevel: &skill, Location: "Lisbon"},
		},
		candidates: []models.Recommendation{candidate(5, "rafa", 0.9)},
	}
	llm := &fakeLLM{reply: `{"user_id": 5, "reason": "ok"}`}
	svc := newMatchService(llm)

	_, err := svc.NextAI(context.Background(), be, models.NewExclusionSet(), 0, "")
	require.NoError(t, err)

	require.Len(t, llm.gotTurns, 2)
	assert.Equal(t, "system", llm.gotTurns[0].Role)
	assert.Equal(t, ai.MatchSystemPrompt, llm.gotTurns[0].Content)
	assert.Contains(t, llm.gotTurns[1].Content, "CURRENT_USER:")
	assert.Contains(t, llm.gotTurns[1].Content, "CANDIDATES:")
	assert.Contains(t, llm.gotTurns[1].Content, `"rafa"`)
	assert.Contains(t, llm.gotTurns[1].Content, "Lisbon")
	assert.Equal(t, 0.7, llm.gotTemp)
	assert.Equal(t, 500, llm.gotTokens)
}

func TestNextAIEmptyPool(t *testing.T) {
	be := &fakeBackend{profile: models.UserWithProfile{ID: 1}}
	svc := newMatchService(&fakeLLM{})

	_, err := svc.NextAI(context.Background(), be, models.NewExclusionSet(), 8, "")
	assert.True(t, errors.Is(err, errors.CodeNoCandidates))
}

func TestNextAIHallucinatedChoice(t *testing.T) {
	be := &fakeBackend{
		profile:    models.UserWithProfile{ID: 1},
		candidates: []models.Recommendation{candidate(5, "rafa", 0.9)},
	}
	llm := &fakeLLM{reply: `{"user_id": 999, "reason": "made up"}`}
	svc := newMatchService(llm)

	exclude := models.NewExclusionSet()
	_, err := svc.NextAI(context.Background(), be, exclude, 0, "")

	require.True(t, errors.Is(err, errors.CodeChoiceNotInPool))
	assert.Contains(t, errors.GetDetail(err), "user_id=999")
	assert.Contains(t, errors.GetDetail(err), "[5]")
	assert.Zero(t, exclude.Len())
}

func TestNextAIParseFailure(t *testing.T) {
	be := &fakeBackend{
		profile:    models.UserWithProfile{ID: 1},
		candidates: []models.Recommendation{candidate(5, "rafa", 0.9)},
	}
	llm := &fakeLLM{reply: "I cannot answer in JSON, sorry."}
	svc := newMatchService(llm)

	_, err := svc.NextAI(context.Background(), be, models.NewExclusionSet(), 0, "")
	require.True(t, errors.Is(err, errors.CodeLLMParseError))
	assert.Equal(t, "I cannot answer in JSON, sorry.", errors.GetDetail(err))
}

func TestNextAIAlternativeModel(t *testing.T) {
	be := &fakeBackend{
		profile:    models.UserWithProfile{ID: 1},
		candidates: []models.Recommendation{candidate(5, "rafa", 0.9)},
	}
	llm := &fakeLLM{reply: `{"user_id": 5, "reason": "ok"}`}
	svc := newMatchService(llm)

	result, err := svc.NextAI(context.Background(), be, models.NewExclusionSet(), 0, "grok")
	require.NoError(t, err)
	assert.Equal(t, "x-ai/grok-4-fast", result.Model, "resolved model id is reported, not the alias")
}

func TestNextAlgorithmic(t *testing.T) {
	pick := candidate(9, "iga", 0.77)
	be := &fakeBackend{topPick: &pick}
	svc := newMatchService(&fakeLLM{})

	exclude := models.NewExclusionSet(1)
	result, err := svc.NextAlgorithmic(context.Background(), be, exclude)
	require.NoError(t, err)

	assert.Equal(t, int64(9), result.User.ID)
	assert.Equal(t, models.ModeAlgorithmic, result.Mode)
	assert.Empty(t, result.Reason)
	assert.Empty(t, result.Model)
	assert.Equal(t, []int64{1}, be.gotExclude)
	assert.Equal(t, 1, exclude.Len())
}

func TestNextAlgorithmicEmptyPool(t *testing.T) {
	be := &fakeBackend{}
	svc := newMatchService(&fakeLLM{})

	_, err := svc.NextAlgorithmic(context.Background(), be, models.NewExclusionSet())
	assert.True(t, errors.Is(err, errors.CodeNoCandidates))
}
