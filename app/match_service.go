package app

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tennisweb/ai"
	"tennisweb/internal/errors"
	"tennisweb/models"
	"tennisweb/ports"
)

const (
	defaultCandidateLimit = 8
)

// MatchService orchestrates partner recommendations. The backend owns
// scoring; this service owns the AI selection flow: fetch context, resolve a
// provider, ask for a decision, and verify the decision against the real
// candidate pool before trusting it.
type MatchService struct {
	llm         ports.LLMClient
	resolver    *ai.Resolver
	temperature float64
	maxTokens   int
	log         zerolog.Logger
}

func NewMatchService(llm ports.LLMClient, resolver *ai.Resolver, temperature float64, maxTokens int, log zerolog.Logger) *MatchService {
	return &MatchService{
		llm:         llm,
		resolver:    resolver,
		temperature: temperature,
		maxTokens:   maxTokens,
		log:         log.With().Str("component", "match").Logger(),
	}
}

// NextAlgorithmic returns the backend's top-scored candidate outside the
// exclusion set. The set is caller-owned; recording the shown user is the
// caller's decision, not the service's.
func (s *MatchService) NextAlgorithmic(ctx context.Context, be ports.MatchBackend, exclude *models.ExclusionSet) (*models.MatchResult, error) {
	rec, err := be.Recommend(ctx, exclude.IDs())
	if err != nil {
		return nil, err
	}
	return &models.MatchResult{
		User:  rec.User,
		Score: rec.Score,
		Mode:  models.ModeAlgorithmic,
	}, nil
}

// NextAI asks an LLM to pick the best partner from a scored candidate pool.
// The chosen id must name a fetched candidate; a hallucinated id is a typed
// failure, never a silently invented match.
func (s *MatchService) NextAI(ctx context.Context, be ports.MatchBackend, exclude *models.ExclusionSet, limit int, modelName string) (*models.MatchResult, error) {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	if modelName == "" {
		modelName = ai.DefaultModelName
	}

	var (
		profile    *models.UserWithProfile
		candidates []models.Recommendation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = be.FetchProfile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		candidates, err = be.Candidates(gctx, exclude.IDs(), limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.NoCandidates()
	}

	provider, err := s.resolver.ResolveMatch(modelName)
	if err != nil {
		return nil, err
	}

	turns := []models.ChatTurn{
		{Role: "system", Content: ai.MatchSystemPrompt},
		{Role: "user", Content: ai.BuildMatchPrompt(*profile, candidates)},
	}
	raw, err := s.llm.Complete(ctx, provider, turns, s.temperature, s.maxTokens)
	if err != nil {
		return nil, err
	}

	decision, err := ai.ExtractDecision(raw)
	if err != nil {
		s.log.Warn().Str("model", provider.Model).Msg("match decision parse failed")
		return nil, err
	}

	chosen, ok := findCandidate(candidates, decision.UserID)
	if !ok {
		return nil, errors.ChoiceNotInPool(decision.UserID, candidateIDs(candidates))
	}

	return &models.MatchResult{
		User:   chosen.User,
		Score:  chosen.Score,
		Reason: decision.Reason,
		Mode:   models.ModeAI,
		Model:  provider.Model,
	}, nil
}

func findCandidate(pool []models.Recommendation, userID int64) (models.Recommendation, bool) {
	for _, c := range pool {
		if c.User.ID == userID {
			return c, true
		}
	}
	return models.Recommendation{}, false
}

func candidateIDs(pool []models.Recommendation) []int64 {
	ids := make([]int64, len(pool))
	for i, c := range pool {
		ids[i] = c.User.ID
	}
	return ids
}
