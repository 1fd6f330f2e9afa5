package strategy

import (
	"context"
	"fmt"
	"time"

	"stock-backtest/internal/dto"
)

// DecisionStrategy sources the trade decision for one ticker/day. The three
// run modes differ only in which strategy they install, selected once at run
// initialization rather than branched inside the simulation loop.
type DecisionStrategy interface {
	Name() string
	Decide(ctx context.Context, ticker string, day time.Time, votes map[string]dto.ModelVote) (dto.ConsensusDecision, error)
}

// singleModelStrategy drives a backtest from one model's raw votes. Used by
// the models-comparison mode, which runs one isolated backtest per model.
type singleModelStrategy struct {
	model string
}

func NewSingleModelStrategy(model string) DecisionStrategy {
	return &singleModelStrategy{model: model}
}

func (s *singleModelStrategy) Name() string {
	return fmt.Sprintf("model:%s", s.model)
}

func (s *singleModelStrategy) Decide(_ context.Context, _ string, _ time.Time, votes map[string]dto.ModelVote) (dto.ConsensusDecision, error) {
	vote, ok := votes[s.model]
	if !ok {
		// A model with no vote for the day abstains.
		return dto.ConsensusDecision{Action: dto.ActionHold}, nil
	}
	return dto.ConsensusDecision{
		Action:     vote.Action,
		Confidence: vote.Confidence,
		Votes:      map[string]dto.ModelVote{s.model: vote},
	}, nil
}

// consensusStrategy aggregates all models' votes. Used by the timespan
// comparison and universe scan modes.
type consensusStrategy struct {
	aggregator *ConsensusAggregator
}

func NewConsensusStrategy(aggregator *ConsensusAggregator) DecisionStrategy {
	return &consensusStrategy{aggregator: aggregator}
}

func (s *consensusStrategy) Name() string {
	return "consensus"
}

func (s *consensusStrategy) Decide(_ context.Context, _ string, _ time.Time, votes map[string]dto.ModelVote) (dto.ConsensusDecision, error) {
	return s.aggregator.Aggregate(votes), nil
}
