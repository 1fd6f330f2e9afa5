package strategy

import (
	"context"
	"testing"
	"time"

	"stock-backtest/internal/dto"

	"github.com/stretchr/testify/assert"
)

func timeMustParse(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return parsed
}

func TestConsensusAggregator_Aggregate(t *testing.T) {
	tests := []struct {
		name           string
		tieBreak       dto.Action
		votes          map[string]dto.ModelVote
		wantAction     dto.Action
		wantConfidence float64
	}{
		{
			name:     "three of five buy wins with mean confidence of buyers",
			tieBreak: dto.ActionHold,
			votes: map[string]dto.ModelVote{
				"lstm":     {Action: dto.ActionBuy, Confidence: 0.9},
				"xgboost":  {Action: dto.ActionBuy, Confidence: 0.6},
				"prophet":  {Action: dto.ActionBuy, Confidence: 0.75},
				"arima":    {Action: dto.ActionHold, Confidence: 0.5},
				"ensemble": {Action: dto.ActionHold, Confidence: 0.95},
			},
			wantAction:     dto.ActionBuy,
			wantConfidence: 0.75,
		},
		{
			name:     "tie defaults to hold",
			tieBreak: dto.ActionHold,
			votes: map[string]dto.ModelVote{
				"lstm":    {Action: dto.ActionBuy, Confidence: 0.8},
				"xgboost": {Action: dto.ActionSell, Confidence: 0.8},
			},
			wantAction:     dto.ActionHold,
			wantConfidence: 0,
		},
		{
			name:     "tie break policy is configurable",
			tieBreak: dto.ActionSell,
			votes: map[string]dto.ModelVote{
				"lstm":    {Action: dto.ActionBuy, Confidence: 0.8},
				"xgboost": {Action: dto.ActionSell, Confidence: 0.6},
			},
			wantAction:     dto.ActionSell,
			wantConfidence: 0.6,
		},
		{
			name:           "no votes holds with zero confidence",
			tieBreak:       dto.ActionHold,
			votes:          map[string]dto.ModelVote{},
			wantAction:     dto.ActionHold,
			wantConfidence: 0,
		},
		{
			name:     "unanimous sell",
			tieBreak: dto.ActionHold,
			votes: map[string]dto.ModelVote{
				"lstm":    {Action: dto.ActionSell, Confidence: 0.4},
				"xgboost": {Action: dto.ActionSell, Confidence: 0.6},
			},
			wantAction:     dto.ActionSell,
			wantConfidence: 0.5,
		},
		{
			name:     "three way tie falls back to policy",
			tieBreak: dto.ActionHold,
			votes: map[string]dto.ModelVote{
				"lstm":    {Action: dto.ActionBuy, Confidence: 0.9},
				"xgboost": {Action: dto.ActionSell, Confidence: 0.9},
				"arima":   {Action: dto.ActionHold, Confidence: 0.3},
			},
			wantAction:     dto.ActionHold,
			wantConfidence: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aggregator := NewConsensusAggregator(tt.tieBreak)
			got := aggregator.Aggregate(tt.votes)

			assert.Equal(t, tt.wantAction, got.Action)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.votes, got.Votes)
		})
	}
}

func TestSingleModelStrategy_Decide(t *testing.T) {
	votes := map[string]dto.ModelVote{
		"lstm":    {Action: dto.ActionBuy, Confidence: 0.82},
		"xgboost": {Action: dto.ActionSell, Confidence: 0.4},
	}

	s := NewSingleModelStrategy("lstm")
	decision, err := s.Decide(context.Background(), "ACME", timeMustParse(t, "2026-02-06"), votes)
	assert.NoError(t, err)
	assert.Equal(t, dto.ActionBuy, decision.Action)
	assert.Equal(t, 0.82, decision.Confidence)
	assert.Len(t, decision.Votes, 1)

	// A model with no vote abstains.
	missing := NewSingleModelStrategy("prophet")
	decision, err = missing.Decide(context.Background(), "ACME", timeMustParse(t, "2026-02-06"), votes)
	assert.NoError(t, err)
	assert.Equal(t, dto.ActionHold, decision.Action)
}
