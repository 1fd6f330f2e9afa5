package strategy

import (
	"stock-backtest/internal/dto"
)

// ConsensusAggregator combines per-model votes into one decision by majority
// vote. Aggregate confidence is the mean confidence of the models voting for
// the winning action.
type ConsensusAggregator struct {
	// tieBreak is the action taken when no action has a strict majority of
	// the top count. Conservative default is HOLD.
	tieBreak dto.Action
}

func NewConsensusAggregator(tieBreak dto.Action) *ConsensusAggregator {
	if tieBreak == "" {
		tieBreak = dto.ActionHold
	}
	return &ConsensusAggregator{tieBreak: tieBreak}
}

// Aggregate produces one decision from the vote map. With no votes at all the
// result is HOLD with zero confidence.
func (a *ConsensusAggregator) Aggregate(votes map[string]dto.ModelVote) dto.ConsensusDecision {
	counts := map[dto.Action]int{}
	confSum := map[dto.Action]float64{}

	for _, v := range votes {
		counts[v.Action]++
		confSum[v.Action] += v.Confidence
	}

	winner := a.tieBreak
	best := 0
	tied := false
	for _, action := range []dto.Action{dto.ActionBuy, dto.ActionSell, dto.ActionHold} {
		c := counts[action]
		if c > best {
			best = c
			winner = action
			tied = false
		} else if c == best && c > 0 {
			tied = true
		}
	}
	if tied || best == 0 {
		winner = a.tieBreak
	}

	confidence := 0.0
	if n := counts[winner]; n > 0 {
		confidence = confSum[winner] / float64(n)
	}

	return dto.ConsensusDecision{
		Action:     winner,
		Confidence: confidence,
		Votes:      votes,
	}
}
