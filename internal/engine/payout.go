package engine

import (
	"github.com/shopspring/decimal"

	"mobigate-quiz-engine/internal/domain"
)

// Fixed stake split between the community and platform ledgers.
const (
	communityFeePercent = 70
	platformFeePercent  = 30
)

var oneHundred = decimal.NewFromInt(100)

// ComputePayout maps a correct-answer count onto the fixed payout tiers:
// 10 correct pays 100%, 8-9 pays 50%, everything below pays nothing.
// The amount is rounded to whole minor units of the quiz currency.
func ComputePayout(correctCount int, winningAmount decimal.Decimal) domain.PayoutResult {
	var (
		percentage int64
		status     domain.PayoutStatus
	)
	switch {
	case correctCount >= domain.QuizQuestionCount:
		percentage, status = 100, domain.PayoutStatusWon
	case correctCount >= 8:
		percentage, status = 50, domain.PayoutStatusPartialWin
	default:
		percentage, status = 0, domain.PayoutStatusLost
	}

	amount := winningAmount.
		Mul(decimal.NewFromInt(percentage)).
		Div(oneHundred).
		Round(0)

	return domain.PayoutResult{
		CorrectCount: correctCount,
		Percentage:   percentage,
		Amount:       amount,
		Status:       status,
	}
}

// CountCorrect tallies correct answers in an attempt history.
func CountCorrect(answers []domain.AnswerResult) int {
	n := 0
	for _, a := range answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// DistributeStake splits a stake into community and platform shares.
// The community share is floored to whole minor units and the rounding
// remainder goes to the platform share, so the shares always sum
// exactly to the stake.
func DistributeStake(stakeAmount decimal.Decimal) domain.FeeDistribution {
	community := stakeAmount.
		Mul(decimal.NewFromInt(communityFeePercent)).
		Div(oneHundred).
		Floor()

	return domain.FeeDistribution{
		CommunityShare: community,
		PlatformShare:  stakeAmount.Sub(community),
	}
}
