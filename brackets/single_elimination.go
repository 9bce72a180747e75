package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// SingleEliminationGenerator строит сетку на одно поражение.
//
// Раунд 1 получает 2^(numRounds-1) слотов; участники попарно расставляются в
// порядке посева (seed по возрастанию, затем порядок регистрации). Лишние
// слоты при нечётном или не-степени-двойки числе участников остаются пустыми:
// такой матч ждёт ручного решения организатора, автопрохода по bye нет.
type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	participants := params.Participants
	n := len(participants)

	if n < 2 {
		return nil, errors.New("not enough participants to generate a single elimination bracket (minimum 2)")
	}

	seeded := make([]*int, 0, n)
	ordered := sortBySeed(params)
	for _, p := range ordered {
		id := p.ID
		seeded = append(seeded, &id)
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	firstRoundMatches := 1 << uint(numRounds-1)

	matches := make([]*BracketMatch, 0, (1<<uint(numRounds))-1)

	// Раунд 1: последовательные пары (seeded[2i], seeded[2i+1]).
	for m := 1; m <= firstRoundMatches; m++ {
		bm := &BracketMatch{
			UID:          PositionUID(1, m),
			Round:        1,
			OrderInRound: m,
		}
		i1 := (m - 1) * 2
		i2 := i1 + 1
		if i1 < n {
			bm.Participant1ID = seeded[i1]
		}
		if i2 < n {
			bm.Participant2ID = seeded[i2]
		}
		if numRounds > 1 {
			next := PositionUID(2, (m+1)/2)
			bm.NextMatchUID = &next
		}
		matches = append(matches, bm)
	}

	// Последующие раунды: пустые матчи-заготовки, участники придут из
	// предыдущего раунда через процессор результатов.
	for r := 2; r <= numRounds; r++ {
		matchesInRound := firstRoundMatches >> uint(r-1)
		for j := 1; j <= matchesInRound; j++ {
			bm := &BracketMatch{
				UID:          PositionUID(r, j),
				Round:        r,
				OrderInRound: j,
			}
			if r < numRounds {
				next := PositionUID(r+1, (j+1)/2)
				bm.NextMatchUID = &next
			}
			matches = append(matches, bm)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})

	return matches, nil
}

// PositionUID формирует метку позиции winners-сетки: WR{round}M{order}.
func PositionUID(round, order int) string {
	return fmt.Sprintf("WR%dM%d", round, order)
}
