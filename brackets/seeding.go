package brackets

import (
	"sort"

	"github.com/rpx-gg/tournament-service/models"
)

// sortBySeed возвращает участников в порядке посева: явные seed по
// возрастанию, участники без seed - следом, в исходном порядке регистрации.
func sortBySeed(params GenerateBracketParams) []*models.Participant {
	ordered := make([]*models.Participant, len(params.Participants))
	copy(ordered, params.Participants)

	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i].Seed, ordered[j].Seed
		switch {
		case si != nil && sj != nil:
			return *si < *sj
		case si != nil:
			return true
		default:
			return false
		}
	})
	return ordered
}
