package brackets

import (
	"context"

	"github.com/rpx-gg/tournament-service/models"
)

// BracketMatch - слот сетки, построенный генератором до записи в БД.
// UID - метка позиции вида "WR1M2"; NextMatchUID/NextLoseMatchUID ссылаются
// на UID матча, куда продвигается победитель/проигравший.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Participant1ID *int
	Participant2ID *int

	NextMatchUID     *string
	NextLoseMatchUID *string
}

type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}
