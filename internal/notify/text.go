package notify

import (
	"fmt"

	"challenge_arena/internal/domain"
)

// Text - короткий человекочитаемый текст события для получателя
func Text(event domain.ChallengeEvent, c *domain.Challenge, recipient string) string {
	other := c.OtherSide(recipient)
	switch event {
	case domain.EventChallengeCreated:
		return fmt.Sprintf("%s challenged you. Accept before %s.", other, c.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	case domain.EventChallengeAccepted:
		return fmt.Sprintf("%s accepted your challenge. Play and submit your score.", other)
	case domain.EventChallengeDeclined:
		return fmt.Sprintf("%s declined your challenge.", other)
	case domain.EventChallengeCancelled:
		return fmt.Sprintf("%s cancelled the challenge.", other)
	case domain.EventChallengeExpired:
		return fmt.Sprintf("Your challenge to %s expired.", other)
	case domain.EventChallengeCompleted:
		mine, theirs := scoresFor(c, recipient)
		switch {
		case c.WinnerID == nil:
			return fmt.Sprintf("Draw against %s: %d to %d.", other, mine, theirs)
		case *c.WinnerID == recipient:
			return fmt.Sprintf("You won against %s: %d to %d.", other, mine, theirs)
		default:
			return fmt.Sprintf("You lost against %s: %d to %d.", other, mine, theirs)
		}
	}
	return string(event)
}

func scoresFor(c *domain.Challenge, recipient string) (int64, int64) {
	var ch, op int64
	if c.ChallengerScore != nil {
		ch = *c.ChallengerScore
	}
	if c.OpponentScore != nil {
		op = *c.OpponentScore
	}
	if recipient == c.ChallengerID {
		return ch, op
	}
	return op, ch
}
