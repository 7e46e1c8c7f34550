package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	// время жизни вызова по умолчанию
	DefaultChallengeTTL = 24 * time.Hour
	// окно подавления дублей для пары участников
	DefaultDedupeWindow = 24 * time.Hour
)

// Статус вызова
type ChallengeStatus string

const (
	ChallengeStatusPending   ChallengeStatus = "pending"
	ChallengeStatusAccepted  ChallengeStatus = "accepted"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusDeclined  ChallengeStatus = "declined"
	ChallengeStatusExpired   ChallengeStatus = "expired"
	ChallengeStatusCancelled ChallengeStatus = "cancelled"
)

// IsTerminal - из терминального статуса переходов нет
func (s ChallengeStatus) IsTerminal() bool {
	switch s {
	case ChallengeStatusCompleted, ChallengeStatusDeclined, ChallengeStatusExpired, ChallengeStatusCancelled:
		return true
	}
	return false
}

// IsOpen - pending или accepted
func (s ChallengeStatus) IsOpen() bool {
	return s == ChallengeStatusPending || s == ChallengeStatusAccepted
}

// Асинхронный матч 1v1
type Challenge struct {
	ID              string          `db:"id" json:"id"`
	ChallengerID    string          `db:"challenger_id" json:"challengerId"`
	OpponentID      string          `db:"opponent_id" json:"opponentId"`
	PairKey         string          `db:"pair_key" json:"-"`
	ChallengerScore *int64          `db:"challenger_score" json:"challengerScore,omitempty"`
	OpponentScore   *int64          `db:"opponent_score" json:"opponentScore,omitempty"`
	Status          ChallengeStatus `db:"status" json:"status"`
	WinnerID        *string         `db:"winner_id" json:"winnerId,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	ExpiresAt       time.Time       `db:"expires_at" json:"expiresAt"`
	AcceptedAt      *time.Time      `db:"accepted_at" json:"acceptedAt,omitempty"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// PairKey - ключ неупорядоченной пары участников
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// NewChallenge собирает новый pending вызов, id задает вызывающий
func NewChallenge(id, challengerID, opponentID string, now time.Time, ttl time.Duration) (*Challenge, error) {
	challengerID = strings.TrimSpace(challengerID)
	opponentID = strings.TrimSpace(opponentID)
	if challengerID == "" || opponentID == "" {
		return nil, ErrInvalidParticipant
	}
	if challengerID == opponentID {
		return nil, ErrSelfChallenge
	}
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	now = now.UTC()
	return &Challenge{
		ID:           id,
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		PairKey:      PairKey(challengerID, opponentID),
		Status:       ChallengeStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		UpdatedAt:    now,
	}, nil
}

// IsParticipant проверяет, что id - одна из сторон
func (c *Challenge) IsParticipant(id string) bool {
	return id != "" && (id == c.ChallengerID || id == c.OpponentID)
}

// OtherSide возвращает id соперника для участника
func (c *Challenge) OtherSide(id string) string {
	if id == c.ChallengerID {
		return c.OpponentID
	}
	return c.ChallengerID
}

// PastExpiry - pending вызов, срок которого вышел (sweep мог еще не дойти)
func (c *Challenge) PastExpiry(now time.Time) bool {
	return c.Status == ChallengeStatusPending && now.After(c.ExpiresAt)
}

// BlocksPair - вызов мешает созданию нового для той же пары в окне dedupe
func (c *Challenge) BlocksPair(now time.Time, window time.Duration) bool {
	if !c.Status.IsOpen() {
		return false
	}
	if c.PastExpiry(now) {
		return false
	}
	return c.CreatedAt.After(now.Add(-window))
}

// Accept: pending -> accepted, только оппонент
func (c *Challenge) Accept(callerID string, now time.Time) error {
	if err := c.requireOpponent(callerID); err != nil {
		return err
	}
	if c.Status != ChallengeStatusPending {
		return ErrInvalidTransition
	}
	if c.PastExpiry(now) {
		return ErrChallengeExpired
	}
	now = now.UTC()
	c.Status = ChallengeStatusAccepted
	c.AcceptedAt = &now
	c.UpdatedAt = now
	return nil
}

// Decline: pending -> declined, только оппонент
func (c *Challenge) Decline(callerID string, now time.Time) error {
	if err := c.requireOpponent(callerID); err != nil {
		return err
	}
	if c.Status != ChallengeStatusPending {
		return ErrInvalidTransition
	}
	if c.PastExpiry(now) {
		return ErrChallengeExpired
	}
	c.Status = ChallengeStatusDeclined
	c.UpdatedAt = now.UTC()
	return nil
}

// Cancel: accepted -> cancelled, только автор и пока нет ни одного счета
func (c *Challenge) Cancel(callerID string, now time.Time) error {
	if !c.IsParticipant(callerID) {
		return ErrNotParticipant
	}
	if callerID != c.ChallengerID {
		return ErrWrongRole
	}
	if c.Status != ChallengeStatusAccepted {
		return ErrInvalidTransition
	}
	if c.ChallengerScore != nil || c.OpponentScore != nil {
		return ErrScoresSubmitted
	}
	c.Status = ChallengeStatusCancelled
	c.UpdatedAt = now.UTC()
	return nil
}

// Expire: pending -> expired, если срок вышел
func (c *Challenge) Expire(now time.Time) error {
	if !c.PastExpiry(now) {
		return ErrInvalidTransition
	}
	c.Status = ChallengeStatusExpired
	c.UpdatedAt = now.UTC()
	return nil
}

// SubmitScore записывает счет стороны вызывающего.
// Возвращает true только если этот вызов перевел матч в completed.
// Уже записанный счет не перезаписывается.
func (c *Challenge) SubmitScore(callerID string, score int64, now time.Time) (bool, error) {
	if !c.IsParticipant(callerID) {
		return false, ErrNotParticipant
	}
	if score < 0 {
		return false, ErrInvalidScore
	}
	if c.Status != ChallengeStatusAccepted {
		return false, ErrInvalidTransition
	}

	slot := &c.OpponentScore
	if callerID == c.ChallengerID {
		slot = &c.ChallengerScore
	}
	if *slot != nil {
		return false, ErrAlreadySubmitted
	}
	s := score
	*slot = &s

	now = now.UTC()
	c.UpdatedAt = now
	if c.ChallengerScore == nil || c.OpponentScore == nil {
		return false, nil
	}

	c.Status = ChallengeStatusCompleted
	c.CompletedAt = &now
	c.WinnerID = decideWinner(c)
	return true, nil
}

// строго больший счет побеждает, равенство - ничья (nil)
func decideWinner(c *Challenge) *string {
	switch {
	case *c.ChallengerScore > *c.OpponentScore:
		id := c.ChallengerID
		return &id
	case *c.OpponentScore > *c.ChallengerScore:
		id := c.OpponentID
		return &id
	}
	return nil
}

func (c *Challenge) requireOpponent(callerID string) error {
	if !c.IsParticipant(callerID) {
		return ErrNotParticipant
	}
	if callerID != c.OpponentID {
		return ErrWrongRole
	}
	return nil
}

// Clone - глубокая копия (указатели на счета не разделяются)
func (c *Challenge) Clone() *Challenge {
	cp := *c
	if c.ChallengerScore != nil {
		v := *c.ChallengerScore
		cp.ChallengerScore = &v
	}
	if c.OpponentScore != nil {
		v := *c.OpponentScore
		cp.OpponentScore = &v
	}
	if c.WinnerID != nil {
		v := *c.WinnerID
		cp.WinnerID = &v
	}
	if c.AcceptedAt != nil {
		v := *c.AcceptedAt
		cp.AcceptedAt = &v
	}
	if c.CompletedAt != nil {
		v := *c.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}

// событие жизненного цикла вызова для уведомлений
type ChallengeEvent string

const (
	EventChallengeCreated   ChallengeEvent = "challenge_created"
	EventChallengeAccepted  ChallengeEvent = "challenge_accepted"
	EventChallengeDeclined  ChallengeEvent = "challenge_declined"
	EventChallengeCancelled ChallengeEvent = "challenge_cancelled"
	EventChallengeExpired   ChallengeEvent = "challenge_expired"
	EventChallengeCompleted ChallengeEvent = "challenge_completed"
)
