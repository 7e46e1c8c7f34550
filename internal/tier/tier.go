// Package tier сопоставляет счет с уровнем достижения.
package tier

import "challenge_arena/internal/domain"

// Tier - уровень достижения, 0..4
type Tier int

const (
	MinTier Tier = 0
	MaxTier Tier = 4
)

// Policy - нижние границы счета для каждого уровня, по возрастанию
type Policy struct {
	floors [MaxTier + 1]int64
}

// Default - границы 0, 200, 500, 1000, 2000
var Default = Policy{floors: [MaxTier + 1]int64{0, 200, 500, 1000, 2000}}

// NewPolicy собирает политику из пяти неубывающих границ, первая обязана быть 0
func NewPolicy(floors [MaxTier + 1]int64) (Policy, error) {
	if floors[0] != 0 {
		return Policy{}, domain.NewError(domain.KindValidation, "tier 0 floor must be 0")
	}
	for i := 1; i < len(floors); i++ {
		if floors[i] < floors[i-1] {
			return Policy{}, domain.NewError(domain.KindValidation, "tier floors must be non-decreasing")
		}
	}
	return Policy{floors: floors}, nil
}

// Valid - tier в закрытом диапазоне [0, 4]
func Valid(t int) bool {
	return t >= int(MinTier) && t <= int(MaxTier)
}

// Floor возвращает минимальный счет для уровня
func (p Policy) Floor(t Tier) (int64, error) {
	if !Valid(int(t)) {
		return 0, domain.ErrInvalidTier
	}
	return p.floors[t], nil
}

// TierForScore - старший уровень, граница которого <= score.
// Отрицательный счет дает уровень 0.
func (p Policy) TierForScore(score int64) Tier {
	for t := MaxTier; t > MinTier; t-- {
		if score >= p.floors[t] {
			return t
		}
	}
	return MinTier
}

// ScoreQualifies - score >= floor(tier), уровень 0 проходит всегда
func (p Policy) ScoreQualifies(score int64, t Tier) (bool, error) {
	floor, err := p.Floor(t)
	if err != nil {
		return false, err
	}
	if t == MinTier {
		return true, nil
	}
	return score >= floor, nil
}

// Floors возвращает копию границ
func (p Policy) Floors() []int64 {
	out := make([]int64, len(p.floors))
	copy(out, p.floors[:])
	return out
}

// TierForScore по политике Default
func TierForScore(score int64) Tier {
	return Default.TierForScore(score)
}

// ScoreQualifies по политике Default
func ScoreQualifies(score int64, t Tier) (bool, error) {
	return Default.ScoreQualifies(score, t)
}
