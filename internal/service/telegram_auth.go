package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultInitDataMaxAge - сколько живет init_data Telegram WebApp
const DefaultInitDataMaxAge = time.Hour

// допустимое расхождение часов в будущее
const initDataClockSkew = 5 * time.Minute

// TelegramUser - поле user из init_data
type TelegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// проверяет HMAC Telegram WebApp init_data и убеждается,
// что auth_date недавний (в течение часа) для предотвращения replay-атак
func ValidateTelegramInitData(initData, botToken string) (url.Values, bool) {
	return ValidateTelegramInitDataAt(initData, botToken, time.Now(), DefaultInitDataMaxAge)
}

// ValidateTelegramInitDataAt - то же с явным временем и сроком жизни
func ValidateTelegramInitDataAt(initData, botToken string, now time.Time, maxAge time.Duration) (url.Values, bool) {
	if botToken == "" {
		return nil, false
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, false
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(initDataHash(values, botToken), provided) {
		return nil, false
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, false
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > maxAge || -age > initDataClockSkew {
		return nil, false
	}

	return values, true
}

// ParseTelegramUser разбирает user из проверенных значений init_data
func ParseTelegramUser(values url.Values) (*TelegramUser, bool) {
	raw := values.Get("user")
	if raw == "" {
		return nil, false
	}
	var u TelegramUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == 0 {
		return nil, false
	}
	return &u, true
}

// Telegram WebApp использует HMAC с ключом "WebAppData"
func initDataHash(values url.Values, botToken string) []byte {
	dataCheck := make([]string, 0, len(values))
	for k, v := range values {
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))
	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(strings.Join(dataCheck, "\n")))
	return h.Sum(nil)
}
