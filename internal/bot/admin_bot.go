package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"challenge_arena/internal/domain"
	"challenge_arena/internal/logger"
	"challenge_arena/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	sweepBatch   = 500
	auditLimit   = 20
	historyLimit = 10
)

// ChallengeOps - операции над вызовами, доступные админам
type ChallengeOps interface {
	Get(ctx context.Context, id string) (*domain.Challenge, error)
	ListPending(ctx context.Context, participantID string) ([]*domain.Challenge, error)
	ListActive(ctx context.Context, participantID string) ([]*domain.Challenge, error)
	ListHistory(ctx context.Context, participantID string, limit int) ([]*domain.Challenge, error)
	ExpireDue(ctx context.Context, batch int) (int, error)
}

// AdminBot обрабатывает команды администраторов через Telegram
type AdminBot struct {
	bot          *tgbotapi.BotAPI
	challenges   ChallengeOps
	attestations *service.AttestationService
	audit        *service.AuditService
	adminIDs     []int64 // Telegram ID пользователей с правами админа
	stopCh       chan struct{}
	wg           sync.WaitGroup
	log          *slog.Logger
}

// NewAdminBot создаёт админ бота поверх уже авторизованного BotAPI.
// bot может быть nil, тогда Start и Stop ничего не делают.
func NewAdminBot(bot *tgbotapi.BotAPI, challenges ChallengeOps, attestations *service.AttestationService, audit *service.AuditService, adminIDs []int64) *AdminBot {
	log := logger.With("component", "admin_bot")
	if bot != nil {
		log.Info("admin bot authorized", "username", bot.Self.UserName)
	}
	return &AdminBot{
		bot:          bot,
		challenges:   challenges,
		attestations: attestations,
		audit:        audit,
		adminIDs:     adminIDs,
		stopCh:       make(chan struct{}),
		log:          log,
	}
}

// Start запускает прослушивание команд, блокирует до Stop
func (b *AdminBot) Start() {
	if b.bot == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			if !b.isAdmin(update.Message.From.ID) || !update.Message.IsCommand() {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop плавно останавливает бота
func (b *AdminBot) Stop() {
	if b.bot == nil {
		return
	}
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response := b.respond(ctx, msg.Command(), msg.CommandArguments())

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

// respond формирует ответ на команду, без обращения к Telegram
func (b *AdminBot) respond(ctx context.Context, command, args string) string {
	args = strings.TrimSpace(args)

	switch command {
	case "start", "help":
		return b.helpMessage()
	case "challenge":
		return b.handleChallenge(ctx, args)
	case "audit":
		return b.handleAudit(ctx, args)
	case "active":
		return b.handleActive(ctx, args)
	case "history":
		return b.handleHistory(ctx, args)
	case "sweep":
		return b.handleSweep(ctx)
	case "signer":
		return b.handleSigner()
	}
	return "❌ Неизвестная команда. Используйте /help для списка команд."
}

func (b *AdminBot) helpMessage() string {
	return `<b>🤖 Команды администратора</b>

<b>⚔️ Вызовы:</b>
/challenge &lt;id&gt; - Состояние вызова
/audit &lt;id&gt; - Журнал вызова
/active &lt;participant_id&gt; - Открытые вызовы участника
/history &lt;participant_id&gt; [лимит] - Завершенные вызовы
/sweep - Истечь просроченные вызовы сейчас

<b>🔏 Подписи:</b>
/signer - Адрес ключа аттестаций`
}

func (b *AdminBot) handleChallenge(ctx context.Context, id string) string {
	if id == "" {
		return "Использование: /challenge <id>"
	}
	c, err := b.challenges.Get(ctx, id)
	if err != nil {
		return errorText(err)
	}
	return formatChallenge(c)
}

func (b *AdminBot) handleAudit(ctx context.Context, id string) string {
	if id == "" {
		return "Использование: /audit <id>"
	}
	logs, err := b.audit.GetChallengeLogs(ctx, id, auditLimit)
	if err != nil {
		return errorText(err)
	}
	if len(logs) == 0 {
		return "Записей нет"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Журнал %s</b>\n\n", html.EscapeString(id))
	for _, l := range logs {
		fmt.Fprintf(&sb, "- %s %s (%s)\n",
			l.CreatedAt.Format("02.01.2006 15:04:05"),
			l.Action,
			html.EscapeString(l.ParticipantID),
		)
	}
	return sb.String()
}

func (b *AdminBot) handleActive(ctx context.Context, participantID string) string {
	if participantID == "" {
		return "Использование: /active <participant_id>"
	}
	pending, err := b.challenges.ListPending(ctx, participantID)
	if err != nil {
		return errorText(err)
	}
	active, err := b.challenges.ListActive(ctx, participantID)
	if err != nil {
		return errorText(err)
	}
	if len(pending)+len(active) == 0 {
		return "Открытых вызовов нет"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Открытые вызовы %s</b>\n\n", html.EscapeString(participantID))
	for _, c := range append(pending, active...) {
		fmt.Fprintf(&sb, "- <code>%s</code> %s vs %s [%s]\n",
			c.ID,
			html.EscapeString(c.ChallengerID),
			html.EscapeString(c.OpponentID),
			c.Status,
		)
	}
	return sb.String()
}

func (b *AdminBot) handleHistory(ctx context.Context, args string) string {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return "Использование: /history <participant_id> [лимит]"
	}
	limit := historyLimit
	if len(parts) > 1 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			return "❌ Неверный лимит"
		}
		limit = n
	}

	list, err := b.challenges.ListHistory(ctx, parts[0], limit)
	if err != nil {
		return errorText(err)
	}
	if len(list) == 0 {
		return "История пуста"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>История %s</b>\n\n", html.EscapeString(parts[0]))
	for _, c := range list {
		fmt.Fprintf(&sb, "- <code>%s</code> [%s] %s\n", c.ID, c.Status, scoreLine(c))
	}
	return sb.String()
}

func (b *AdminBot) handleSweep(ctx context.Context) string {
	total := 0
	for {
		n, err := b.challenges.ExpireDue(ctx, sweepBatch)
		if err != nil {
			return errorText(err)
		}
		total += n
		if n < sweepBatch {
			break
		}
	}
	b.log.Info("manual expiry sweep", "expired", total)
	return fmt.Sprintf("✅ Истекло вызовов: %d", total)
}

func (b *AdminBot) handleSigner() string {
	addr, err := b.attestations.SignerAddress()
	if err != nil {
		return "⚠️ Ключ подписи не настроен"
	}
	return fmt.Sprintf("Подписант: <code>%s</code>", addr.Hex())
}

func formatChallenge(c *domain.Challenge) string {
	winner := "-"
	if c.WinnerID != nil {
		winner = html.EscapeString(*c.WinnerID)
	} else if c.Status == domain.ChallengeStatusCompleted {
		winner = "ничья"
	}

	return fmt.Sprintf(`<b>Вызов</b> <code>%s</code>

- Статус: %s
- Автор: %s
- Соперник: %s
- Счет: %s
- Победитель: %s
- Создан: %s
- Истекает: %s`,
		c.ID,
		c.Status,
		html.EscapeString(c.ChallengerID),
		html.EscapeString(c.OpponentID),
		scoreLine(c),
		winner,
		c.CreatedAt.Format("02.01.2006 15:04"),
		c.ExpiresAt.Format("02.01.2006 15:04"),
	)
}

func scoreLine(c *domain.Challenge) string {
	return scoreOrDash(c.ChallengerScore) + ":" + scoreOrDash(c.OpponentScore)
}

func scoreOrDash(s *int64) string {
	if s == nil {
		return "-"
	}
	return strconv.FormatInt(*s, 10)
}

func errorText(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return "❌ " + html.EscapeString(de.Error())
	}
	return fmt.Sprintf("❌ Ошибка: %s", html.EscapeString(err.Error()))
}
