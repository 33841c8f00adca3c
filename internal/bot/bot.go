package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

const (
	cbDonePrefix   = "done:"
	cbPausePrefix  = "pause:"
	cbResumePrefix = "resume:"
	cbDeletePrefix = "delete:"
)

// Bot aggregates the Telegram API with the recurring-task services. It is
// both the management surface (commands) and the delivery channel for
// reminders (SendReminder).
type Bot struct {
	api      *tgbotapi.BotAPI
	userRepo *repository.UserRepository
	taskSvc  *service.TaskService
	tracker  *service.CompletionTracker
	loc      *time.Location
	log      zerolog.Logger
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, tracker *service.CompletionTracker, loc *time.Location, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log = log.With().Str("component", "bot").Logger()
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:      api,
		userRepo: userRepo,
		taskSvc:  taskSvc,
		tracker:  tracker,
		loc:      loc,
		log:      log,
	}, nil
}

// SendReminder delivers one reminder message to its chat. Safe to call
// again for the same occurrence; duplicates are tolerated downstream.
func (b *Bot) SendReminder(ctx context.Context, chatID int64, mention, title string) error {
	text := fmt.Sprintf("🔔 %s, reminder: <b>%s</b>", html.EscapeString(mention), html.EscapeString(title))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.IsCommand() {
				continue
			}
			if err := b.handleCommand(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle command")
			}
		}
	}

	return nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	b.log.Info().Int64("user", msg.From.ID).Str("command", msg.Command()).Msg("command received")

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newtask":
		return b.handleNewTask(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "pause":
		return b.handleSetActive(ctx, msg, false)
	case "resume":
		return b.handleSetActive(ctx, msg, true)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "history":
		return b.handleHistory(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		taskID, err := parseTaskID(data, cbDonePrefix)
		if err != nil {
			return nil
		}
		return b.completeTask(ctx, chatID, cb.From, taskID)
	case strings.HasPrefix(data, cbPausePrefix):
		taskID, err := parseTaskID(data, cbPausePrefix)
		if err != nil {
			return nil
		}
		return b.setActiveAndReport(ctx, chatID, taskID, false)
	case strings.HasPrefix(data, cbResumePrefix):
		taskID, err := parseTaskID(data, cbResumePrefix)
		if err != nil {
			return nil
		}
		return b.setActiveAndReport(ctx, chatID, taskID, true)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.deleteAndReport(ctx, chatID, taskID)
	default:
		return nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse task id %q: %w", raw, err)
	}
	return uint(id), nil
}
