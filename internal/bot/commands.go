package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskhub/internal/model"
	"taskhub/internal/recurrence"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

const helpText = `<b>Commands</b>
/newtask &lt;title&gt; | &lt;schedule&gt; — create a recurring task
/tasks — list this chat's recurring tasks
/done &lt;id&gt; — mark the current occurrence completed
/pause &lt;id&gt; / /resume &lt;id&gt; — stop or restart reminders
/delete &lt;id&gt; — remove a task
/history [id] — recent completions (for one task or across all)

<b>Schedule syntax</b>
daily 9:30 [except 0,6]
weekly 1 14:30   (weekday 0-6, 0 = Sunday)
monthly 15 10:00 (day of month 1-31)`

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, "👋 I track recurring tasks and remind this chat when they are due.\n\n"+helpText)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) handleNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	title, ruleSpec, ok := strings.Cut(msg.CommandArguments(), "|")
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return b.sendText(msg.Chat.ID, "Usage: /newtask &lt;title&gt; | &lt;schedule&gt;. See /help for the schedule syntax.")
	}

	input, err := parseRuleSpec(ruleSpec)
	if err != nil {
		return b.sendText(msg.Chat.ID, "⚠️ "+html.EscapeString(err.Error()))
	}
	input.Title = title
	input.ChatID = msg.Chat.ID
	input.CreatorID = user.TelegramID
	input.AssigneeID = user.TelegramID
	input.AssigneeMention = mentionFor(msg.From)

	task, err := b.taskSvc.Create(ctx, input, time.Now().UTC())
	if err != nil {
		if errors.Is(err, recurrence.ErrInvalidRule) {
			return b.sendText(msg.Chat.ID, "⚠️ "+html.EscapeString(err.Error()))
		}
		return err
	}

	sched, err := task.Schedule()
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Task #%d created: <b>%s</b>\n📆 %s\n⏰ next reminder %s",
		task.ID, html.EscapeString(task.TaskTitle), sched.Describe(), b.localTime(task.NextSendAt)))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	tasks, err := b.taskSvc.ListByChat(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "No recurring tasks in this chat yet. Create one with /newtask.")
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Recurring tasks</b>\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		sb.WriteString(formatTaskLine(task, b.loc))
		rows = append(rows, taskButtons(task))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(sb.String()), markup)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := argTaskID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /done &lt;id&gt;")
	}
	return b.completeTask(ctx, msg.Chat.ID, msg.From, taskID)
}

func (b *Bot) handleSetActive(ctx context.Context, msg *tgbotapi.Message, active bool) error {
	taskID, err := argTaskID(msg.CommandArguments())
	if err != nil {
		if active {
			return b.sendText(msg.Chat.ID, "Usage: /resume &lt;id&gt;")
		}
		return b.sendText(msg.Chat.ID, "Usage: /pause &lt;id&gt;")
	}
	return b.setActiveAndReport(ctx, msg.Chat.ID, taskID, active)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := argTaskID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /delete &lt;id&gt;")
	}
	return b.deleteAndReport(ctx, msg.Chat.ID, taskID)
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		recent, err := b.tracker.RecentCompletions(ctx, 10)
		if err != nil {
			return err
		}
		if len(recent) == 0 {
			return b.sendText(msg.Chat.ID, "No completions recorded yet.")
		}
		var sb strings.Builder
		sb.WriteString("🗂 <b>Recent completions</b>\n")
		for _, row := range recent {
			title := row.TaskTitle
			if title == "" {
				title = fmt.Sprintf("task #%d (deleted)", row.RecurringTaskID)
			}
			sb.WriteString(fmt.Sprintf("✅ %s — %s by %s\n",
				html.EscapeString(title), b.localTime(row.CompletedAt), html.EscapeString(row.CompletedByName)))
		}
		return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
	}

	taskID, err := argTaskID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /history [id]")
	}
	completions, err := b.tracker.CompletionsForTask(ctx, taskID)
	if err != nil {
		return err
	}
	if len(completions) == 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No completions for task #%d yet.", taskID))
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗂 <b>Completions for task #%d</b>\n", taskID))
	for _, c := range completions {
		sb.WriteString(fmt.Sprintf("✅ cycle %s — done %s by %s\n",
			b.localTime(c.ScheduledAt), b.localTime(c.CompletedAt), html.EscapeString(c.CompletedByName)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, fmt.Sprintf("Task #%d does not exist.", taskID))
		}
		return err
	}

	if _, err := b.tracker.RecordCompletion(ctx, task.ID, completionCycle(task), user.TelegramID, displayName(from), time.Now().UTC()); err != nil {
		return err
	}
	return b.sendText(chatID, fmt.Sprintf("✅ <b>%s</b> marked completed by %s.",
		html.EscapeString(task.TaskTitle), html.EscapeString(displayName(from))))
}

func (b *Bot) setActiveAndReport(ctx context.Context, chatID int64, taskID uint, active bool) error {
	if err := b.taskSvc.SetActive(ctx, taskID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, fmt.Sprintf("Task #%d does not exist.", taskID))
		}
		return err
	}
	if active {
		return b.sendText(chatID, fmt.Sprintf("▶️ Task #%d resumed.", taskID))
	}
	return b.sendText(chatID, fmt.Sprintf("⏸ Task #%d paused. Reminders stop until /resume.", taskID))
}

func (b *Bot) deleteAndReport(ctx context.Context, chatID int64, taskID uint) error {
	if err := b.taskSvc.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, fmt.Sprintf("Task #%d does not exist.", taskID))
		}
		return err
	}
	return b.sendText(chatID, fmt.Sprintf("🗑 Task #%d deleted. Its completion history is kept.", taskID))
}

// completionCycle picks the occurrence instant a completion answers: the
// last dispatched occurrence, or the upcoming one before the first dispatch.
func completionCycle(task *model.RecurringTask) time.Time {
	if task.LastScheduledAt != nil {
		return *task.LastScheduledAt
	}
	return task.NextSendAt
}

func (b *Bot) localTime(t time.Time) string {
	return t.In(b.loc).Format("2006-01-02 15:04")
}

func formatTaskLine(task model.RecurringTask, loc *time.Location) string {
	var sb strings.Builder
	icon := "🔁"
	if !task.IsActive {
		icon = "⏸"
	}
	sb.WriteString(fmt.Sprintf("%s <b>#%d %s</b>\n", icon, task.ID, html.EscapeString(task.TaskTitle)))
	if sched, err := task.Schedule(); err == nil {
		sb.WriteString(fmt.Sprintf("   📆 %s\n", sched.Describe()))
	}
	if task.IsActive {
		sb.WriteString(fmt.Sprintf("   ⏰ next %s\n", task.NextSendAt.In(loc).Format("2006-01-02 15:04")))
	}
	return sb.String()
}

func taskButtons(task model.RecurringTask) []tgbotapi.InlineKeyboardButton {
	toggle := tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏸ #%d", task.ID), fmt.Sprintf("%s%d", cbPausePrefix, task.ID))
	if !task.IsActive {
		toggle = tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("▶️ #%d", task.ID), fmt.Sprintf("%s%d", cbResumePrefix, task.ID))
	}
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d", task.ID), fmt.Sprintf("%s%d", cbDonePrefix, task.ID)),
		toggle,
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 #%d", task.ID), fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
	)
}

// parseRuleSpec turns the textual schedule from /newtask into task input:
// "daily 9:30 [except 0,6]", "weekly 1 14:30", "monthly 15 10:00".
func parseRuleSpec(spec string) (service.TaskInput, error) {
	var input service.TaskInput
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(spec)))
	if len(fields) == 0 {
		return input, fmt.Errorf("schedule is required, e.g. daily 9:30")
	}

	switch fields[0] {
	case recurrence.FreqDaily:
		if len(fields) < 2 {
			return input, fmt.Errorf("daily schedule needs a time, e.g. daily 9:30")
		}
		hour, minute, err := parseClock(fields[1])
		if err != nil {
			return input, err
		}
		input.Frequency = recurrence.FreqDaily
		input.Hour, input.Minute = hour, minute
		if len(fields) > 2 {
			if len(fields) != 4 || fields[2] != "except" {
				return input, fmt.Errorf("daily exclusions look like: daily 9:30 except 0,6")
			}
			input.ExcludeDays = fields[3]
		}
	case recurrence.FreqWeekly:
		if len(fields) != 3 {
			return input, fmt.Errorf("weekly schedule looks like: weekly 1 14:30")
		}
		day, err := strconv.Atoi(fields[1])
		if err != nil {
			return input, fmt.Errorf("weekday must be a number 0-6, 0 = Sunday")
		}
		hour, minute, err := parseClock(fields[2])
		if err != nil {
			return input, err
		}
		input.Frequency = recurrence.FreqWeekly
		input.DayOfWeek = &day
		input.Hour, input.Minute = hour, minute
	case recurrence.FreqMonthly:
		if len(fields) != 3 {
			return input, fmt.Errorf("monthly schedule looks like: monthly 15 10:00")
		}
		day, err := strconv.Atoi(fields[1])
		if err != nil {
			return input, fmt.Errorf("day of month must be a number 1-31")
		}
		hour, minute, err := parseClock(fields[2])
		if err != nil {
			return input, err
		}
		input.Frequency = recurrence.FreqMonthly
		input.DayOfMonth = &day
		input.Hour, input.Minute = hour, minute
	default:
		return input, fmt.Errorf("unknown frequency %q, expected daily, weekly or monthly", fields[0])
	}

	return input, nil
}

func parseClock(raw string) (int, int, error) {
	h, m, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, 0, fmt.Errorf("time %q must look like 9:30", raw)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

func argTaskID(args string) (uint, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, fmt.Errorf("task id is required")
	}
	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid task id")
	}
	return uint(id), nil
}

func mentionFor(from *tgbotapi.User) string {
	if from.UserName != "" {
		return "@" + from.UserName
	}
	return displayName(from)
}

func displayName(from *tgbotapi.User) string {
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name == "" {
		return from.UserName
	}
	return name
}
