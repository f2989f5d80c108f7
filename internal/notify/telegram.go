// Package notify pushes report-ready notifications to the teacher.
package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/viva/internal/types"
)

const maxTelegramMessage = 4096

// Telegram delivers finished-report notifications to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier for the given bot token and chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// ReportReady sends a short summary of the finished report. Delivery is
// best effort; failures are logged, never propagated into the pipeline.
func (t *Telegram) ReportReady(report *types.Report) {
	text := FormatReport(report)
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := t.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				slog.Error("send report notification failed",
					"session_id", string(report.SessionID), "error", err)
			}
		}
	}
}

// FormatReport renders the notification message for a finished report.
func FormatReport(report *types.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Exam report ready*\n")
	fmt.Fprintf(&sb, "Session: `%s`\n", report.SessionID)
	if report.Student != nil && report.Student.Email != "" {
		fmt.Fprintf(&sb, "Student: %s\n", report.Student.Email)
	}
	fmt.Fprintf(&sb, "Mastery: %s (confidence %.2f)\n",
		report.Report.MasteryLevel, report.Report.Confidence)
	if report.Report.Summary != "" {
		fmt.Fprintf(&sb, "\n%s", report.Report.Summary)
	}
	return sb.String()
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
