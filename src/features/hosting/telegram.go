package hosting

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/features/importing"
	"github.com/nvall/sitevault/src/features/jobs"
	"github.com/nvall/sitevault/src/features/locations"
)

// TelegramBot answers status queries and pushes job-completion notices to
// users listed in the config. Chats are remembered from the first authorized
// interaction, so notifications reach whoever has talked to the bot.
type TelegramBot struct {
	bot              *tgbotapi.BotAPI
	config           *config.Manager
	locationsService *locations.Service
	importingService *importing.Service
	jobService       *jobs.Service
	updates          tgbotapi.UpdatesChannel
	stopChan         chan struct{}

	chatMu     sync.Mutex
	knownChats map[int64]struct{}
}

// NewTelegramBot creates a new Telegram bot instance
func NewTelegramBot(cfg *config.Manager, locationsService *locations.Service, importingService *importing.Service, jobService *jobs.Service) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}
	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := bot.GetUpdatesChan(updateConfig)

	return &TelegramBot{
		bot:              bot,
		config:           cfg,
		locationsService: locationsService,
		importingService: importingService,
		jobService:       jobService,
		updates:          updates,
		stopChan:         make(chan struct{}),
		knownChats:       make(map[int64]struct{}),
	}, nil
}

// Start begins listening for Telegram updates
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update := <-t.updates:
			if update.Message != nil {
				go t.handleMessage(update)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			return
		}
	}
}

// Stop gracefully stops the bot
func (t *TelegramBot) Stop() {
	close(t.stopChan)
}

// NotifyJobDone implements jobs.Notifier. It pushes a completion notice to
// every chat that has talked to the bot.
func (t *TelegramBot) NotifyJobDone(job *jobs.Job) {
	var icon string
	switch job.Status {
	case jobs.JobStatusCompleted:
		icon = "✅"
	case jobs.JobStatusCancelled:
		icon = "⏹️"
	default:
		icon = "❌"
	}

	text := fmt.Sprintf("%s *%s* — %s", icon, job.Name, job.Status)
	if job.Message != "" {
		text += "\n" + job.Message
	}
	if job.Error != "" {
		text += "\nError: " + job.Error
	}

	t.chatMu.Lock()
	chats := make([]int64, 0, len(t.knownChats))
	for chatID := range t.knownChats {
		chats = append(chats, chatID)
	}
	t.chatMu.Unlock()

	for _, chatID := range chats {
		t.sendMessage(chatID, text)
	}
}

// handleMessage processes incoming messages
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	allowedUsers := t.config.Get().Telegram.AllowedUsers
	if len(allowedUsers) == 0 {
		slog.Warn("No allowed users configured", "chat_id", chatID)
		t.sendMessage(chatID, "Access denied: no users configured. Please add users to the config.")
		return
	}

	username := message.From.UserName
	if username == "" {
		username = message.From.FirstName
		if message.From.LastName != "" {
			username += " " + message.From.LastName
		}
	}
	if !slices.Contains(allowedUsers, username) {
		slog.Warn("Unauthorized user", "username", username, "chat_id", chatID)
		t.sendMessage(chatID, "Unknown user, please add your user to the config")
		return
	}

	t.chatMu.Lock()
	t.knownChats[chatID] = struct{}{}
	t.chatMu.Unlock()

	if !message.IsCommand() {
		t.sendMessage(chatID, "Send /help for available commands.")
		return
	}

	switch message.Command() {
	case "status":
		t.handleStatus(chatID)
	case "imports":
		t.handleImports(chatID)
	case "jobs":
		t.handleJobs(chatID)
	case "help", "start":
		t.sendMessage(chatID, strings.Join([]string{
			"*Sitevault commands*",
			"/status — catalog counts",
			"/imports — recent import runs",
			"/jobs — running and recent jobs",
		}, "\n"))
	default:
		t.sendMessage(chatID, "Unknown command. Send /help for available commands.")
	}
}

func (t *TelegramBot) handleStatus(chatID int64) {
	stats, err := t.locationsService.GetStats(context.Background())
	if err != nil {
		t.sendMessage(chatID, "Failed to read catalog stats: "+err.Error())
		return
	}
	t.sendMessage(chatID, fmt.Sprintf("📍 Locations: %d\n🗂 Media files: %d", stats.Locations, stats.Media))
}

func (t *TelegramBot) handleImports(chatID int64) {
	manifests, err := t.importingService.ListManifests()
	if err != nil {
		t.sendMessage(chatID, "Failed to list imports: "+err.Error())
		return
	}
	if len(manifests) == 0 {
		t.sendMessage(chatID, "No import runs recorded.")
		return
	}

	var b strings.Builder
	b.WriteString("*Recent imports*\n")
	for i, m := range manifests {
		if i >= 10 {
			break
		}
		line := fmt.Sprintf("`%s` %s — %s", m.ID[:8], m.Location.Name, m.Phase)
		if m.Summary != nil {
			line += fmt.Sprintf(" (%d/%d imported, %d dup, %d err)",
				m.Summary.Imported, m.Summary.TotalFiles, m.Summary.Duplicates, m.Summary.Errored)
		}
		b.WriteString(line + "\n")
	}
	t.sendMessage(chatID, b.String())
}

func (t *TelegramBot) handleJobs(chatID int64) {
	allJobs := t.jobService.GetJobs()
	if len(allJobs) == 0 {
		t.sendMessage(chatID, "No jobs.")
		return
	}

	var b strings.Builder
	b.WriteString("*Jobs*\n")
	for i, job := range allJobs {
		if i >= 10 {
			break
		}
		b.WriteString(fmt.Sprintf("`%s` %s — %s (%d%%)\n", job.ID[:8], job.Name, job.Status, job.Progress))
	}
	t.sendMessage(chatID, b.String())
}

func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send Telegram message", "error", err, "chat_id", chatID)
	}
}
