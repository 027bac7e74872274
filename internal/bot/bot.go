package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-service/internal/model"
	"todo-service/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm-delete:"
	cbCancel         = "cancel"
)

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot serves the todo list over Telegram and pushes digests.
type Bot struct {
	api        telegramAPI
	todos      *service.TodoService
	categories *service.CategoryService
	digest     *service.DigestService
	chatID     int64
	logger     *log.Logger

	mu          sync.Mutex
	subscribers map[int64]bool
}

// New connects to Telegram with token. When chatID is non-zero the bot only
// talks to that chat; otherwise it answers private chats and sends digests
// to every chat that ran /start.
func New(token string, chatID int64, todos *service.TodoService, categories *service.CategoryService, digest *service.DigestService, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, chatID, todos, categories, digest, logger)
	b.logger.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return b, nil
}

func newBot(api telegramAPI, chatID int64, todos *service.TodoService, categories *service.CategoryService, digest *service.DigestService, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		api:         api,
		todos:       todos,
		categories:  categories,
		digest:      digest,
		chatID:      chatID,
		logger:      logger,
		subscribers: make(map[int64]bool),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Printf("[error] handle callback: %v", err)
		}
	case update.Message != nil:
		if !b.allowed(update.Message.Chat) {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Printf("[error] handle message: %v", err)
		}
	}
}

func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	if chat == nil {
		return false
	}
	if b.chatID != 0 {
		return chat.ID == b.chatID
	}
	return chat.IsPrivate()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		b.logger.Printf("[info] command from chat %d: /%s %s", msg.Chat.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}
	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}
	return b.sendText(msg.Chat.ID, "I did not get that. Send /add &lt;text&gt; to add a todo or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID)
	case "add":
		return b.handleAdd(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	b.subscribe(msg.Chat.ID)

	name := "there"
	if msg.From != nil && strings.TrimSpace(msg.From.FirstName) != "" {
		name = strings.TrimSpace(msg.From.FirstName)
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your todo list and send you a digest.</b>\n\n%s", escape(name), commandList)
	return b.sendText(msg.Chat.ID, text)
}

const commandList = "Commands:\n" +
	"• /tasks — open todos, highest priority first\n" +
	"• /add &lt;text&gt; — add a todo, #words become tags\n" +
	"• /done &lt;id&gt; — mark a todo completed\n" +
	"• /delete &lt;id&gt; — remove a todo\n" +
	"• /categories — list categories\n" +
	"• /stats — statistics digest\n" +
	"• /help — this list"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+commandList)
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		return b.sendText(msg.Chat.ID, "Tell me what to add: /add buy #milk")
	}

	duplicate, message, err := b.todos.CheckDuplicate(ctx, text)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if duplicate {
		return b.sendText(msg.Chat.ID, escape(message))
	}

	todo, err := b.todos.Create(ctx, model.TodoInput{Text: text})
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	b.logger.Printf("[info] todo created id=%d via chat %d", todo.ID, msg.Chat.ID)

	reply := fmt.Sprintf("➕ Added <code>%d</code> %s", todo.ID, escape(todo.Text))
	if len(todo.Tags) > 0 {
		reply += "\n🏷 " + escape("#"+strings.Join(todo.Tags, " #"))
	}
	return b.sendText(msg.Chat.ID, reply)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me the todo id: /done 12")
	}
	return b.completeAndRefresh(ctx, msg.Chat.ID, id, false)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me the todo id: /delete 12")
	}
	return b.deleteAndRefresh(ctx, msg.Chat.ID, id, false)
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	categories, err := b.categories.List(ctx)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "No categories yet.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("%s <code>%d</code> %s\n", cat.Icon, cat.ID, escape(strings.TrimSpace(cat.Name))))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.digest.Digest(ctx)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendDigest pushes the digest to the configured chat, or to every chat
// that subscribed with /start.
func (b *Bot) SendDigest(ctx context.Context) error {
	chats := b.digestChats()
	if len(chats) == 0 {
		b.logger.Println("[info] digest skipped: no chats")
		return nil
	}

	text, err := b.digest.Digest(ctx)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}
	for _, chatID := range chats {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(chatID, text); err != nil {
			b.logger.Printf("[warn] send digest to %d: %v", chatID, err)
		}
	}
	return nil
}

func (b *Bot) subscribe(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[chatID] = true
}

func (b *Bot) digestChats() []int64 {
	if b.chatID != 0 {
		return []int64{b.chatID}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	chats := make([]int64, 0, len(b.subscribers))
	for id := range b.subscribers {
		chats = append(chats, id)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	return chats
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	todos, err := b.todos.List(ctx, service.Query{Sort: service.SortPriority, Order: service.OrderDesc})
	if err != nil {
		return b.replyError(chatID, err)
	}
	catNames, err := b.categories.Names(ctx)
	if err != nil {
		return b.replyError(chatID, err)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Open todos</b>\n")
	builder.WriteString("Tap a button to complete or delete.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, todo := range todos {
		if todo.Completed {
			continue
		}
		builder.WriteString(service.FormatTodo(todo, catNames))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", todo.ID, shortTitle(todo.Text, 24)), fmt.Sprintf("%s%d", cbCompletePrefix, todo.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, todo.ID)),
		))
	}

	if len(buttons) == 0 {
		return b.sendText(chatID, "Nothing open. Add a todo with /add.")
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || !b.allowed(cb.Message.Chat) {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Printf("[warn] callback ack: %v", err)
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		id, err := parseID(strings.TrimPrefix(data, cbCompletePrefix))
		if err != nil {
			return nil
		}
		return b.completeAndRefresh(ctx, chatID, id, true)
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseID(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, chatID, id)
	case strings.HasPrefix(data, cbConfirmPrefix):
		id, err := parseID(strings.TrimPrefix(data, cbConfirmPrefix))
		if err != nil {
			return nil
		}
		b.dropMessage(chatID, cb.Message.MessageID)
		return b.deleteAndRefresh(ctx, chatID, id, true)
	case data == cbCancel:
		b.dropMessage(chatID, cb.Message.MessageID)
		return nil
	default:
		return nil
	}
}

// dropMessage removes an answered confirmation prompt.
func (b *Bot) dropMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Printf("[warn] delete message %d: %v", messageID, err)
	}
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, id int) error {
	todo, err := b.todos.Get(ctx, id)
	if err != nil {
		return b.replyError(chatID, err)
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete <code>%d</code> %s?", todo.ID, escape(todo.Text)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbConfirmPrefix, todo.ID)),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbCancel),
	))
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) completeAndRefresh(ctx context.Context, chatID int64, id int, refresh bool) error {
	current, err := b.todos.Get(ctx, id)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if current.Completed {
		return b.sendText(chatID, "Already completed.")
	}

	todo, err := b.todos.Update(ctx, id, model.Patch{"completed": json.RawMessage("true")})
	if err != nil {
		return b.replyError(chatID, err)
	}
	b.logger.Printf("[info] todo completed id=%d via chat %d", todo.ID, chatID)
	if err := b.sendText(chatID, fmt.Sprintf("✅ Done: %s", escape(todo.Text))); err != nil {
		return err
	}
	if !refresh {
		return nil
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) deleteAndRefresh(ctx context.Context, chatID int64, id int, refresh bool) error {
	if err := b.todos.Delete(ctx, id); err != nil {
		return b.replyError(chatID, err)
	}
	b.logger.Printf("[info] todo deleted id=%d via chat %d", id, chatID)
	if err := b.sendText(chatID, fmt.Sprintf("🗑 Todo %d deleted.", id)); err != nil {
		return err
	}
	if !refresh {
		return nil
	}
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelTasks:
		return true, b.sendTaskList(ctx, msg.Chat.ID)
	case menuLabelStats:
		return true, b.handleStats(ctx, msg)
	case menuLabelCategories:
		return true, b.handleCategories(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// replyError reports user-facing service errors to the chat and returns
// anything unexpected to the caller.
func (b *Bot) replyError(chatID int64, err error) error {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return b.sendText(chatID, escape(validation.Message))
	case errors.As(err, &notFound):
		return b.sendText(chatID, escape(notFound.Error())+".")
	default:
		if sendErr := b.sendText(chatID, "Something went wrong, try again later."); sendErr != nil {
			b.logger.Printf("[warn] send error reply: %v", sendErr)
		}
		return err
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func parseID(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}
