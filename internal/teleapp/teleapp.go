package teleapp

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fachebot/tg2kb/internal/dump"
	"github.com/fachebot/tg2kb/internal/logger"

	"github.com/zelenin/go-tdlib/client"
)

// Conversation 一个可导出的会话（频道或群组，不含私聊）
type Conversation struct {
	ChatID      int64
	Title       string
	Kind        string // "channel" 或 "group"
	MemberCount int32  // 获取失败时为 0
}

type TeleApp struct {
	user       *client.User
	tdClient   *client.Client
	parameters *client.SetTdlibParametersRequest
	usersMu    sync.RWMutex
	usersCache map[int64]*client.User
	chatsMu    sync.RWMutex
	chatsCache map[int64]*client.Chat
}

// NewApp 创建 Telegram 客户端。sessionName 决定授权缓存目录，
// 同名目录存在时后续运行跳过交互式验证。
func NewApp(apiId int32, apiHash, dataDir, sessionName string) *TeleApp {
	_, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	})
	if err != nil {
		logger.Fatalf("[TeleApp] 设置日志级别错误, %s", err)
	}

	parameters := &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   filepath.Join(dataDir, sessionName, "database"),
		FilesDirectory:      filepath.Join(dataDir, sessionName, "files"),
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               apiId,
		ApiHash:             apiHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0.0",
		ApplicationVersion:  "1.0.0",
	}

	return &TeleApp{
		parameters: parameters,
		chatsCache: make(map[int64]*client.Chat),
		usersCache: make(map[int64]*client.User),
	}
}

// Login 登录。首次运行时 tdlib 会在终端交互式请求验证码和二次密码，
// 之后复用授权缓存目录，无需再次验证。
func (app *TeleApp) Login(options ...client.Option) (*client.User, error) {
	if app.user != nil {
		return app.user, nil
	}

	authorizer := client.ClientAuthorizer(app.parameters)
	go client.CliInteractor(authorizer)

	tdlibClient, err := client.NewClient(authorizer, options...)
	if err != nil {
		return nil, err
	}

	me, err := tdlibClient.GetMe()
	if err != nil {
		return nil, err
	}

	app.user = me
	app.tdClient = tdlibClient
	return me, nil
}

func (app *TeleApp) Close() error {
	if app.tdClient == nil {
		return nil
	}
	_, err := app.tdClient.Close()
	return err
}

// ListConversations 列出当前账号可见的频道和群组会话，排除私聊和密聊。
// 任何传输错误都只记录日志并返回空列表，空列表对调用方意味着
// "没有会话" 或 "获取失败"，需要结合日志判断。
func (app *TeleApp) ListConversations() []Conversation {
	chats, err := app.tdClient.GetChats(&client.GetChatsRequest{Limit: 200})
	if err != nil {
		logger.Errorf("[TeleApp] 获取聊天列表失败: %v", err)
		return nil
	}

	conversations := make([]Conversation, 0, len(chats.ChatIds))
	for _, chatId := range chats.ChatIds {
		chat, err := app.getChat(chatId)
		if err != nil {
			logger.Warnf("[TeleApp] 获取聊天信息失败, id: %d, %v", chatId, err)
			continue
		}

		var kind string
		var memberCount int32
		switch chatType := chat.Type.(type) {
		case *client.ChatTypeSupergroup:
			kind = "group"
			if chatType.IsChannel {
				kind = "channel"
			}
			supergroup, err := app.tdClient.GetSupergroup(&client.GetSupergroupRequest{
				SupergroupId: chatType.SupergroupId,
			})
			if err != nil {
				logger.Debugf("[TeleApp] 获取超级群信息失败, id: %d, %v", chat.Id, err)
			} else {
				memberCount = supergroup.MemberCount
			}
		case *client.ChatTypeBasicGroup:
			kind = "group"
			basicGroup, err := app.tdClient.GetBasicGroup(&client.GetBasicGroupRequest{
				BasicGroupId: chatType.BasicGroupId,
			})
			if err != nil {
				logger.Debugf("[TeleApp] 获取群组信息失败, id: %d, %v", chat.Id, err)
			} else {
				memberCount = basicGroup.MemberCount
			}
		default:
			// 私聊和密聊不参与导出
			continue
		}

		conversations = append(conversations, Conversation{
			ChatID:      chat.Id,
			Title:       chat.Title,
			Kind:        kind,
			MemberCount: memberCount,
		})
	}

	return conversations
}

// FetchMessages 抓取指定会话最多 limit 条消息，最新在前，只保留文本消息。
// 仅请求一页历史，不做进一步分页；传输错误记录日志并返回空列表。
func (app *TeleApp) FetchMessages(chatID int64, limit int) []dump.Message {
	if limit <= 0 {
		logger.Errorf("[TeleApp] limit 必须大于 0, 实际: %d", limit)
		return nil
	}

	history, err := app.tdClient.GetChatHistory(&client.GetChatHistoryRequest{
		ChatId:        chatID,
		FromMessageId: 0,
		Offset:        0,
		Limit:         int32(limit),
		OnlyLocal:     false,
	})
	if err != nil {
		logger.Errorf("[TeleApp] 获取消息历史失败, chatId: %d, %v", chatID, err)
		return nil
	}

	messages := collectTextMessages(history.Messages, limit, app.senderName)

	logger.Infof("[TeleApp] 已抓取 %d 条文本消息, chatId: %d", len(messages), chatID)
	return messages
}

// collectTextMessages 按原始顺序（最新在前）挑出非空文本消息，至多 limit 条
func collectTextMessages(history []*client.Message, limit int, senderName func(*client.Message) string) []dump.Message {
	messages := make([]dump.Message, 0, len(history))
	for _, message := range history {
		if message == nil || message.Content == nil {
			continue
		}
		if message.Content.MessageContentType() != "messageText" {
			continue
		}
		text := message.Content.(*client.MessageText)
		if text.Text == nil || text.Text.Text == "" {
			continue
		}

		messages = append(messages, dump.Message{
			ID:   message.Id,
			Type: "message",
			Date: time.Unix(int64(message.Date), 0).UTC().Format(time.RFC3339),
			From: senderName(message),
			Text: text.Text.Text,
		})
		if len(messages) >= limit {
			break
		}
	}

	return messages
}

// senderName 解析消息发送者的显示名称，无法解析时返回 "Unknown"
func (app *TeleApp) senderName(message *client.Message) string {
	if message.SenderId == nil {
		return "Unknown"
	}

	switch sender := message.SenderId.(type) {
	case *client.MessageSenderUser:
		user, err := app.getUser(sender.UserId)
		if err != nil {
			logger.Warnf("[TeleApp] 获取用户信息失败, id: %d, %v", sender.UserId, err)
			return "Unknown"
		}
		name := strings.TrimSpace(user.FirstName + " " + user.LastName)
		if name == "" {
			return "Unknown"
		}
		return name
	case *client.MessageSenderChat:
		chat, err := app.getChat(sender.ChatId)
		if err != nil {
			logger.Warnf("[TeleApp] 获取聊天信息失败, id: %d, %v", sender.ChatId, err)
			return "Unknown"
		}
		if chat.Title == "" {
			return "Unknown"
		}
		return chat.Title
	}
	return "Unknown"
}

func (app *TeleApp) getChat(chatId int64) (*client.Chat, error) {
	// 先尝试读锁读取缓存
	app.chatsMu.RLock()
	chat, ok := app.chatsCache[chatId]
	app.chatsMu.RUnlock()
	if ok {
		return chat, nil
	}

	// 缓存未命中，获取数据
	chat, err := app.tdClient.GetChat(&client.GetChatRequest{ChatId: chatId})
	if err != nil {
		return nil, err
	}

	// 写锁更新缓存
	app.chatsMu.Lock()
	app.chatsCache[chatId] = chat
	app.chatsMu.Unlock()
	return chat, nil
}

func (app *TeleApp) getUser(userId int64) (*client.User, error) {
	// 先尝试读锁读取缓存
	app.usersMu.RLock()
	user, ok := app.usersCache[userId]
	app.usersMu.RUnlock()
	if ok {
		return user, nil
	}

	// 缓存未命中，获取数据
	user, err := app.tdClient.GetUser(&client.GetUserRequest{UserId: userId})
	if err != nil {
		return nil, err
	}

	// 写锁更新缓存
	app.usersMu.Lock()
	app.usersCache[userId] = user
	app.usersMu.Unlock()
	return user, nil
}
