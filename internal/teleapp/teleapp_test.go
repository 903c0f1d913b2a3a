package teleapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zelenin/go-tdlib/client"
)

func textMessage(id int64, date int32, text string) *client.Message {
	return &client.Message{
		Id:      id,
		Date:    date,
		Content: &client.MessageText{Text: &client.FormattedText{Text: text}},
	}
}

func photoMessage(id int64) *client.Message {
	return &client.Message{Id: id, Content: &client.MessagePhoto{}}
}

func fixedSender(*client.Message) string {
	return "测试发送者"
}

func TestCollectTextMessages(t *testing.T) {
	tests := []struct {
		name    string
		history []*client.Message
		limit   int
		wantIDs []int64
	}{
		{
			name: "保留原始顺序",
			history: []*client.Message{
				textMessage(3, 1700000300, "三"),
				textMessage(2, 1700000200, "二"),
				textMessage(1, 1700000100, "一"),
			},
			limit:   10,
			wantIDs: []int64{3, 2, 1},
		},
		{
			name: "跳过非文本消息",
			history: []*client.Message{
				textMessage(5, 1700000500, "文本"),
				photoMessage(4),
				textMessage(3, 1700000300, "再来一条"),
			},
			limit:   10,
			wantIDs: []int64{5, 3},
		},
		{
			name: "跳过空文本",
			history: []*client.Message{
				textMessage(5, 1700000500, ""),
				textMessage(4, 1700000400, "有内容"),
				{Id: 3},
			},
			limit:   10,
			wantIDs: []int64{4},
		},
		{
			name: "limit截断",
			history: []*client.Message{
				textMessage(5, 1700000500, "五"),
				textMessage(4, 1700000400, "四"),
				textMessage(3, 1700000300, "三"),
				textMessage(2, 1700000200, "二"),
			},
			limit:   2,
			wantIDs: []int64{5, 4},
		},
		{
			name:    "历史为空",
			history: nil,
			limit:   10,
			wantIDs: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := collectTextMessages(tt.history, tt.limit, fixedSender)

			require.Len(t, messages, len(tt.wantIDs))
			for i, msg := range messages {
				assert.Equal(t, tt.wantIDs[i], msg.ID)
				assert.NotEmpty(t, msg.Text)
			}
		})
	}
}

func TestCollectTextMessages_Fields(t *testing.T) {
	messages := collectTextMessages([]*client.Message{
		textMessage(42, 1748772000, "важный факт"),
	}, 10, fixedSender)

	require.Len(t, messages, 1)
	assert.Equal(t, int64(42), messages[0].ID)
	assert.Equal(t, "message", messages[0].Type)
	assert.Equal(t, "2025-06-01T10:00:00Z", messages[0].Date, "日期应为 UTC RFC3339 格式")
	assert.Equal(t, "测试发送者", messages[0].From)
	assert.Equal(t, "важный факт", messages[0].Text)
	assert.Nil(t, messages[0].MediaType)
}
