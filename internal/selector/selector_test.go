package selector

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPick(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		n       int
		want    int
		wantErr error
	}{
		{"首项", "1", 3, 0, nil},
		{"末项", "3", 3, 2, nil},
		{"带空白", "  2 \n", 3, 1, nil},
		{"非数字", "abc", 3, 0, ErrNotANumber},
		{"零", "0", 3, 0, ErrOutOfRange},
		{"超出上界", "99", 3, 0, ErrOutOfRange},
		{"负数", "-1", 3, 0, ErrOutOfRange},
		{"空输入", "", 3, 0, ErrNotANumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pick(tt.raw, tt.n)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrompt_RetriesUntilValid(t *testing.T) {
	// 场景：输入 "abc", "99", "2"，前两次被拒绝，第三次选中第 2 项
	in := strings.NewReader("abc\n99\n2\n")
	var out bytes.Buffer

	index, err := Prompt(in, &out, "请选择频道", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, 2, strings.Count(out.String(), "无效选择"), "前两次输入应被拒绝")
}

func TestPrompt_FirstTryValid(t *testing.T) {
	in := strings.NewReader("1\n")
	var out bytes.Buffer

	index, err := Prompt(in, &out, "请选择文件", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.NotContains(t, out.String(), "无效选择")
}

func TestPrompt_EOF(t *testing.T) {
	in := strings.NewReader("abc\n")
	var out bytes.Buffer

	_, err := Prompt(in, &out, "请选择", 3)
	assert.ErrorIs(t, err, io.EOF)
}
