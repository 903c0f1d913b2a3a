package selector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrNotANumber 输入不是整数
	ErrNotANumber = errors.New("输入不是有效数字")
	// ErrOutOfRange 输入超出可选范围
	ErrOutOfRange = errors.New("输入超出范围")
)

// Pick 校验一次选择输入，返回 0 起始的下标。
// raw 为用户原始输入，n 为可选项数量。纯函数，不做任何 IO。
func Pick(raw string, n int) (int, error) {
	choice, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrNotANumber
	}
	if choice < 1 || choice > n {
		return 0, ErrOutOfRange
	}
	return choice - 1, nil
}

// Prompt 循环读取输入直到得到有效选择，返回 0 起始的下标。
// 输入流耗尽时返回 io.EOF。
func Prompt(r io.Reader, w io.Writer, label string, n int) (int, error) {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprintf(w, "%s (1-%d): ", label, n)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}

		index, err := Pick(scanner.Text(), n)
		if err != nil {
			fmt.Fprintln(w, "无效选择，请重试。")
			continue
		}
		return index, nil
	}
}
