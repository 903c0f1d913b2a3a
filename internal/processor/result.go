package processor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/fachebot/tg2kb/internal/llm"
)

// Note 持久化的注释结果
type Note struct {
	ID      int64  `json:"id"`
	Summary string `json:"summary"`
}

// SaveNotes 将注释结果写为 JSON 数组，UTF-8 不转义，覆盖已有文件。
// 相同输入产生字节一致的输出。
func SaveNotes(results []llm.Result, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	notes := make([]Note, len(results))
	for i, r := range results {
		notes[i] = Note{ID: r.ID, Summary: r.Summary}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(notes)
}

// LoadNotes 读取注释结果文件
func LoadNotes(path string) ([]Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var notes []Note
	if err = json.Unmarshal(data, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// OutputFilename 根据导出文件名推导笔记文件名：
// examples/raw_dump_mychannel.json -> <outputDir>/notes_mychannel.json
func OutputFilename(dumpPath, outputDir string) string {
	stem := strings.TrimSuffix(filepath.Base(dumpPath), filepath.Ext(dumpPath))
	stem = strings.TrimPrefix(stem, "raw_dump_")
	return filepath.Join(outputDir, "notes_"+stem+".json")
}
