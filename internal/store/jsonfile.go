package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hitoshi/yieldman/internal/model"
)

// JSONFileStore はフラットなJSONファイル1枚にドキュメントを永続化する。
type JSONFileStore struct {
	path   string
	logger *slog.Logger
}

// NewJSONFileStore はJSONFileStoreを生成する。
func NewJSONFileStore(path string, logger *slog.Logger) *JSONFileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONFileStore{
		path:   path,
		logger: logger,
	}
}

// Load はファイルからドキュメント全体を読み込む。
// ファイルが存在しない場合と内容が破損している場合は、
// パース失敗を伝播せず空の有効なドキュメントにフォールバックする。
func (s *JSONFileStore) Load() (*model.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("保存データが破損しているため空のストアで再初期化します",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return model.NewDocument(), nil
	}

	if doc.Accounts == nil {
		doc.Accounts = []*model.Account{}
	}
	return &doc, nil
}

// Save はドキュメント全体をファイルに書き込む。
// 一時ファイルへ書き込んでからリネームすることで部分書き込みを避ける。
func (s *JSONFileStore) Save(doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close store file: %w", err)
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod store file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
