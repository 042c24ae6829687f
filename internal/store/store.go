// Package store はドキュメント全体を単位とする永続化コラボレーターを提供する。
// 部分更新はなく、常にドキュメント全体を読み書きする。
package store

import "github.com/hitoshi/yieldman/internal/model"

// Store は口座ドキュメントの永続化インターフェース。
type Store interface {
	// Load は保存済みドキュメント全体を読み込む。
	// 保存データが存在しない、または破損している場合は空の有効なドキュメントを返す。
	Load() (*model.Document, error)

	// Save はドキュメント全体を書き込む。部分書き込みは行わない。
	Save(doc *model.Document) error
}
