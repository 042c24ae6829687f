package store

import (
	"sync"

	"github.com/hitoshi/yieldman/internal/model"
)

// MemoryStore はプロセス内メモリのみにドキュメントを保持するデプロイ変種。
// 再起動でデータは消える。保存時と読込時に深いコピーを取り、
// 呼び出し側の保持するドキュメントと内部状態を分離する。
type MemoryStore struct {
	mu  sync.Mutex
	doc *model.Document
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load は保持中のドキュメントのコピーを返す。未保存の場合は空のドキュメントを返す。
func (s *MemoryStore) Load() (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return model.NewDocument(), nil
	}
	return s.doc.Clone(), nil
}

// Save はドキュメントのコピーを保持する。
func (s *MemoryStore) Save(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc.Clone()
	return nil
}
