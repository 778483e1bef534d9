package document

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/mo"
)

// Registry はプロセス全体で共有されるドキュメントIDとインデックスの対応表
type Registry struct {
	counter atomic.Int64

	mu        sync.RWMutex
	documents map[int64]*Document
}

// NewRegistry は空の Registry を作成する（IDは1から採番）
func NewRegistry() *Registry {
	r := &Registry{
		documents: make(map[int64]*Document),
	}
	r.counter.Store(1)
	return r
}

// Draft はコミット前のドキュメント内容を表す
type Draft struct {
	FileName  string
	MediaType string
	Chars     int
	Index     VectorIndex
}

// Register はIDを採番し、構築済みのドキュメントを公開する
// インデックスは AddAll 完了後のものを渡すこと。公開後は読み取り専用として扱う
func (r *Registry) Register(draft Draft) (*Document, error) {
	if draft.Index == nil {
		return nil, fmt.Errorf("register document: %w", ErrInvalidArgument)
	}
	if draft.Index.Len() == 0 {
		return nil, BlankDocument(draft.FileName)
	}

	doc := &Document{
		ID:        r.counter.Add(1) - 1,
		FileName:  draft.FileName,
		MediaType: draft.MediaType,
		Segments:  draft.Index.Len(),
		Chars:     draft.Chars,
		Index:     draft.Index,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.documents[doc.ID] = doc
	r.mu.Unlock()

	return doc, nil
}

// Find はIDに対応するドキュメントを返す
func (r *Registry) Find(id int64) mo.Option[*Document] {
	r.mu.RLock()
	doc, ok := r.documents[id]
	r.mu.RUnlock()

	if !ok {
		return mo.None[*Document]()
	}
	return mo.Some(doc)
}

// Len は登録済みドキュメント数を返す
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents)
}

// NextID は次に採番されるIDを返す
func (r *Registry) NextID() int64 {
	return r.counter.Load()
}
