package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// SummaryCache 进程级的摘要备忘缓存，键是两段输入文本的内容指纹，
// 所有会话共享：字节级相同的输入直接命中，省掉一次模型调用。
//
// 容量封顶但不淘汰：写满后新条目被静默丢弃。这是沿用原始行为的
// 已知弱点，生产化时应换成LRU等有界淘汰策略。
type SummaryCache struct {
	mu         sync.RWMutex
	entries    map[string]string
	maxEntries int
}

// NewSummaryCache 创建容量为 maxEntries 的缓存。
func NewSummaryCache(maxEntries int) *SummaryCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &SummaryCache{
		entries:    make(map[string]string),
		maxEntries: maxEntries,
	}
}

// Fingerprint 计算工作经历文本与教育经历文本的联合内容指纹。
// 用不会出现在文本中的分隔符拼接，避免两段文本的边界歧义。
func Fingerprint(workText, educationText string) string {
	h := sha256.New()
	h.Write([]byte(workText))
	h.Write([]byte{0})
	h.Write([]byte(educationText))
	return hex.EncodeToString(h.Sum(nil))
}

// Get 查询缓存。
func (c *SummaryCache) Get(fingerprint string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	summary, ok := c.entries[fingerprint]
	return summary, ok
}

// Put 写入缓存。缓存已满且键不存在时静默丢弃；
// 并发下同键重复生成按最后写入者生效（last-write-wins）。
func (c *SummaryCache) Put(fingerprint, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[fingerprint]; !exists && len(c.entries) >= c.maxEntries {
		return
	}
	c.entries[fingerprint] = summary
}

// Len 返回当前条目数。
func (c *SummaryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
