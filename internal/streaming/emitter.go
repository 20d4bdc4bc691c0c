package streaming

import (
	"context"
	"io"
	"time"
)

// Emitter 接收流水线产生的增量输出。
// 实现方负责把分片送达客户端；返回错误表示客户端不再可达，
// 调用方应尽快放弃后续产出（已落盘的会话状态不回滚）。
type Emitter interface {
	Emit(chunk string) error
}

// WriterEmitter 把分片写入一个 io.Writer（通常是 io.Pipe 的写端）。
type WriterEmitter struct {
	w io.Writer
}

// NewWriterEmitter 创建一个写入 w 的 Emitter。
func NewWriterEmitter(w io.Writer) *WriterEmitter {
	return &WriterEmitter{w: w}
}

// Emit 实现 Emitter 接口
func (e *WriterEmitter) Emit(chunk string) error {
	_, err := io.WriteString(e.w, chunk)
	return err
}

// PacedEmitter 在相邻分片之间插入固定停顿，实现打字机效果。
// 停顿纯粹是展示层行为，不影响输出内容与顺序。
type PacedEmitter struct {
	inner    Emitter
	interval time.Duration
	ctx      context.Context
	emitted  bool
}

// NewPacedEmitter 包装 inner，在每个分片之前（首个分片除外）停顿 interval。
// ctx 取消时停顿立即结束并返回取消错误。
func NewPacedEmitter(ctx context.Context, inner Emitter, interval time.Duration) *PacedEmitter {
	return &PacedEmitter{
		inner:    inner,
		interval: interval,
		ctx:      ctx,
	}
}

// Emit 实现 Emitter 接口
func (e *PacedEmitter) Emit(chunk string) error {
	if e.emitted && e.interval > 0 {
		select {
		case <-e.ctx.Done():
			return e.ctx.Err()
		case <-time.After(e.interval):
		}
	}
	e.emitted = true
	return e.inner.Emit(chunk)
}

// ChunkText 把文本按固定字节宽度切片，用于生成完毕后的分段重放。
// size 不合法时整体作为单个分片返回。
func ChunkText(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	chunks := make([]string, 0, (len(text)+size-1)/size)
	for i := 0; i < len(text); i += size {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
	}
	return chunks
}

// EmitAll 把整段文本切片后依次下发。
func EmitAll(e Emitter, text string, size int) error {
	for _, chunk := range ChunkText(text, size) {
		if err := e.Emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Discard 丢弃全部输出的 Emitter，用于无流式消费方的场景。
var Discard Emitter = discardEmitter{}

type discardEmitter struct{}

func (discardEmitter) Emit(string) error { return nil }
