package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀) - 適用於大多數檔案
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於私鑰、機密檔
	FileModePrivate fs.FileMode = 0600
)

// ErrClosed 對已關閉的 WAL 操作
var ErrClosed = errors.New("wal: closed")

// WAL 以 JSON Lines 格式追加寫入的檔案
//
// 結構:
//
//	file: 底層檔案 (O_APPEND)
//	buf: 寫入緩衝，Flush 時才真正寫進檔案
//	syncEach: 每筆寫入後都 fsync
type WAL struct {
	mu       sync.Mutex
	file     *os.File
	buf      *bufio.Writer
	enc      *json.Encoder
	syncEach bool
	closed   bool
}

// Option WAL 的設定選項
type Option func(*WAL)

// WithSyncEachWrite 每筆寫入後都 Flush + fsync
func WithSyncEachWrite() Option {
	return func(w *WAL) {
		w.syncEach = true
	}
}

// Open 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func Open(path string, opts ...Option) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	w := &WAL{file: file}
	w.buf = bufio.NewWriter(file)
	w.enc = json.NewEncoder(w.buf)
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Append 寫入一筆資料 (一行 JSON)
func (w *WAL) Append(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("encode wal record: %w", err)
	}
	if w.syncEach {
		return w.syncLocked()
	}
	return nil
}

// Flush 把緩衝寫進檔案，不保證落盤
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.buf.Flush()
}

func (w *WAL) syncLocked() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close 刷入剩餘資料並關閉檔案，可重複呼叫
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(w.syncLocked(), w.file.Close())
}

// ReadAll 從頭讀取所有資料
// callback 每次接收一行 JSON，避免一次將所有資料載入記憶體
func (w *WAL) ReadAll(callback func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}

	// ReadAt 不移動 O_APPEND 的寫入位置
	r := io.NewSectionReader(w.file, 0, 1<<62)
	decoder := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode wal record: %w", err)
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}
