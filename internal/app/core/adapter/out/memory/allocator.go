package memory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

// DefaultMaxAttempts 產生帳戶 ID 的預設嘗試次數
const DefaultMaxAttempts = 8

// IDGenerator 產生一個候選帳戶 ID
type IDGenerator func() (string, error)

// UUIDGenerator 預設使用隨機 UUID
func UUIDGenerator() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// IDAllocator 分配唯一的帳戶 ID
type IDAllocator struct {
	generate    IDGenerator
	maxAttempts int
	log         zerolog.Logger
}

// NewIDAllocator 建立 IDAllocator
//
// 參數:
//
//	generate: 候選 ID 產生器，nil 時使用 UUIDGenerator
//	maxAttempts: 最多嘗試次數，<= 0 時使用 DefaultMaxAttempts
func NewIDAllocator(generate IDGenerator, maxAttempts int) *IDAllocator {
	if generate == nil {
		generate = UUIDGenerator
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &IDAllocator{
		generate:    generate,
		maxAttempts: maxAttempts,
		log:         zerolog.Nop(),
	}
}

// Allocate 產生 ID 並交給 claim 嘗試佔用
// claim 必須以原子方式「不存在才寫入」，回傳 false 代表碰撞，會換一個 ID 重試
//
// 回傳:
//
//	string: 成功佔用的 ID
//	error: 超過嘗試次數時回傳 domain.ErrAllocationExhausted
func (a *IDAllocator) Allocate(claim func(id string) bool) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		id, err := a.generate()
		if err != nil {
			lastErr = err
			continue
		}
		if claim(id) {
			return id, nil
		}
		a.log.Info().Str("id", id).Int("attempt", attempt).Msg("id collision during account creation, retrying")
		lastErr = fmt.Errorf("id collision on %s", id)
	}
	return "", fmt.Errorf("%w after %d attempts: %v", domain.ErrAllocationExhausted, a.maxAttempts, lastErr)
}
