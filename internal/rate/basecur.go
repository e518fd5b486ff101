package rate

import "sync"

// BaseCurrency holds the process-wide reference currency all stored rates
// are expressed in. It is loaded from the settings table at startup and
// rewritten by the conversion service when a rebase succeeds.
type BaseCurrency struct {
	mu   sync.RWMutex
	code string
}

func NewBaseCurrency(code string) *BaseCurrency {
	return &BaseCurrency{code: code}
}

func (b *BaseCurrency) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.code
}

func (b *BaseCurrency) Set(code string) {
	b.mu.Lock()
	b.code = code
	b.mu.Unlock()
}
