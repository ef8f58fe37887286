package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"restaurant-automation/internal/domain"
)

// MemoryReceiptArchive keeps receipts in memory. Used when no bucket is
// configured and in tests.
type MemoryReceiptArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// FailWith makes every ArchiveBill call fail.
	FailWith error
}

func NewMemoryReceiptArchive() *MemoryReceiptArchive {
	return &MemoryReceiptArchive{objects: make(map[string][]byte)}
}

func (m *MemoryReceiptArchive) ArchiveBill(_ context.Context, order domain.Order, items []domain.OrderItem, bill domain.Bill) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	body, err := json.Marshal(NewReceipt(order, items, bill))
	if err != nil {
		return "", err
	}
	key := ReceiptKey(order.Number)
	m.objects[key] = body
	return key, nil
}

func (m *MemoryReceiptArchive) ReceiptURL(_ context.Context, orderNumber string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := ReceiptKey(orderNumber)
	if _, ok := m.objects[key]; !ok {
		return "", errors.New("receipt not found")
	}
	return fmt.Sprintf("memory://%s", key), nil
}

func (m *MemoryReceiptArchive) Receipt(orderNumber string) (Receipt, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[ReceiptKey(orderNumber)]
	if !ok {
		return Receipt{}, false
	}
	var r Receipt
	if err := json.Unmarshal(body, &r); err != nil {
		return Receipt{}, false
	}
	return r, true
}

func (m *MemoryReceiptArchive) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
