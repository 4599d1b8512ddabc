package tron

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MultiExplorer rotates across several explorer endpoints. A query is retried
// on the next endpoint when the current one fails, and the active endpoint is
// rotated permanently after failThreshold consecutive failures.
type MultiExplorer struct {
	clients       []*Explorer
	index         int
	failCount     int
	failThreshold int
	mu            sync.Mutex
}

func NewMultiExplorer(endpoints []string, failThreshold int) (*MultiExplorer, error) {
	list := sanitizeEndpoints(endpoints)
	if len(list) == 0 {
		return nil, errors.New("explorer endpoints is empty")
	}
	if failThreshold <= 0 {
		failThreshold = 3
	}
	clients := make([]*Explorer, 0, len(list))
	for _, ep := range list {
		clients = append(clients, NewExplorer(ep))
	}
	return &MultiExplorer{
		clients:       clients,
		failThreshold: failThreshold,
	}, nil
}

func (m *MultiExplorer) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index].baseURL
}

func (m *MultiExplorer) Transactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	var lastErr error
	for attempts := 0; attempts < len(m.clients); attempts++ {
		client, idx := m.currentClient()
		out, err := client.Transactions(ctx, address, limit)
		if err == nil {
			m.resetFailures(idx)
			return out, nil
		}
		lastErr = err
		m.noteFailure(idx)
		if m.shouldRotate() || len(m.clients) > 1 {
			m.rotate()
		}
	}
	return nil, lastErr
}

func (m *MultiExplorer) currentClient() (*Explorer, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index], m.index
}

func (m *MultiExplorer) resetFailures(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount = 0
	}
}

func (m *MultiExplorer) noteFailure(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount++
	}
}

func (m *MultiExplorer) shouldRotate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failCount >= m.failThreshold
}

func (m *MultiExplorer) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = (m.index + 1) % len(m.clients)
	m.failCount = 0
}

func sanitizeEndpoints(endpoints []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		ep = strings.TrimRight(ep, "/")
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	return out
}
