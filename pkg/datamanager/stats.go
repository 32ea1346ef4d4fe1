package datamanager

import (
	"context"
	"fmt"

	"gamehub/pkg/writer"
)

type statsDelta struct {
	views int64
	plays int64
}

// RecordView counts a page view of game id.
func (m *DataManager) RecordView(ctx context.Context, id string) error {
	return m.record(ctx, id, statsDelta{views: 1})
}

// RecordPlay counts a play of game id.
func (m *DataManager) RecordPlay(ctx context.Context, id string) error {
	return m.record(ctx, id, statsDelta{plays: 1})
}

// record bumps the mirror counters at once and queues the increment for
// the API. Cached rankings catch up when their TTL lapses.
func (m *DataManager) record(ctx context.Context, id string, d statsDelta) error {
	m.mu.Lock()
	for i := range m.games {
		if m.games[i].ID == id {
			m.games[i].ViewCount += d.views
			m.games[i].PlayCount += d.plays
			break
		}
	}
	m.mu.Unlock()

	return m.stats.Enqueue(ctx, writer.Op{Key: id, Value: d})
}

func (m *DataManager) flushStats(ctx context.Context, op writer.Op) error {
	d, ok := op.Value.(statsDelta)
	if !ok {
		return fmt.Errorf("datamanager: unexpected stats value %T", op.Value)
	}
	return m.api.RecordStats(ctx, op.Key, d.views, d.plays)
}
