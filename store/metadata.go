package store

import (
	"context"
	"database/sql"
)

// TopicRecord is a topic with the broker host of each partition, indexed by partition.
type TopicRecord struct {
	Name       string
	Partitions int
	Brokers    []string
}

type BrokerRecord struct {
	Name   string
	Active bool
}

// Snapshot is everything a manager needs to rebuild its directory.
type Snapshot struct {
	Topics    []TopicRecord
	Producers map[string][]string // topic -> producer ids
	Consumers map[string][]string // topic -> consumer ids
	Brokers   []BrokerRecord
}

// SaveTopic writes the topic row and one partition row per broker in a single transaction.
func (s *DB) SaveTopic(ctx context.Context, name string, brokers []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO topics (name, partitions) VALUES (?, ?)", name, len(brokers)); err != nil {
			return err
		}
		for i, host := range brokers {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO partitions (topic_name, ind, broker_host) VALUES (?, ?, ?)", name, i, host); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *DB) SaveProducer(ctx context.Context, topic, id string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO producers (id, topic_name) VALUES (?, ?)", id, topic)
	return err
}

func (s *DB) SaveConsumer(ctx context.Context, topic, id string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO consumers (id, topic_name) VALUES (?, ?)", id, topic)
	return err
}

func (s *DB) SaveBroker(ctx context.Context, name string, active bool) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO brokers (name, active) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET active = excluded.active",
		name, active)
	return err
}

func (s *DB) DeleteBroker(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM brokers WHERE name = ?", name)
	return err
}

// LoadSnapshot reads every metadata table back.
func (s *DB) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Producers: make(map[string][]string),
		Consumers: make(map[string][]string),
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, partitions FROM topics ORDER BY name")
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	for rows.Next() {
		var rec TopicRecord
		if err := rows.Scan(&rec.Name, &rec.Partitions); err != nil {
			rows.Close()
			return nil, err
		}
		rec.Brokers = make([]string, rec.Partitions)
		index[rec.Name] = len(snap.Topics)
		snap.Topics = append(snap.Topics, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT topic_name, ind, broker_host FROM partitions")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var topic, host string
		var ind int
		if err := rows.Scan(&topic, &ind, &host); err != nil {
			rows.Close()
			return nil, err
		}
		i, ok := index[topic]
		if !ok || ind < 0 || ind >= len(snap.Topics[i].Brokers) {
			continue
		}
		snap.Topics[i].Brokers[ind] = host
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadIDs(ctx, "SELECT id, topic_name FROM producers ORDER BY rowid", snap.Producers); err != nil {
		return nil, err
	}
	if err := s.loadIDs(ctx, "SELECT id, topic_name FROM consumers ORDER BY rowid", snap.Consumers); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT name, active FROM brokers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rec BrokerRecord
		if err := rows.Scan(&rec.Name, &rec.Active); err != nil {
			return nil, err
		}
		snap.Brokers = append(snap.Brokers, rec)
	}
	return snap, rows.Err()
}

func (s *DB) loadIDs(ctx context.Context, query string, into map[string][]string) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, topic string
		if err := rows.Scan(&id, &topic); err != nil {
			return err
		}
		into[topic] = append(into[topic], id)
	}
	return rows.Err()
}
