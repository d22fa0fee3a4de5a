package store

import "context"

// PartitionRecord is a partition hosted by a broker with its registered clients.
type PartitionRecord struct {
	Topic     string
	Index     int
	Producers []string
	Consumers []string
}

func (s *DB) SavePartition(ctx context.Context, topic string, index int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO hosted_partitions (topic_name, partition_index) VALUES (?, ?)", topic, index)
	return err
}

func (s *DB) SavePartitionProducer(ctx context.Context, topic string, index int, id string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO partition_producers (id, topic_name, partition_index) VALUES (?, ?, ?)", id, topic, index)
	return err
}

func (s *DB) SavePartitionConsumer(ctx context.Context, topic string, index int, id string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO partition_consumers (id, topic_name, partition_index) VALUES (?, ?, ?)", id, topic, index)
	return err
}

// LoadPartitions returns every hosted partition ordered by topic and index.
func (s *DB) LoadPartitions(ctx context.Context) ([]PartitionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT topic_name, partition_index FROM hosted_partitions ORDER BY topic_name, partition_index")
	if err != nil {
		return nil, err
	}
	var out []PartitionRecord
	type key struct {
		topic string
		index int
	}
	pos := make(map[key]int)
	for rows.Next() {
		var rec PartitionRecord
		if err := rows.Scan(&rec.Topic, &rec.Index); err != nil {
			rows.Close()
			return nil, err
		}
		pos[key{rec.Topic, rec.Index}] = len(out)
		out = append(out, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, q := range []struct {
		query    string
		producer bool
	}{
		{"SELECT id, topic_name, partition_index FROM partition_producers ORDER BY rowid", true},
		{"SELECT id, topic_name, partition_index FROM partition_consumers ORDER BY rowid", false},
	} {
		rows, err := s.db.QueryContext(ctx, q.query)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id, topic string
			var index int
			if err := rows.Scan(&id, &topic, &index); err != nil {
				rows.Close()
				return nil, err
			}
			i, ok := pos[key{topic, index}]
			if !ok {
				continue
			}
			if q.producer {
				out[i].Producers = append(out[i].Producers, id)
			} else {
				out[i].Consumers = append(out[i].Consumers, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
