package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

// CassandraStore keeps cache entries in a Cassandra table so several
// dashboard instances can share one warm cache. Rows carry a generous
// native TTL as a backstop; envelope expiry still decides freshness.
type CassandraStore struct {
	session *gocql.Session
	rowTTL  time.Duration
}

func NewCassandraStore(host string) (*CassandraStore, error) {
	cluster := gocql.NewCluster(host)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra at %s: %w", host, err)
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS dashboard
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`).Exec()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create dashboard keyspace: %w", err)
	}
	session.Close()

	cluster.Keyspace = "dashboard"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to dashboard keyspace: %w", err)
	}

	err = session.Query(
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT,
			payload BLOB,
			PRIMARY KEY (key)
		)`).Exec()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create cache_entries table: %w", err)
	}

	return &CassandraStore{session: session, rowTTL: time.Hour}, nil
}

func (s *CassandraStore) Read(key string) ([]byte, error) {
	var raw []byte
	err := s.session.Query(`SELECT payload FROM cache_entries WHERE key = ?`, key).Scan(&raw)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *CassandraStore) Write(key string, raw []byte) error {
	return s.session.Query(
		`INSERT INTO cache_entries (key, payload) VALUES (?, ?) USING TTL ?`,
		key, raw, int(s.rowTTL.Seconds()),
	).Exec()
}

func (s *CassandraStore) Delete(key string) error {
	return s.session.Query(`DELETE FROM cache_entries WHERE key = ?`, key).Exec()
}

func (s *CassandraStore) Keys(prefix string) ([]string, error) {
	iter := s.session.Query(`SELECT key FROM cache_entries`).Iter()
	var keys []string
	var key string
	for iter.Scan(&key) {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *CassandraStore) Close() {
	s.session.Close()
}
