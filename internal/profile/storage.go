package profile

import (
	"context"
	"sync"
	"time"
)

// Storage is a string key/value area. Missing keys read as ("", false).
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Local returns the storage area that survives restarts.
func (db *DB) Local() Storage {
	return localStorage{db: db}
}

type localStorage struct {
	db *DB
}

func (s localStorage) GetItem(key string) (string, bool) {
	var value string
	err := s.db.sql.QueryRowContext(context.Background(),
		`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s localStorage) SetItem(key, value string) error {
	_, err := s.db.sql.ExecContext(context.Background(),
		`INSERT INTO local_storage (key, value, updated_unix) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_unix = excluded.updated_unix`,
		key, value, time.Now().Unix())
	return err
}

func (s localStorage) RemoveItem(key string) error {
	_, err := s.db.sql.ExecContext(context.Background(), `DELETE FROM local_storage WHERE key = ?`, key)
	return err
}

// SessionStorage lives for the process only.
type SessionStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewSessionStorage() *SessionStorage {
	return &SessionStorage{values: map[string]string{}}
}

func (s *SessionStorage) GetItem(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *SessionStorage) SetItem(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *SessionStorage) RemoveItem(key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// TakeFlag reports whether key held "1" and removes it, so a one-time notice
// is only shown once.
func TakeFlag(s Storage, key string) bool {
	value, ok := s.GetItem(key)
	if !ok {
		return false
	}
	_ = s.RemoveItem(key)
	return value == "1"
}
