// Copyright 2024-2026 Aiku AI

package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var (
	sessionBucket = []byte("session")
	syncBucket    = []byte("sync")
	sessionKey    = []byte("current")
)

// ErrNoSession is returned by LoadSession before the first login.
var ErrNoSession = errors.New("no stored session")

// Session is what is needed to resume as the bot without logging in again.
type Session struct {
	UserID      id.UserID   `json:"user_id"`
	DeviceID    id.DeviceID `json:"device_id"`
	AccessToken string      `json:"access_token"`
}

// Store keeps the session and the sync position in a bolt file. It
// implements mautrix.SyncStore.
type Store struct {
	db *bolt.DB
}

var _ mautrix.SyncStore = (*Store)(nil)

// OpenStore opens or creates the bolt file at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionBucket, syncBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSession returns the stored session or ErrNoSession.
func (s *Store) LoadSession() (*Session, error) {
	var sess *Session
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(sessionBucket).Get(sessionKey)
		if raw == nil {
			return ErrNoSession
		}
		sess = &Session{}
		return json.Unmarshal(raw, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveSession replaces the stored session.
func (s *Store) SaveSession(sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(sessionKey, raw)
	})
}

// ClearSession forgets the stored session and sync position, so the next
// start logs in again.
func (s *Store) ClearSession() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sessionBucket).Delete(sessionKey); err != nil {
			return err
		}
		if err := tx.DeleteBucket(syncBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(syncBucket)
		return err
	})
}

func (s *Store) put(key string, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(syncBucket).Put([]byte(key), []byte(value))
	})
}

func (s *Store) get(key string) (value string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		value = string(tx.Bucket(syncBucket).Get([]byte(key)))
		return nil
	})
	return
}

func (s *Store) SaveFilterID(_ context.Context, userID id.UserID, filterID string) error {
	return s.put("filter:"+string(userID), filterID)
}

func (s *Store) LoadFilterID(_ context.Context, userID id.UserID) (string, error) {
	return s.get("filter:" + string(userID))
}

func (s *Store) SaveNextBatch(_ context.Context, userID id.UserID, nextBatchToken string) error {
	return s.put("batch:"+string(userID), nextBatchToken)
}

func (s *Store) LoadNextBatch(_ context.Context, userID id.UserID) (string, error) {
	return s.get("batch:" + string(userID))
}
