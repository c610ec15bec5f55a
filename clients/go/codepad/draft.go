package codepad

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

var draftBucket = []byte("drafts")

// DraftStore keeps a local copy of each document's buffer on disk so an
// interrupted session can show the last edited text before the next
// snapshot arrives.
type DraftStore struct {
	db *bolt.DB
}

// OpenDraftStore opens (or creates) the draft database at path.
func OpenDraftStore(path string) (*DraftStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(draftBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DraftStore{db: db}, nil
}

// Save stores the draft content for a document.
func (d *DraftStore) Save(documentID, content string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(draftBucket).Put([]byte(documentID), []byte(content))
	})
}

// Load returns the stored draft for a document. ok is false when no
// draft exists.
func (d *DraftStore) Load(documentID string) (content string, ok bool, err error) {
	err = d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(draftBucket).Get([]byte(documentID))
		if v != nil {
			content = string(v)
			ok = true
		}
		return nil
	})
	return content, ok, err
}

// Delete removes a document's draft.
func (d *DraftStore) Delete(documentID string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(draftBucket).Delete([]byte(documentID))
	})
}

// Close closes the underlying database.
func (d *DraftStore) Close() error {
	return d.db.Close()
}
