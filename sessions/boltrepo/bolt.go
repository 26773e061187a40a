// Package boltrepo provides a BBolt-backed sessions.Repo. Records are sealed
// with XChaCha20-Poly1305 under a key derived from a passphrase, so the
// database file never holds a readable access token.
package boltrepo

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/jrsteele09/go-familygraph/sessions"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	sessionsBucket = []byte("sessions")
	metaBucket     = []byte("meta")
	saltKey        = []byte("salt")
)

const (
	envelopeVersion = 1
	envelopeScheme  = "xchacha20poly1305"
	saltSize        = 16
)

// envelope is a sealed record.
type envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store implements sessions.Repo backed by a BBolt database.
type Store struct {
	db  *bbolt.DB
	key []byte
}

var _ sessions.Repo = (*Store)(nil)

// New wraps an open database. The salt is created on first use and the
// record key is derived from passphrase with Argon2id.
func New(db *bbolt.DB, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, fgerrors.ErrMissingSecret
	}
	var salt []byte
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sessionsBucket); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if existing := meta.Get(saltKey); existing != nil {
			salt = append([]byte(nil), existing...)
			return nil
		}
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return err
		}
		return meta.Put(saltKey, salt)
	})
	if err != nil {
		return nil, fmt.Errorf("[boltrepo New] initialising buckets: %w", err)
	}
	return &Store{
		db:  db,
		key: argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, chacha20poly1305.KeySize),
	}, nil
}

// Open opens (or creates) the database file at path.
func Open(path, passphrase string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("[boltrepo Open] opening bbolt db: %w", err)
	}
	s, err := New(db, passphrase)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(clientID string) (sessions.Record, error) {
	var rec sessions.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionsBucket).Get([]byte(clientID))
		if data == nil {
			return fmt.Errorf("session %s: %w", clientID, fgerrors.ErrNotFound)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("decoding envelope: %w", err)
		}
		plain, err := s.open(&env, []byte(clientID))
		if err != nil {
			return err
		}
		return json.Unmarshal(plain, &rec)
	})
	if err != nil {
		return sessions.Record{}, err
	}
	return rec, nil
}

func (s *Store) Save(clientID string, rec sessions.Record) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}
	plain, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	env, err := s.seal(plain, []byte(clientID))
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(clientID), data)
	})
}

func (s *Store) Delete(clientID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b.Get([]byte(clientID)) == nil {
			return fmt.Errorf("session %s: %w", clientID, fgerrors.ErrNotFound)
		}
		return b.Delete([]byte(clientID))
	})
}

// ClientIDs lists every stored client ID.
func (s *Store) ClientIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// seal binds the client ID as additional data so records cannot be swapped between keys.
func (s *Store) seal(plain, aad []byte) (*envelope, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &envelope{
		Ver:        envelopeVersion,
		Scheme:     envelopeScheme,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plain, aad),
	}, nil
}

func (s *Store) open(env *envelope, aad []byte) ([]byte, error) {
	if env.Ver != envelopeVersion || env.Scheme != envelopeScheme {
		return nil, fmt.Errorf("unsupported envelope %d/%s: %w", env.Ver, env.Scheme, fgerrors.ErrSealedRecord)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("bad nonce length: %w", fgerrors.ErrSealedRecord)
	}
	plain, err := aead.Open(nil, env.Nonce, env.Ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, fgerrors.ErrSealedRecord)
	}
	return plain, nil
}
