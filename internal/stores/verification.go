package stores

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/mkarel/authcore/kv"
)

const verificationRecordVersionV1 = 1

// spentRetention keeps consumed and stamp-expired records around past
// their logical lifetime so a re-presented ticket reports "spent"
// rather than "unknown". Only the store's eviction of the retained
// record demotes the answer to not-found.
const spentRetention = time.Hour

var (
	// ErrVerificationNotFound is returned when no record exists for the
	// token at all.
	ErrVerificationNotFound = errors.New("verification record not found")

	// ErrVerificationSpent is returned when the record exists but is no
	// longer redeemable: already consumed, or past its expiry stamp.
	ErrVerificationSpent = errors.New("verification record expired or already used")
)

// VerificationRecord is the persisted side of a verification ticket.
// Expiry is enforced twice: by the store TTL and by the ExpiresAt stamp,
// so a store without precise TTL semantics still fails closed. Used
// marks a consumed record kept as a tombstone.
type VerificationRecord struct {
	AccountID string
	ExpiresAt int64
	Used      bool
}

// VerificationStore issues and redeems single-use, time-boxed email
// verification tickets. The first redeem flips the record into a used
// tombstone in the same step that reads it, so a second redeem and an
// unknown token stay distinguishable.
type VerificationStore struct {
	store  kv.Store
	prefix string
}

// NewVerificationStore creates a ledger on the given store.
func NewVerificationStore(store kv.Store, prefix string) *VerificationStore {
	return &VerificationStore{store: store, prefix: prefix}
}

func (s *VerificationStore) key(token string) string {
	return s.prefix + "verify:" + token
}

// Issue generates a high-entropy token and persists its record for ttl.
// The stored record outlives the logical expiry by the retention margin;
// the ExpiresAt stamp is what gates redemption. The token string is what
// gets mailed; handing it to the delivery collaborator is the caller's
// job and its failure domain.
func (s *VerificationStore) Issue(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	var raw [16]byte
	if _, err := io.ReadFull(rand.Reader, raw[:]); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw[:])

	record := &VerificationRecord{
		AccountID: accountID,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	encoded, err := encodeVerificationRecord(record)
	if err != nil {
		return "", err
	}

	if err := s.store.Set(ctx, s.key(token), encoded, ttl+spentRetention); err != nil {
		return "", err
	}
	return token, nil
}

// Consume redeems a ticket exactly once and returns its record. An
// unknown token returns ErrVerificationNotFound; a consumed or
// stamp-expired one returns ErrVerificationSpent. The atomic GetDel
// decides the winner under concurrent redeems; the loser sees the
// tombstone the winner wrote back.
func (s *VerificationStore) Consume(ctx context.Context, token string) (*VerificationRecord, error) {
	data, err := s.store.GetDel(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}

	record, err := decodeVerificationRecord(data)
	if err != nil {
		return nil, ErrVerificationNotFound
	}

	if record.Used || time.Now().Unix() >= record.ExpiresAt {
		// Put the record back so later redeems keep answering "spent"
		// until retention runs out.
		if ttl := s.retainFor(record); ttl > 0 {
			_ = s.store.Set(ctx, s.key(token), data, ttl)
		}
		return nil, ErrVerificationSpent
	}

	tombstone := *record
	tombstone.Used = true
	encoded, err := encodeVerificationRecord(&tombstone)
	if err == nil {
		_ = s.store.Set(ctx, s.key(token), encoded, s.retainFor(record))
	}

	return record, nil
}

// Restore re-arms a consumed ticket for the remainder of its original
// lifetime, overwriting the used tombstone. Compensation path for when
// the account update fails after a successful consume, keeping redeem
// all-or-nothing at the logical level.
func (s *VerificationStore) Restore(ctx context.Context, token string, record *VerificationRecord) error {
	remaining := time.Until(time.Unix(record.ExpiresAt, 0))
	if remaining <= 0 {
		return nil
	}

	fresh := *record
	fresh.Used = false
	encoded, err := encodeVerificationRecord(&fresh)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.key(token), encoded, remaining+spentRetention)
}

// retainFor is how long a spent record stays queryable: the remainder
// of its logical lifetime plus the retention margin, clamped at the
// margin alone once the stamp has passed.
func (s *VerificationStore) retainFor(record *VerificationRecord) time.Duration {
	remaining := time.Until(time.Unix(record.ExpiresAt, 0))
	if remaining < 0 {
		remaining = 0
	}
	return remaining + spentRetention
}

func encodeVerificationRecord(record *VerificationRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(verificationRecordVersionV1)
	if record.Used {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.AccountID) > 65535 {
		return nil, errors.New("verification record account id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.AccountID)

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*VerificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	used, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if used > 1 {
		return nil, errors.New("invalid verification record used flag")
	}

	record := &VerificationRecord{Used: used == 1}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var accountIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &accountIDLen); err != nil {
		return nil, err
	}
	accountID := make([]byte, accountIDLen)
	if _, err := io.ReadFull(reader, accountID); err != nil {
		return nil, err
	}
	record.AccountID = string(accountID)

	return record, nil
}
