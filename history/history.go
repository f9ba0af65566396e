// Package history implements C8: the append-only device history log
// (spec.md §8). Every entry is appended under a monotonically
// increasing Order; entries are never edited or individually deleted —
// clearing the log deletes every entry and then appends a single
// HistoryCleared marker, so a reader can always tell "history
// was wiped here" without the wiped content leaking into the new log.
// Grounded on the teacher's kvstore package's append-only, monotonic
// sequence-cell idiom, generalized from kvstore's single numeric
// counter to a full entry log, and on original_source/'s `history.rs`
// event-kind enumeration (this package's Kind constants).
package history

import (
	"encoding/binary"
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/store"
)

// Kind enumerates the events the log records.
type Kind string

const (
	KindMetadataAdded      Kind = "metadata_added"
	KindNetworkAdded       Kind = "network_added"
	KindTypesAdded         Kind = "types_added"
	KindSeedCreated        Kind = "seed_created"
	KindSeedRemoved        Kind = "seed_removed"
	KindKeyCreated         Kind = "key_created"
	KindKeyRemoved         Kind = "key_removed"
	KindIdentitiesWiped    Kind = "identities_wiped"
	KindTransactionSigned  Kind = "transaction_signed"
	KindTransactionAborted Kind = "transaction_aborted"
	KindWrongPassword      Kind = "wrong_password"
	KindSeedNameShown      Kind = "seed_name_shown"
	KindDeviceWasOnline    Kind = "device_was_online"
	KindSystemEntered      Kind = "system_entered"
	KindWarning            Kind = "warning"
	KindError              Kind = "error"
	KindDatabaseInit       Kind = "database_initiated"
	KindHistoryCleared     Kind = "history_cleared"
)

// Entry is one append-only log row.
type Entry struct {
	Order   uint64          `json:"order"`
	Kind    Kind            `json:"kind"`
	Message string          `json:"message,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

var (
	orderKey      = []byte("order")
	dangerKey     = []byte("danger")
	entryKeyLen   = 8
)

func entryKey(order uint64) []byte {
	k := make([]byte, entryKeyLen)
	binary.BigEndian.PutUint64(k, order)
	return k
}

// Log is a handle onto one device's history tree.
type Log struct {
	s *store.Store
}

// Open returns a Log backed by s's TreeHistory namespace.
func Open(s *store.Store) *Log { return &Log{s: s} }

func (l *Log) nextOrder() (uint64, error) {
	v, err := l.s.Get(store.TreeHistory, orderKey)
	if err != nil {
		if errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
			return 0, nil
		}
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

// Append writes a new entry at the next Order, marking the device
// "unsafe" (danger flag) when kind is KindDeviceWasOnline — spec.md §8's
// rule that any evidence the device went online taints every key
// derived before it is acknowledged away.
func (l *Log) Append(kind Kind, message string, detail json.RawMessage) (Entry, error) {
	order, err := l.nextOrder()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Order: order, Kind: kind, Message: message, Detail: detail}
	raw, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal history entry: %v", err)
	}

	b := l.s.NewBatch()
	b.Put(store.TreeHistory, entryKey(order), raw)
	var orderBuf [8]byte
	binary.BigEndian.PutUint64(orderBuf[:], order+1)
	b.Put(store.TreeHistory, orderKey, orderBuf[:])
	if kind == KindDeviceWasOnline {
		b.Put(store.TreeHistory, dangerKey, []byte{1})
	}
	if err := l.s.Write(b); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// IsDangerous reports whether the device-was-online flag is set.
func (l *Log) IsDangerous() (bool, error) {
	v, err := l.s.Get(store.TreeHistory, dangerKey)
	if err != nil {
		if errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
			return false, nil
		}
		return false, err
	}
	return len(v) == 1 && v[0] == 1, nil
}

// ResetDangerStatusToSafe clears the device-was-online flag. This is a
// distinct, explicit operator action — it never happens implicitly as a
// side effect of any other call in this package.
func (l *Log) ResetDangerStatusToSafe() error {
	return l.s.Delete(store.TreeHistory, dangerKey)
}

// All returns every entry currently in the log, in Order.
func (l *Log) All() ([]Entry, error) {
	var out []Entry
	err := l.s.Iterate(store.TreeHistory, func(k, v []byte) error {
		if len(k) != entryKeyLen {
			return nil // skip the order/danger control cells
		}
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal history entry: %v", err)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Checksum returns the hex-encoded blake2b-256 digest of every entry
// currently in the log, letting a caller confirm the log hasn't changed
// between displaying it and confirming a Clear, the same
// checksum-before-destructive-action pattern C9's commit stage uses for
// staged transactions.
func (l *Log) Checksum() (string, error) {
	entries, err := l.All()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal history for checksum: %v", err)
	}
	sum := blake2b.Sum256(raw)
	return hexEncode(sum[:]), nil
}

// Clear deletes every entry and then appends a HistoryCleared marker,
// verifying checksum first so a stale UI snapshot can't
// wipe entries the operator never actually saw.
func (l *Log) Clear(expectedChecksum string) error {
	actual, err := l.Checksum()
	if err != nil {
		return err
	}
	if actual != expectedChecksum {
		return errorkinds.New(errorkinds.KindInput, errorkinds.CodeChecksumMismatch, "history checksum does not match; refusing to clear")
	}
	entries, err := l.All()
	if err != nil {
		return err
	}
	b := l.s.NewBatch()
	for _, e := range entries {
		b.Delete(store.TreeHistory, entryKey(e.Order))
	}
	if err := l.s.Write(b); err != nil {
		return err
	}
	_, err = l.Append(KindHistoryCleared, "history cleared", nil)
	return err
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
