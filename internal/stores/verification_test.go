package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkarel/authcore/kv"
)

func TestIssueConsume(t *testing.T) {
	ctx := context.Background()
	s := NewVerificationStore(kv.NewMemory(), "")

	ticket, err := s.Issue(ctx, "acct-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(ticket) != 32 {
		t.Fatalf("ticket length = %d, want 32 hex chars", len(ticket))
	}

	record, err := s.Consume(ctx, ticket)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if record.AccountID != "acct-1" {
		t.Fatalf("AccountID = %q", record.AccountID)
	}
	if record.Used {
		t.Fatal("returned record already marked used")
	}
}

func TestReusedTicketReportsSpent(t *testing.T) {
	ctx := context.Background()
	s := NewVerificationStore(kv.NewMemory(), "")

	ticket, err := s.Issue(ctx, "acct-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := s.Consume(ctx, ticket); err != nil {
		t.Fatalf("first Consume: %v", err)
	}

	// The tombstone keeps answering "spent", not "unknown", redeem
	// after redeem.
	for i := 0; i < 3; i++ {
		if _, err := s.Consume(ctx, ticket); !errors.Is(err, ErrVerificationSpent) {
			t.Fatalf("Consume #%d = %v, want ErrVerificationSpent", i+2, err)
		}
	}
}

func TestConsumeUnknownToken(t *testing.T) {
	ctx := context.Background()
	s := NewVerificationStore(kv.NewMemory(), "")

	if _, err := s.Consume(ctx, "deadbeefdeadbeefdeadbeefdeadbeef"); !errors.Is(err, ErrVerificationNotFound) {
		t.Fatalf("Consume(unknown) = %v, want ErrVerificationNotFound", err)
	}
}

func TestStampExpiredTicketReportsSpent(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	now := time.Now()
	store.SetClock(func() time.Time { return now })
	s := NewVerificationStore(store, "")

	// A record past its stamp but still retained by the store.
	ticket := "deadbeefdeadbeefdeadbeefdeadbeef"
	encoded, err := encodeVerificationRecord(&VerificationRecord{
		AccountID: "acct-1",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := store.Set(ctx, "verify:"+ticket, encoded, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Inside the retention margin the record answers "spent", twice
	// over; Consume writes it back after each miss.
	for i := 0; i < 2; i++ {
		if _, err := s.Consume(ctx, ticket); !errors.Is(err, ErrVerificationSpent) {
			t.Fatalf("Consume #%d past expiry = %v, want ErrVerificationSpent", i+1, err)
		}
	}

	// Once retention runs out the record is gone for good.
	now = now.Add(3 * time.Hour)
	if _, err := s.Consume(ctx, ticket); !errors.Is(err, ErrVerificationNotFound) {
		t.Fatalf("Consume after retention = %v, want ErrVerificationNotFound", err)
	}
}

func TestRestoreReinstatesTicket(t *testing.T) {
	ctx := context.Background()
	s := NewVerificationStore(kv.NewMemory(), "")

	ticket, err := s.Issue(ctx, "acct-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	record, err := s.Consume(ctx, ticket)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if err := s.Restore(ctx, ticket, record); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	again, err := s.Consume(ctx, ticket)
	if err != nil {
		t.Fatalf("Consume after Restore: %v", err)
	}
	if again.AccountID != "acct-1" {
		t.Fatalf("AccountID after Restore = %q", again.AccountID)
	}
}

func TestRestoreSkipsExpiredRecord(t *testing.T) {
	ctx := context.Background()
	s := NewVerificationStore(kv.NewMemory(), "")

	record := &VerificationRecord{
		AccountID: "acct-1",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	if err := s.Restore(ctx, "deadbeefdeadbeefdeadbeefdeadbeef", record); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if _, err := s.Consume(ctx, "deadbeefdeadbeefdeadbeefdeadbeef"); !errors.Is(err, ErrVerificationNotFound) {
		t.Fatalf("Consume after expired Restore = %v, want ErrVerificationNotFound", err)
	}
}

func TestRecordCodecRoundtrip(t *testing.T) {
	for _, record := range []*VerificationRecord{
		{AccountID: "acct-1", ExpiresAt: 1234567890},
		{AccountID: "acct-2", ExpiresAt: 987654321, Used: true},
	} {
		encoded, err := encodeVerificationRecord(record)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := decodeVerificationRecord(encoded)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if *decoded != *record {
			t.Fatalf("roundtrip = %+v, want %+v", decoded, record)
		}
	}
}

func TestRecordCodecRejectsGarbage(t *testing.T) {
	if _, err := decodeVerificationRecord(nil); err == nil {
		t.Fatal("decoded empty record")
	}
	if _, err := decodeVerificationRecord([]byte{99, 0, 0}); err == nil {
		t.Fatal("decoded unknown version")
	}
	if _, err := decodeVerificationRecord([]byte{verificationRecordVersionV1, 7, 0}); err == nil {
		t.Fatal("decoded invalid used flag")
	}
}
