package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func TestCanonicalIDFoldsSynonyms(t *testing.T) {
	cases := map[string]string{
		"eczema":            "eczema",
		"Eczema_Flare":      "eczema",
		"atopic_dermatitis": "eczema",
		"PSORIASIS_PLAQUE":  "psoriasis",
		"rosacea":           "rosacea",
	}
	for label, want := range cases {
		if got := CanonicalID(label); got != want {
			t.Errorf("CanonicalID(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestCanonicalIDSlugsUnknownLabels(t *testing.T) {
	if got := CanonicalID("Unregistered Condition!"); got != "unregistered-condition" {
		t.Fatalf("unexpected slug: %q", got)
	}
	if got := CanonicalID("contact_dermatitis"); got != "contact-dermatitis" {
		t.Fatalf("unexpected slug: %q", got)
	}
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"itching", "dry skin"}
	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned StringList
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(scanned) != 2 || scanned[0] != "itching" || scanned[1] != "dry skin" {
		t.Fatalf("unexpected scanned list: %v", scanned)
	}
}

type stubStore struct {
	records []ConditionRecord
	err     error
	calls   int
	lastIDs []string
}

func (s *stubStore) FindByIDs(ctx context.Context, ids []string) ([]ConditionRecord, error) {
	s.calls++
	s.lastIDs = ids
	return s.records, s.err
}

type mapCache struct {
	values  map[string]string
	getErr  error
	setErr  error
	setKeys []string
}

func (c *mapCache) Get(ctx context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.setKeys = append(c.setKeys, key)
	if c.setErr != nil {
		return c.setErr
	}
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value.(string)
	return nil
}

func TestCachedStoreFetchesMissesOnce(t *testing.T) {
	inner := &stubStore{records: []ConditionRecord{{ID: "eczema", Title: "Eczema"}}}
	cache := &mapCache{}
	store := NewCachedStore(inner, cache, time.Minute, zap.NewNop())

	records, err := store.FindByIDs(context.Background(), []string{"eczema"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "eczema" {
		t.Fatalf("unexpected records: %v", records)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 store call, got %d", inner.calls)
	}

	// Second lookup is served from cache.
	if _, err := store.FindByIDs(context.Background(), []string{"eczema"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected cached hit, store called %d times", inner.calls)
	}
}

func TestCachedStoreDegradesOnCacheFailure(t *testing.T) {
	inner := &stubStore{records: []ConditionRecord{{ID: "psoriasis", Title: "Psoriasis"}}}
	cache := &mapCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	store := NewCachedStore(inner, cache, time.Minute, zap.NewNop())

	records, err := store.FindByIDs(context.Background(), []string{"psoriasis"})
	if err != nil {
		t.Fatalf("cache failure must not fail the lookup: %v", err)
	}
	if len(records) != 1 || records[0].ID != "psoriasis" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestCachedStorePropagatesStoreError(t *testing.T) {
	inner := &stubStore{err: errors.New("db down")}
	store := NewCachedStore(inner, &mapCache{}, time.Minute, zap.NewNop())

	if _, err := store.FindByIDs(context.Background(), []string{"eczema"}); err == nil {
		t.Fatal("expected store error")
	}
}
