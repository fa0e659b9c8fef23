package gastatus

import (
	"testing"

	"github.com/harrison/gasctl/internal/models"
)

func TestParseCacheGetSetRoundTrip(t *testing.T) {
	c := NewParseCache(10)
	parsed := models.NewParsedOutput()
	parsed.TotalEvents = 5

	if _, ok := c.Get("a.ndjson", 1); ok {
		t.Fatal("expected miss before set")
	}

	c.Set("a.ndjson", 1, parsed)
	got, ok := c.Get("a.ndjson", 1)
	if !ok || got.TotalEvents != 5 {
		t.Fatalf("expected hit with TotalEvents=5, got %+v, ok=%v", got, ok)
	}
}

func TestParseCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewParseCache(2)

	c.Set("a", 1, models.NewParsedOutput())
	c.Set("b", 1, models.NewParsedOutput())
	c.Get("a", 1) // touch a, making b the LRU
	c.Set("c", 1, models.NewParsedOutput())

	if _, ok := c.Get("b", 1); ok {
		t.Fatal("expected b to be evicted as least recently used")
	}
	if _, ok := c.Get("a", 1); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get("c", 1); !ok {
		t.Fatal("expected c to be present")
	}
}

func TestParseCacheInvalidatePrefix(t *testing.T) {
	c := NewParseCache(10)
	c.Set("a.ndjson", 1, models.NewParsedOutput())
	c.Set("a.ndjson", 2, models.NewParsedOutput())
	c.Set("b.ndjson", 1, models.NewParsedOutput())

	c.InvalidatePrefix("a.ndjson")

	if _, ok := c.Get("a.ndjson", 1); ok {
		t.Fatal("expected a.ndjson:1 to be invalidated")
	}
	if _, ok := c.Get("a.ndjson", 2); ok {
		t.Fatal("expected a.ndjson:2 to be invalidated")
	}
	if _, ok := c.Get("b.ndjson", 1); !ok {
		t.Fatal("expected b.ndjson:1 to survive")
	}
}

func TestParseCacheStatsTracksHitsAndMisses(t *testing.T) {
	c := NewParseCache(10)
	c.Set("a", 1, models.NewParsedOutput())

	c.Get("a", 1) // hit
	c.Get("z", 1) // miss

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit and 1 miss", stats)
	}
}
