package cache

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
)

func TestCache_PutThenGet_Hit(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/proj/.polybench/compile-cache.json")

	key := Key{BenchmarkName: "hash_k", Lang: dsl.LangGo, Hash: HashSource("package main\n")}
	if err := c.Put(key, Entry{Success: true, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if !got.Success {
		t.Errorf("Success = false, want true")
	}
}

func TestCache_Get_MissOnDifferentHash(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/proj/.polybench/compile-cache.json")

	key := Key{BenchmarkName: "hash_k", Lang: dsl.LangGo, Hash: HashSource("v1")}
	c.Put(key, Entry{Success: true, Timestamp: time.Now()})

	other := Key{BenchmarkName: "hash_k", Lang: dsl.LangGo, Hash: HashSource("v2")}
	if _, ok := c.Get(other); ok {
		t.Error("expected a miss when the synthesized source's hash changed")
	}
}

func TestCache_Get_ExpiredEntryIsAMiss(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/proj/.polybench/compile-cache.json")

	key := Key{BenchmarkName: "hash_k", Lang: dsl.LangGo, Hash: HashSource("v1")}
	c.Put(key, Entry{Success: true, Timestamp: time.Now().Add(-25 * time.Hour)})

	if _, ok := c.Get(key); ok {
		t.Error("expected an entry older than the 24h TTL to be a miss")
	}
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/proj/.polybench/compile-cache.json"

	key := Key{BenchmarkName: "hash_k", Lang: dsl.LangRust, Hash: HashSource("fn main() {}")}
	c1 := New(fs, path)
	if err := c1.Put(key, Entry{Success: false, ErrorMessage: "E0425: cannot find value", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	c2 := New(fs, path)
	got, ok := c2.Get(key)
	if !ok {
		t.Fatal("expected the second Cache instance to see the persisted entry")
	}
	if got.Success {
		t.Error("Success = true, want false (a recorded compile failure)")
	}
	if got.ErrorMessage == "" {
		t.Error("expected ErrorMessage to be preserved across reloads")
	}
}

func TestCache_Prune_RemovesOnlyExpired(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/proj/.polybench/compile-cache.json")

	fresh := Key{BenchmarkName: "a", Lang: dsl.LangGo, Hash: "h1"}
	stale := Key{BenchmarkName: "b", Lang: dsl.LangGo, Hash: "h2"}
	c.Put(fresh, Entry{Success: true, Timestamp: time.Now()})
	c.Put(stale, Entry{Success: true, Timestamp: time.Now().Add(-48 * time.Hour)})

	if err := c.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, ok := c.Get(fresh); !ok {
		t.Error("expected the fresh entry to survive Prune")
	}
	if _, ok := c.Get(stale); ok {
		t.Error("expected the stale entry to be gone after Prune")
	}
}

func TestHashSource_DifferentContentDifferentHash(t *testing.T) {
	if HashSource("a") == HashSource("b") {
		t.Error("expected distinct source to hash differently")
	}
	if HashSource("a") != HashSource("a") {
		t.Error("expected identical source to hash identically")
	}
}
