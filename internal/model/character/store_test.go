package character_test

import (
	"sync"
	"testing"

	"github.com/wowinn/acg-ai/internal/model/character"
)

func TestFindByIDSkipsInactive(t *testing.T) {
	items := character.Seed()
	items[0].Active = false
	store := character.NewMemoryStore(items)

	if _, ok := store.FindByID(items[0].ID); ok {
		t.Fatal("inactive characters must be invisible")
	}
	if _, ok := store.FindByID(items[1].ID); !ok {
		t.Fatal("active character not found")
	}
}

func TestListFiltersByCategory(t *testing.T) {
	store := character.NewMemoryStore(character.Seed())

	for _, c := range store.List(character.CategoryGames) {
		if c.Category != character.CategoryGames {
			t.Fatalf("unexpected category %s in filtered list", c.Category)
		}
	}

	if len(store.List("")) != len(character.Seed()) {
		t.Fatal("unfiltered list must return all active characters")
	}
}

func TestSearchMatchesAcrossFields(t *testing.T) {
	store := character.NewMemoryStore(character.Seed())

	results := store.Search("rem", "", 10)
	if len(results) != 1 || results[0].ID != "rem" {
		t.Fatalf("expected rem by english name, got %+v", results)
	}

	results = store.Search("调查兵团", "", 10)
	if len(results) != 1 || results[0].ID != "levi" {
		t.Fatalf("expected levi by description, got %+v", results)
	}

	if results := store.Search("不存在的角色", "", 10); len(results) != 0 {
		t.Fatalf("expected no matches, got %+v", results)
	}
}

func TestIncrementPopularityConcurrent(t *testing.T) {
	store := character.NewMemoryStore(character.Seed())

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := store.IncrementPopularity("rem"); err != nil {
					t.Errorf("IncrementPopularity err: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	c, ok := store.FindByID("rem")
	if !ok {
		t.Fatal("character not found")
	}
	if c.Popularity != workers*perWorker {
		t.Fatalf("lost updates: got %d want %d", c.Popularity, workers*perWorker)
	}
}

func TestIncrementPopularityUnknown(t *testing.T) {
	store := character.NewMemoryStore(nil)
	if err := store.IncrementPopularity("ghost"); err == nil {
		t.Fatal("expected error for unknown character")
	}
}
