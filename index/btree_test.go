package index

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/tesseradb/tessera/core"
)

func TestSearchEmptyTree(t *testing.T) {
	tree := New(DefaultOrder)
	if got := tree.Search(core.NewInteger(1)); got != nil {
		t.Errorf("Search on empty tree = %v, want nil", got)
	}
	if tree.Len() != 0 {
		t.Errorf("Len = %d, want 0", tree.Len())
	}
}

func TestInsertAndSearch(t *testing.T) {
	tree := New(4)
	for i := int64(0); i < 100; i++ {
		tree.Insert(core.NewInteger(i), i+1000)
	}
	for i := int64(0); i < 100; i++ {
		got := tree.Search(core.NewInteger(i))
		if !reflect.DeepEqual(got, []int64{i + 1000}) {
			t.Fatalf("Search(%d) = %v, want [%d]", i, got, i+1000)
		}
	}
	if got := tree.Search(core.NewInteger(100)); got != nil {
		t.Errorf("Search(100) = %v, want nil", got)
	}
	if tree.Len() != 100 {
		t.Errorf("Len = %d, want 100", tree.Len())
	}
}

func TestDuplicateKeys(t *testing.T) {
	tree := New(DefaultOrder)
	tree.Insert(core.NewText("x"), 1)
	tree.Insert(core.NewText("x"), 2)
	tree.Insert(core.NewText("x"), 3)

	got := tree.Search(core.NewText("x"))
	if !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("Search = %v, want [1 2 3]", got)
	}

	tree.Delete(core.NewText("x"), 2)
	got = tree.Search(core.NewText("x"))
	if !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Fatalf("Search after delete = %v, want [1 3]", got)
	}
}

func TestDeleteRebalances(t *testing.T) {
	tree := New(4)
	const n = 200
	for i := int64(0); i < n; i++ {
		tree.Insert(core.NewInteger(i), i)
	}
	// Remove in an interleaved order to exercise borrow and merge on
	// both sides.
	for i := int64(0); i < n; i += 2 {
		tree.Delete(core.NewInteger(i), i)
	}
	for i := int64(0); i < n; i++ {
		got := tree.Search(core.NewInteger(i))
		if i%2 == 0 {
			if got != nil {
				t.Fatalf("Search(%d) = %v after delete, want nil", i, got)
			}
		} else if !reflect.DeepEqual(got, []int64{i}) {
			t.Fatalf("Search(%d) = %v, want [%d]", i, got, i)
		}
	}
	if tree.Len() != n/2 {
		t.Errorf("Len = %d, want %d", tree.Len(), n/2)
	}
}

func TestDeleteEverything(t *testing.T) {
	tree := New(3)
	for i := int64(0); i < 50; i++ {
		tree.Insert(core.NewInteger(i), i)
	}
	for i := int64(49); i >= 0; i-- {
		tree.Delete(core.NewInteger(i), i)
	}
	if tree.Len() != 0 {
		t.Fatalf("Len = %d after deleting everything, want 0", tree.Len())
	}
	tree.Insert(core.NewInteger(7), 7)
	if got := tree.Search(core.NewInteger(7)); !reflect.DeepEqual(got, []int64{7}) {
		t.Fatalf("Search after refill = %v, want [7]", got)
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	tree := New(DefaultOrder)
	tree.Insert(core.NewInteger(1), 1)
	tree.Delete(core.NewInteger(2), 2)
	tree.Delete(core.NewInteger(1), 99)
	if tree.Len() != 1 {
		t.Errorf("Len = %d, want 1", tree.Len())
	}
}

func TestRangeSearch(t *testing.T) {
	tree := New(4)
	for i := int64(0); i < 20; i++ {
		tree.Insert(core.NewInteger(i), i)
	}
	low := core.NewInteger(5)
	high := core.NewInteger(10)

	got := tree.RangeSearch(&low, &high, true, true)
	if !reflect.DeepEqual(got, []int64{5, 6, 7, 8, 9, 10}) {
		t.Errorf("inclusive range = %v", got)
	}
	got = tree.RangeSearch(&low, &high, false, false)
	if !reflect.DeepEqual(got, []int64{6, 7, 8, 9}) {
		t.Errorf("exclusive range = %v", got)
	}
	got = tree.RangeSearch(nil, &low, true, true)
	if !reflect.DeepEqual(got, []int64{0, 1, 2, 3, 4, 5}) {
		t.Errorf("open low bound = %v", got)
	}
	got = tree.RangeSearch(&high, nil, false, true)
	if !reflect.DeepEqual(got, []int64{11, 12, 13, 14, 15, 16, 17, 18, 19}) {
		t.Errorf("open high bound = %v", got)
	}
}

func TestMixedKeyOrdering(t *testing.T) {
	tree := New(DefaultOrder)
	tree.Insert(core.NewInteger(2), 1)
	tree.Insert(core.NewReal(1.5), 2)
	tree.Insert(core.Null(), 3)
	tree.Insert(core.NewInteger(1), 4)

	got := tree.RangeSearch(nil, nil, true, true)
	if !reflect.DeepEqual(got, []int64{3, 4, 2, 1}) {
		t.Errorf("ordered row ids = %v, want [3 4 2 1]", got)
	}
}

func TestRandomizedAgainstMap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tree := New(5)
	ref := map[int64]bool{}

	for i := 0; i < 2000; i++ {
		k := int64(rng.Intn(300))
		if rng.Intn(2) == 0 {
			if !ref[k] {
				tree.Insert(core.NewInteger(k), k)
				ref[k] = true
			}
		} else {
			tree.Delete(core.NewInteger(k), k)
			delete(ref, k)
		}
	}

	for k := int64(0); k < 300; k++ {
		got := tree.Search(core.NewInteger(k))
		if ref[k] && !reflect.DeepEqual(got, []int64{k}) {
			t.Fatalf("Search(%d) = %v, want [%d]", k, got, k)
		}
		if !ref[k] && got != nil {
			t.Fatalf("Search(%d) = %v, want nil", k, got)
		}
	}
	if tree.Len() != len(ref) {
		t.Errorf("Len = %d, want %d", tree.Len(), len(ref))
	}
}
