package converter

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestKeyForPriority(t *testing.T) {
	tests := []struct {
		name string
		fill map[string]string
		want string
	}{
		{
			name: "item id first",
			fill: map[string]string{"Item ID": "42", "SKU": "S-1", "Item Name": "Hammer", "Description": "x"},
			want: "id:42",
		},
		{
			name: "sku second",
			fill: map[string]string{"SKU": "S-1", "Item Name": "Hammer", "Description": "x"},
			want: "sku:S-1",
		},
		{
			name: "name and description third",
			fill: map[string]string{"Item Name": " Hammer ", "Description": "Steel Head"},
			want: "name_desc:hammer_steel head",
		},
		{
			name: "value hash fallback",
			fill: map[string]string{"Item Type": "Tools", "CF.URL": "http://x"},
			want: "hash:Tools_http://x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewRow()
			// Clear constants so the hash fallback case sees only the test data.
			for k := range row {
				row[k] = ""
			}
			for k, v := range tt.fill {
				row[k] = v
			}
			if got := KeyFor(row); got != tt.want {
				t.Errorf("KeyFor = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyForTruncatesDescription(t *testing.T) {
	row := NewRow()
	row["Item Name"] = "Widget"
	row["Description"] = strings.Repeat("d", 80)

	want := "name_desc:widget_" + strings.Repeat("d", 50)
	if got := KeyFor(row); got != want {
		t.Errorf("KeyFor = %q, want %q", got, want)
	}
}

func TestKeyForEmptyRowNeverCollides(t *testing.T) {
	row := NewRow()
	for k := range row {
		row[k] = ""
	}

	key := KeyFor(row)
	if !strings.HasPrefix(key, "unknown:") {
		t.Errorf("empty row key = %q, want unknown: prefix", key)
	}
}

func TestKeySetAdd(t *testing.T) {
	set := NewKeySet()

	if set.Add("id:1") {
		t.Error("first Add reported duplicate")
	}
	if !set.Add("id:1") {
		t.Error("second Add did not report duplicate")
	}
	if set.Add("id:2") {
		t.Error("distinct key reported duplicate")
	}
	if got := set.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}

func TestKeySetConcurrent(t *testing.T) {
	const goroutines = 8
	const perKey = 4

	set := NewKeySet()

	var wg sync.WaitGroup
	var mu sync.Mutex
	novel := 0

	// Every key is offered by several goroutines; exactly one offer per key
	// may be accepted as novel.
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("id:%d", i%(100/perKey))
				if !set.Add(key) {
					mu.Lock()
					novel++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if want := 100 / perKey; novel != want {
		t.Errorf("novel insertions = %d, want %d", novel, want)
	}
}
