package assemble

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Sternrassler/acs-harvest/pkg/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.MustNew([]catalog.Entry{
		{Code: "X1", Label: "foo"},
		{Code: "X2", Label: "bar"},
		{Code: "X3", Label: "baz"},
	})
}

func recordMaps(records []*Record) []map[string]string {
	out := make([]map[string]string, len(records))
	for i, r := range records {
		out[i] = r.Map()
	}
	return out
}

func TestMerge_Basic(t *testing.T) {
	a := Table{{"ID", "X1"}, {"1", "a"}, {"2", "b"}}
	b := Table{{"ID", "X2"}, {"1", "c"}, {"2", "d"}}

	got := New(testCatalog()).Merge(a, b)

	want := []map[string]string{
		{"ID": "1", "foo": "a", "bar": "c"},
		{"ID": "2", "foo": "b", "bar": "d"},
	}
	if !reflect.DeepEqual(recordMaps(got), want) {
		t.Errorf("Merge() = %v, want %v", recordMaps(got), want)
	}

	wantKeys := []string{"ID", "foo", "bar"}
	if keys := got[0].Keys(); !reflect.DeepEqual(keys, wantKeys) {
		t.Errorf("Keys() = %v, want %v", keys, wantKeys)
	}
}

func TestMerge_CollisionKeepsFirst(t *testing.T) {
	tests := []struct {
		name string
		a    Table
		b    Table
		want map[string]string
	}{
		{
			name: "shared passthrough column",
			a:    Table{{"NAME", "X1"}, {"Block Group 1", "10"}},
			b:    Table{{"NAME", "X2"}, {"Block Group 1 (dup)", "20"}},
			want: map[string]string{"NAME": "Block Group 1", "foo": "10", "bar": "20"},
		},
		{
			name: "catalogued code in both",
			a:    Table{{"X1"}, {"from-a"}},
			b:    Table{{"X1"}, {"from-b"}},
			want: map[string]string{"foo": "from-a"},
		},
		{
			name: "raw label collides with code label",
			a:    Table{{"foo"}, {"raw"}},
			b:    Table{{"X1"}, {"coded"}},
			want: map[string]string{"foo": "raw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(testCatalog()).Merge(tt.a, tt.b)
			if len(got) != 1 {
				t.Fatalf("len(Merge()) = %d, want 1", len(got))
			}
			if !reflect.DeepEqual(got[0].Map(), tt.want) {
				t.Errorf("Merge() = %v, want %v", got[0].Map(), tt.want)
			}
		})
	}
}

func TestMerge_RowCountMismatch(t *testing.T) {
	tests := []struct {
		name     string
		a        Table
		b        Table
		wantRows int
	}{
		{
			name:     "first longer",
			a:        Table{{"ID", "X1"}, {"1", "a"}, {"2", "b"}, {"3", "c"}},
			b:        Table{{"ID", "X2"}, {"1", "d"}},
			wantRows: 1,
		},
		{
			name:     "second longer",
			a:        Table{{"ID", "X1"}, {"1", "a"}},
			b:        Table{{"ID", "X2"}, {"1", "d"}, {"2", "e"}},
			wantRows: 1,
		},
		{
			name:     "header only",
			a:        Table{{"ID", "X1"}},
			b:        Table{{"ID", "X2"}, {"1", "d"}},
			wantRows: 0,
		},
		{
			name:     "empty table",
			a:        Table{},
			b:        Table{{"ID", "X2"}, {"1", "d"}},
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(testCatalog()).Merge(tt.a, tt.b)
			if len(got) != tt.wantRows {
				t.Errorf("len(Merge()) = %d, want %d", len(got), tt.wantRows)
			}
		})
	}
}

func TestMerge_RowWiderThanHeader(t *testing.T) {
	a := Table{{"ID"}, {"1", "extra"}}
	b := Table{{"ID", "X2"}, {"1", "c"}}

	got := New(testCatalog()).Merge(a, b)
	want := map[string]string{"ID": "1", "bar": "c"}
	if !reflect.DeepEqual(got[0].Map(), want) {
		t.Errorf("Merge() = %v, want %v", got[0].Map(), want)
	}
}

func TestMergeAll_ThreeTables(t *testing.T) {
	a := Table{{"NAME", "X1"}, {"n1", "1"}}
	b := Table{{"NAME", "X2"}, {"n1", "2"}}
	c := Table{{"NAME", "X3", "X1"}, {"n1", "3", "ignored"}}

	got := New(testCatalog()).MergeAll(a, b, c)
	want := map[string]string{"NAME": "n1", "foo": "1", "bar": "2", "baz": "3"}
	if !reflect.DeepEqual(got[0].Map(), want) {
		t.Errorf("MergeAll() = %v, want %v", got[0].Map(), want)
	}
	if New(nil).MergeAll() != nil {
		t.Error("MergeAll() with no tables should return nil")
	}
}

func TestMergeByKey(t *testing.T) {
	a := Table{
		{"NAME", "X1", "state", "county"},
		{"A", "1", "06", "001"},
		{"B", "2", "06", "003"},
		{"C", "3", "06", "005"},
	}
	// Reordered, and missing county 005.
	b := Table{
		{"NAME", "X2", "state", "county"},
		{"B", "20", "06", "003"},
		{"A", "10", "06", "001"},
	}

	got, err := New(testCatalog()).MergeByKey([]string{"state", "county"}, a, b)
	if err != nil {
		t.Fatalf("MergeByKey() error = %v", err)
	}

	want := []map[string]string{
		{"NAME": "A", "foo": "1", "bar": "10", "state": "06", "county": "001"},
		{"NAME": "B", "foo": "2", "bar": "20", "state": "06", "county": "003"},
	}
	if !reflect.DeepEqual(recordMaps(got), want) {
		t.Errorf("MergeByKey() = %v, want %v", recordMaps(got), want)
	}
}

func TestMergeByKey_DuplicateKeyFirstWins(t *testing.T) {
	a := Table{{"state", "X1"}, {"01", "first"}, {"01", "second"}}
	b := Table{{"state", "X2"}, {"01", "b-first"}, {"01", "b-second"}}

	got, err := New(testCatalog()).MergeByKey([]string{"state"}, a, b)
	if err != nil {
		t.Fatalf("MergeByKey() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(MergeByKey()) = %d, want 1", len(got))
	}
	if v, _ := got[0].Get("foo"); v != "first" {
		t.Errorf("foo = %q, want first", v)
	}
	if v, _ := got[0].Get("bar"); v != "b-first" {
		t.Errorf("bar = %q, want b-first", v)
	}
}

func TestMergeByKey_MissingKey(t *testing.T) {
	a := Table{{"state", "X1"}, {"01", "1"}}
	b := Table{{"X2"}, {"2"}}

	_, err := New(testCatalog()).MergeByKey([]string{"state"}, a, b)
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("MergeByKey() error = %v, want ErrMissingKey", err)
	}

	_, err = New(testCatalog()).MergeByKey(nil, a)
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("MergeByKey(nil keys) error = %v, want ErrMissingKey", err)
	}
}

func TestGeoKeys(t *testing.T) {
	tbl := Table{{"NAME", "B01003_001E", "state", "county", "tract", "block group"}}
	want := []string{"state", "county", "tract", "block group"}
	if got := GeoKeys(tbl); !reflect.DeepEqual(got, want) {
		t.Errorf("GeoKeys() = %v, want %v", got, want)
	}
	if got := GeoKeys(Table{{"NAME", "state"}}); !reflect.DeepEqual(got, []string{"state"}) {
		t.Errorf("GeoKeys() = %v, want [state]", got)
	}
}

func TestTable_UnmarshalJSON(t *testing.T) {
	data := []byte(`[["NAME","B01003_001E","state"],["Alabama",5028092,"01"],["Nowhere",null,"99"]]`)

	var tbl Table
	if err := json.Unmarshal(data, &tbl); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := Table{
		{"NAME", "B01003_001E", "state"},
		{"Alabama", "5028092", "01"},
		{"Nowhere", "", "99"},
	}
	if !reflect.DeepEqual(tbl, want) {
		t.Errorf("Unmarshal() = %v, want %v", tbl, want)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
	if tbl.Column("state") != 2 {
		t.Errorf("Column(state) = %d, want 2", tbl.Column("state"))
	}
}

func TestTable_UnmarshalJSON_Invalid(t *testing.T) {
	tests := []string{
		`{"error": "unknown variable"}`,
		`[["a"],[["nested"]]]`,
		`not json`,
	}
	for _, data := range tests {
		var tbl Table
		if err := json.Unmarshal([]byte(data), &tbl); err == nil {
			t.Errorf("Unmarshal(%s) expected error", data)
		}
	}
}

func TestRecord(t *testing.T) {
	r := NewRecord(2)
	r.Set("b", "1")
	r.Set("a", "2")
	r.Set("b", "3")

	if !reflect.DeepEqual(r.Keys(), []string{"b", "a"}) {
		t.Errorf("Keys() = %v, want [b a]", r.Keys())
	}
	if v, _ := r.Get("b"); v != "3" {
		t.Errorf("Get(b) = %q, want 3", v)
	}
	if r.SetIfAbsent("a", "x") {
		t.Error("SetIfAbsent() on existing key should return false")
	}
	if !r.SetIfAbsent("c", "4") || r.Len() != 3 {
		t.Error("SetIfAbsent() on new key should add it")
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"b":"3","a":"2","c":"4"}` {
		t.Errorf("Marshal() = %s", data)
	}
}
