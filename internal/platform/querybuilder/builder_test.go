package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("primary_id", "secondary_id").
		From("player_mappings").
		OrderBy("primary_id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT primary_id, secondary_id FROM player_mappings ORDER BY primary_id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_RequiresTable(t *testing.T) {
	if _, _, err := Select("*").ToSQL(); err == nil {
		t.Fatalf("expected error for missing table")
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("player_mappings").
		Columns("primary_id", "secondary_id").
		Values(int64(1), "u1").
		Suffix("ON CONFLICT (primary_id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO player_mappings (primary_id, secondary_id) VALUES ($1, $2) ON CONFLICT (primary_id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(1) || args[1] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_ValueCountMismatch(t *testing.T) {
	_, _, err := InsertInto("player_mappings").Columns("primary_id", "secondary_id").Values(int64(1)).ToSQL()
	if err == nil {
		t.Fatalf("expected error for value count mismatch")
	}
}

func TestInsertModel(t *testing.T) {
	type row struct {
		PrimaryID int64   `db:"primary_id"`
		Name      string  `db:"primary_name,omitempty"`
		Note      *string `db:"-"`
		hidden    string
	}

	query, args, err := InsertModel("player_mappings", &row{PrimaryID: 7, Name: "Salah", hidden: "x"}, "")
	if err != nil {
		t.Fatalf("build insert model: %v", err)
	}

	wantQuery := "INSERT INTO player_mappings (primary_id, primary_name) VALUES ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(7) || args[1] != "Salah" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel_RejectsNonStruct(t *testing.T) {
	var nilRow *struct{}
	for _, model := range []any{nilRow, 42, struct{ A int }{A: 1}} {
		if _, _, err := InsertModel("t", model, ""); err == nil {
			t.Fatalf("expected error for model %#v", model)
		}
	}
}
