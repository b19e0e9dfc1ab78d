package sqlite

import "testing"

func TestSplitSQL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		first string
		tail  string
	}{
		{"empty", "", "", ""},
		{"whitespace only", "  \n\t", "", ""},
		{"single statement", "SELECT 1", "SELECT 1", ""},
		{"trailing semicolon", "SELECT 1;", "SELECT 1;", ""},
		{"two statements", "SELECT 1; SELECT 2", "SELECT 1;", " SELECT 2"},
		{"semicolon in string", "SELECT 'a;b'; SELECT 2", "SELECT 'a;b';", " SELECT 2"},
		{"escaped quote", "SELECT 'it''s; fine'; SELECT 2", "SELECT 'it''s; fine';", " SELECT 2"},
		{"double quoted identifier", `SELECT "a;b" FROM t; DELETE FROM t`, `SELECT "a;b" FROM t;`, " DELETE FROM t"},
		{"bracket identifier", "SELECT [a;b] FROM t; SELECT 2", "SELECT [a;b] FROM t;", " SELECT 2"},
		{"line comment", "SELECT 1 -- trailing; not a split\n; SELECT 2", "SELECT 1 -- trailing; not a split\n;", " SELECT 2"},
		{"block comment", "SELECT 1 /* ; */; SELECT 2", "SELECT 1 /* ; */;", " SELECT 2"},
		{"lone semicolon", ";", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, tail := splitSQL(tt.input)
			if first != tt.first {
				t.Errorf("Expected first %q, got %q", tt.first, first)
			}
			if tail != tt.tail {
				t.Errorf("Expected tail %q, got %q", tt.tail, tail)
			}
		})
	}
}
