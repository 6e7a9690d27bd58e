package pgtablestore

import "testing"

func TestValidIdentifierRejectsUntrustedCharacters(t *testing.T) {
	cases := map[string]bool{
		"WADPerformanceCountersTable": true,
		"table_with_underscores":      true,
		"":                            false,
		"table; DROP TABLE x":         false,
		"table-with-dash":             false,
		"table'name":                  false,
	}
	for name, want := range cases {
		if got := validIdentifier(name); got != want {
			t.Errorf("validIdentifier(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSplitContinuationRoundTrips(t *testing.T) {
	pk, rk := splitContinuation("")
	if pk != "" || rk != "" {
		t.Fatalf("empty continuation: got (%q, %q)", pk, rk)
	}

	pk, rk = splitContinuation("pk1\x00rk1")
	if pk != "pk1" || rk != "rk1" {
		t.Fatalf("got (%q, %q), want (pk1, rk1)", pk, rk)
	}

	pk, rk = splitContinuation("malformed")
	if pk != "" || rk != "" {
		t.Fatalf("malformed continuation: got (%q, %q)", pk, rk)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("WADPerformanceCountersTable"); got != `"WADPerformanceCountersTable"` {
		t.Fatalf("quoteIdent = %q", got)
	}
}
