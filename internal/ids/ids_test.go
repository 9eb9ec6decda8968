package ids

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var idPattern = regexp.MustCompile(`^LHG-TK(\d{2,})-([A-Z2-9]{4})$`)

func TestNextFormat(t *testing.T) {
	g := NewGenerator("", rand.New(rand.NewSource(1)))

	for i := 0; i < 100; i++ {
		id := g.Next()
		m := idPattern.FindStringSubmatch(id)
		if m == nil {
			t.Fatalf("id %q does not match expected format", id)
		}
		n, _ := strconv.Atoi(m[1])
		if n != i+1 {
			t.Fatalf("numeric component = %d, want %d", n, i+1)
		}
		for _, c := range m[2] {
			if strings.ContainsRune("IO01", c) {
				t.Fatalf("id %q contains ambiguous glyph %q", id, c)
			}
		}
	}
}

func TestSetBaselineMonotonic(t *testing.T) {
	g := NewGenerator("LHG-TK", rand.New(rand.NewSource(2)))

	g.SetBaseline(50)
	g.SetBaseline(10) // must not decrease

	id := g.Next()
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		t.Fatalf("unexpected id %q", id)
	}
	n, _ := strconv.Atoi(m[1])
	if n != 51 {
		t.Fatalf("numeric component after baseline(50), baseline(10) = %d, want 51", n)
	}
}

func TestCustomPrefix(t *testing.T) {
	g := NewGenerator("EVT-", rand.New(rand.NewSource(3)))
	if id := g.Next(); !strings.HasPrefix(id, "EVT-01-") {
		t.Fatalf("id %q does not carry custom prefix", id)
	}
}

func TestNextUnique(t *testing.T) {
	g := NewGenerator("", rand.New(rand.NewSource(4)))
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
