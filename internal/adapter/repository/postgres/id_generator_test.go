package postgres

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestULIDGeneratorIsMonotonic(t *testing.T) {
	gen := NewULIDGenerator()
	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return frozen }

	prev := gen.Generate()
	for i := 0; i < 100; i++ {
		next := gen.Generate()
		if next <= prev {
			t.Fatalf("ids must increase within one millisecond: %s then %s", prev, next)
		}
		prev = next
	}

	id, err := ulid.Parse(prev)
	if err != nil {
		t.Fatalf("generated id does not parse: %v", err)
	}
	if got := ulid.Time(id.Time()); !got.Equal(frozen) {
		t.Fatalf("expected timestamp %v, got %v", frozen, got)
	}
}
