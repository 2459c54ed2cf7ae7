package audit

import (
	"strings"
	"testing"
)

func TestBuildBaseQueryNumbersPlaceholders(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: "LEAVE_REQUEST_APPROVED", EntityID: "r1", ActorUser: "u-hr"})
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
	for _, want := range []string{"action = $1", "entity_id = $2", "actor_user_id = $3"} {
		if !strings.Contains(query, want) {
			t.Fatalf("expected %q in %q", want, query)
		}
	}
	if strings.Contains(query, "entity_type") {
		t.Fatalf("unexpected entity_type clause in %q", query)
	}
}

func TestBuildBaseQueryWithoutFilter(t *testing.T) {
	query, args := buildBaseQuery("SELECT id", Filter{})
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
	if !strings.HasSuffix(query, "WHERE 1=1") {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestMarshalSnapshotNil(t *testing.T) {
	raw, err := marshalSnapshot(nil)
	if err != nil || raw != nil {
		t.Fatalf("expected nil snapshot, got %s, %v", raw, err)
	}
	raw, err = marshalSnapshot(map[string]string{"status": "APPROVED"})
	if err != nil || string(raw) != `{"status":"APPROVED"}` {
		t.Fatalf("unexpected snapshot %s, %v", raw, err)
	}
}
