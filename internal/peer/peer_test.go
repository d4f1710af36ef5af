package peer

import "testing"

func TestRegistryIdentify(t *testing.T) {
	reg := NewRegistry([]Record{
		{Kind: Child, AccountName: "child_1", AddressSuffix: "child1", AuthTokens: []string{"T"}},
		{Kind: Parent, AccountName: "parent", AuthTokens: []string{"P1", "P2"}},
	})

	ref, ok := reg.Identify("T")
	if !ok {
		t.Fatal("expected to identify token T")
	}
	if ref.Kind != Child || ref.AccountName != "child_1" || ref.AddressSuffix != "child1" {
		t.Errorf("unexpected ref: %+v", ref)
	}

	ref, ok = reg.Identify("P2")
	if !ok || ref.AccountName != "parent" {
		t.Errorf("expected to identify token P2 as parent, got %+v ok=%v", ref, ok)
	}

	if _, ok := reg.Identify("unknown"); ok {
		t.Error("expected unknown token to be rejected")
	}

	if _, ok := reg.Identify("T2"); ok {
		t.Error("expected a same-length-class non-match to be rejected")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{Parent: "parent", Child: "child", Sibling: "sibling"}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
