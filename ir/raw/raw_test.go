package raw

import "testing"

func TestObjectRefKeyRoundTrip(t *testing.T) {
	refs := []ObjectRef{
		{},
		{Num: 1},
		{Num: 1, Gen: 1},
		{Num: 42, Gen: 7},
		{Num: 1 << 20, Gen: 65535},
	}
	seen := make(map[uint64]ObjectRef)
	for _, ref := range refs {
		key := ref.Key()
		if got := FromKey(key); got != ref {
			t.Errorf("FromKey(Key(%v)) = %v", ref, got)
		}
		if prev, dup := seen[key]; dup {
			t.Errorf("refs %v and %v share key %d", prev, ref, key)
		}
		seen[key] = ref
	}
}

func TestObjectRefKeySeparatesGenerations(t *testing.T) {
	a := ObjectRef{Num: 5, Gen: 0}
	b := ObjectRef{Num: 5, Gen: 1}
	if a.Key() == b.Key() {
		t.Fatalf("generations collapsed to one key")
	}
}

func TestDocumentResolve(t *testing.T) {
	doc := NewDocument()
	target := Dict()
	target.Set(NameLiteral("Kind"), NameLiteral("Target"))
	ref := ObjectRef{Num: 3}
	doc.Objects[ref] = target

	if got, ok := doc.Resolve(Ref(3, 0)); !ok || got != Object(target) {
		t.Errorf("Resolve returned %v, %v", got, ok)
	}
	// Direct objects pass through, dangling refs report absence.
	if got, ok := doc.Resolve(NumberInt(9)); !ok || got != Object(NumberInt(9)) {
		t.Errorf("direct object changed: %v, %v", got, ok)
	}
	if _, ok := doc.Resolve(Ref(99, 0)); ok {
		t.Errorf("dangling ref reported as present")
	}
}

func TestDictCloneIsShallow(t *testing.T) {
	shared := NewArray(NumberInt(1))
	d := Dict()
	d.Set(NameLiteral("A"), shared)

	c := d.Clone()
	c.Set(NameLiteral("B"), NumberInt(2))
	if d.Len() != 1 {
		t.Errorf("clone write leaked into the original")
	}
	got, _ := c.Get(NameLiteral("A"))
	if got != Object(shared) {
		t.Errorf("clone deep-copied the value")
	}
}
