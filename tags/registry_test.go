package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestNameTable_Intern(t *testing.T) {
	nt := NewNameTable()
	if id, ok := nt.Lookup(""); !ok || id != NoneName {
		t.Fatalf("empty name should be pre-interned as None, got %d %v", id, ok)
	}
	a := nt.Intern("Damage")
	b := nt.Intern("Damage")
	if a != b {
		t.Errorf("same name interned twice: %d != %d", a, b)
	}
	if a == NoneName {
		t.Error("real name got the None id")
	}
	if nt.Name(a) != "Damage" {
		t.Errorf("Name(%d) = %q", a, nt.Name(a))
	}
	if nt.Name(9999) != "" {
		t.Error("out of range id should map to empty name")
	}
	if nt.Len() != 2 {
		t.Errorf("Len = %d, want 2", nt.Len())
	}
}

func TestNameTable_ConcurrentIntern(t *testing.T) {
	nt := NewNameTable()
	var wg sync.WaitGroup
	ids := make([]NameID, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = nt.Intern("Shared.Name")
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent interning produced different ids: %v", ids)
		}
	}
}

func TestRequestTag_WhileLoading(t *testing.T) {
	r := NewRegistry()
	const n = 200
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Load.Group%d.Tag%d", i%10, i)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, name := range names {
			r.InsertTag(name, "")
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				name := names[(i*7+w)%n]
				if tag := r.RequestTag(name, false); tag.IsValid() && tag.Name() != name {
					t.Errorf("RequestTag(%q) returned %q", name, tag.Name())
					return
				}
			}
		}(w)
	}
	wg.Wait()
	<-done

	for _, name := range names {
		if tag := r.RequestTag(name, false); tag.Name() != name {
			t.Fatalf("%q missing after load", name)
		}
	}
}

func TestTag_Equality(t *testing.T) {
	r := weaponRegistry(t)
	a := r.RequestTag("Weapon.Melee", false)
	b := r.RequestTag("Weapon.Melee", false)
	c := r.RequestTag("Weapon", false)
	if a != b {
		t.Error("identical names should produce equal tags")
	}
	if a == c {
		t.Error("different names should produce different tags")
	}
	if !a.IsValid() {
		t.Error("registered tag should be valid")
	}
	m := map[Tag]int{a: 1}
	if m[b] != 1 {
		t.Error("equal tags should hash equally")
	}
}

func TestTag_InvalidNeverMatches(t *testing.T) {
	r := weaponRegistry(t)
	var none Tag
	if none.IsValid() {
		t.Error("zero tag should be invalid")
	}
	if none.String() != "None" {
		t.Errorf("String() = %q", none.String())
	}
	if r.TagsMatch(none, Explicit, none, Explicit) {
		t.Error("invalid tags should not match each other")
	}
	c := container(r, "Weapon")
	if c.HasTag(none, Explicit, Explicit) {
		t.Error("container should never have the invalid tag")
	}
	c.AddTag(none)
	if c.Num() != 1 {
		t.Error("adding the invalid tag should be a no-op")
	}
}

func TestRequestTag_Miss(t *testing.T) {
	r := weaponRegistry(t)
	if got := r.RequestTag("Weapon.Laser", false); got.IsValid() {
		t.Errorf("expected invalid tag, got %s", got)
	}
	if got := r.RequestTag("Weapon.Laser", true); got.IsValid() {
		t.Errorf("expected invalid tag, got %s", got)
	}
	r.RequestTag("Weapon.Laser", true)
	r.warnMu.Lock()
	n := len(r.warned)
	r.warnMu.Unlock()
	if n != 1 {
		t.Errorf("missing name should be remembered once, got %d entries", n)
	}
}

func TestInsertTag_SharedPrefixes(t *testing.T) {
	r := NewRegistry()
	r.InsertTag("A.B.C", "")
	r.InsertTag("A.B.D", "")

	if r.NumTags() != 4 {
		t.Fatalf("NumTags = %d, want 4 (A, A.B, A.B.C, A.B.D)", r.NumTags())
	}
	if len(r.nodes[rootNode].children) != 1 {
		t.Errorf("root should have exactly one child, has %d", len(r.nodes[rootNode].children))
	}
	ab := r.MustTag("A.B")
	children := r.TagChildren(ab)
	if children.Num() != 2 {
		t.Fatalf("A.B should have two children, got %s", children)
	}
	if children.At(0).Name() != "A.B.C" || children.At(1).Name() != "A.B.D" {
		t.Errorf("children = %s", children)
	}
}

func TestInsertTag_SameTagTwice(t *testing.T) {
	r := NewRegistry()
	first := r.InsertTag("Status.Stunned", "")
	second := r.InsertTag("Status.Stunned", "Crowd control")
	if first != second {
		t.Error("re-inserting a path should return the existing tag")
	}
	if r.NumTags() != 2 {
		t.Errorf("NumTags = %d, want 2", r.NumTags())
	}
	if got := r.Category(first); got != "Crowd control" {
		t.Errorf("empty category should be backfilled, got %q", got)
	}
	r.InsertTag("Status.Stunned", "Other")
	if got := r.Category(first); got != "Crowd control" {
		t.Errorf("existing category should be kept, got %q", got)
	}
}

func TestInsertTag_CullsEmptySegments(t *testing.T) {
	r := NewRegistry()
	tag := r.InsertTag(" Damage..Fire. ", "")
	if tag.Name() != "Damage.Fire" {
		t.Errorf("Name = %q", tag.Name())
	}
	if r.InsertTag(" . ", "").IsValid() {
		t.Error("all-empty path should give the invalid tag")
	}
}

func TestNodePathReconstruction(t *testing.T) {
	names := []string{"Damage.Physical.Slash", "Damage.Fire", "Status.Stunned", "Status"}
	r := buildRegistry(t, names)
	for _, tag := range r.AllTags().Tags() {
		var parts []string
		for cur := tag; cur.IsValid(); cur = r.DirectParent(cur) {
			parts = append([]string{r.SimpleName(cur)}, parts...)
		}
		if got := strings.Join(parts, "."); got != tag.Name() {
			t.Errorf("walk from %s rebuilt %q", tag, got)
		}
	}
}

func TestTagParents(t *testing.T) {
	r := weaponRegistry(t)
	pistol := r.MustTag("Weapon.Ranged.Pistol")
	parents := r.TagParents(pistol)
	want := container(r, "Weapon.Ranged.Pistol", "Weapon.Ranged", "Weapon")
	if !parents.Equal(want) {
		t.Errorf("TagParents = %s, want %s", parents, want)
	}
	if got := r.TagParents(Tag{}); !got.IsEmpty() {
		t.Errorf("parents of invalid tag = %s", got)
	}
}

func TestTagParents_TruncationProperty(t *testing.T) {
	r := buildRegistry(t, []string{"A.B.C.D", "A.X", "Q"})
	for _, tag := range r.AllTags().Tags() {
		parents := r.TagParents(tag)
		segs := strings.Split(tag.Name(), ".")
		if parents.Num() != len(segs) {
			t.Errorf("%s: %d parents, want %d", tag, parents.Num(), len(segs))
		}
		for i := len(segs); i > 0; i-- {
			name := strings.Join(segs[:i], ".")
			if !parents.HasTag(r.MustTag(name), Explicit, Explicit) {
				t.Errorf("%s: parents missing %s", tag, name)
			}
		}
	}
}

func TestTagChildrenAndDirectParent(t *testing.T) {
	r := weaponRegistry(t)
	weapon := r.MustTag("Weapon")
	children := r.TagChildren(weapon)
	want := container(r, "Weapon.Melee", "Weapon.Ranged", "Weapon.Ranged.Pistol")
	if !children.Equal(want) {
		t.Errorf("TagChildren = %s", children)
	}
	if children.HasTag(weapon, Explicit, Explicit) {
		t.Error("children should not include the tag itself")
	}
	if p := r.DirectParent(r.MustTag("Weapon.Ranged.Pistol")); p.Name() != "Weapon.Ranged" {
		t.Errorf("DirectParent = %s", p)
	}
	if p := r.DirectParent(weapon); p.IsValid() {
		t.Errorf("top-level tag should have no parent, got %s", p)
	}
}

func TestConstructTree_Idempotent(t *testing.T) {
	r := weaponRegistry(t)
	before := r.NumTags()
	changes := 0
	r.OnTreeChanged(func(*Registry) { changes++ })
	if err := r.ConstructTree(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.NumTags() != before {
		t.Errorf("NumTags changed from %d to %d", before, r.NumTags())
	}
	r.mu.RLock()
	n := len(r.tagsByName)
	r.mu.RUnlock()
	if n != before {
		t.Errorf("dictionary has %d entries, want %d", n, before)
	}
	if changes != 0 {
		t.Error("no-op construct should not notify listeners")
	}
}

func TestRebuildTree(t *testing.T) {
	r := weaponRegistry(t)
	melee := r.MustTag("Weapon.Melee")
	changes := 0
	unsubscribe := r.OnTreeChanged(func(*Registry) { changes++ })

	r.AddConfigTag(TableRow{Tag: "Weapon.Thrown.Grenade"})
	if err := r.RebuildTree(context.Background()); err != nil {
		t.Fatal(err)
	}
	if changes != 1 {
		t.Errorf("listeners notified %d times, want 1", changes)
	}
	if !r.IsRegistered(melee) {
		t.Error("tags minted before the rebuild should still resolve")
	}
	if _, ok := r.FindTag("Weapon.Thrown.Grenade"); !ok {
		t.Error("new config tag missing after rebuild")
	}

	unsubscribe()
	r.DestroyTree()
	if r.IsBuilt() || r.NumTags() != 0 {
		t.Error("DestroyTree should empty the tree")
	}
	if err := r.ConstructTree(context.Background()); err != nil {
		t.Fatal(err)
	}
	if changes != 1 {
		t.Error("unsubscribed listener still called")
	}
}

func TestConstructTree_SourceOrderAndConfig(t *testing.T) {
	r := NewRegistry(
		WithSources(
			&rowSource{name: "a", rows: []TableRow{{Tag: "Damage"}}},
			&rowSource{name: "b", rows: []TableRow{{Tag: "Damage", Category: "from b"}}},
		),
		WithConfigTags([]TableRow{{Tag: "Status.Stunned"}}),
		WithDeveloperTags([]TableRow{{Tag: "Debug.Godmode"}}),
	)
	if err := r.ConstructTree(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := r.Category(r.MustTag("Damage")); got != "from b" {
		t.Errorf("category = %q", got)
	}
	for _, name := range []string{"Status.Stunned", "Debug.Godmode"} {
		if _, ok := r.FindTag(name); !ok {
			t.Errorf("%s missing", name)
		}
	}

	s := DefaultSettings()
	s.ImportFromConfig = false
	r2 := NewRegistry(WithSettings(s), WithConfigTags([]TableRow{{Tag: "Status.Stunned"}}))
	if err := r2.ConstructTree(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := r2.FindTag("Status.Stunned"); ok {
		t.Error("config tags imported despite ImportFromConfig=false")
	}
}

func TestConstructTree_SourceError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry(WithSources(
		&rowSource{name: "good", rows: rowsOf("Damage")},
		&rowSource{name: "bad", err: boom},
	))
	err := r.ConstructTree(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if r.IsBuilt() || r.NumTags() != 0 {
		t.Error("failed build should leave an empty tree")
	}
}

func TestConstructTree_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRegistry(WithSources(&rowSource{name: "a", rows: rowsOf("Damage")}))
	if err := r.ConstructTree(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestTagsMatch(t *testing.T) {
	r := buildRegistry(t, []string{"A.B.C", "A.D", "X"})
	abc, ab, a, ad, x := r.MustTag("A.B.C"), r.MustTag("A.B"), r.MustTag("A"), r.MustTag("A.D"), r.MustTag("X")

	tests := []struct {
		name       string
		one        Tag
		m1         MatchType
		two        Tag
		m2         MatchType
		wantResult bool
	}{
		{"explicit same", abc, Explicit, abc, Explicit, true},
		{"explicit ancestor", abc, Explicit, a, Explicit, false},
		{"one includes parents", abc, IncludeParentTags, a, Explicit, true},
		{"one includes parents, two is child", a, IncludeParentTags, abc, Explicit, false},
		{"two includes parents", ab, Explicit, abc, IncludeParentTags, true},
		{"both include, shared root", abc, IncludeParentTags, ad, IncludeParentTags, true},
		{"both include, unrelated", abc, IncludeParentTags, x, IncludeParentTags, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.TagsMatch(tt.one, tt.m1, tt.two, tt.m2); got != tt.wantResult {
				t.Errorf("TagsMatch = %v, want %v", got, tt.wantResult)
			}
		})
	}
}

func TestTagsMatch_AcrossRegistries(t *testing.T) {
	r1 := weaponRegistry(t)
	r2 := weaponRegistry(t)
	if r1.TagsMatch(r1.MustTag("Weapon"), Explicit, r2.MustTag("Weapon"), Explicit) {
		t.Error("tags from different registries should not match")
	}
}

func TestWalk(t *testing.T) {
	r := weaponRegistry(t)
	var lines []string
	r.Walk(func(tag Tag, depth int) bool {
		lines = append(lines, strings.Repeat(" ", depth)+r.SimpleName(tag))
		return tag.Name() != "Weapon.Ranged"
	})
	want := []string{"Weapon", " Melee", " Ranged"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("Walk = %q, want %q", lines, want)
	}
}

func TestAllTagsSorted(t *testing.T) {
	r := buildRegistry(t, []string{"Zeta", "Alpha.Two", "Alpha.One"})
	got := r.AllTags().StringSimple()
	if got != "Alpha, Alpha.One, Alpha.Two, Zeta" {
		t.Errorf("AllTags = %q", got)
	}
}

func TestDefaultRegistry(t *testing.T) {
	if Default() != Default() {
		t.Error("Default should return one instance")
	}
}
