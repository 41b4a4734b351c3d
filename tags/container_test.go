package tags

import "testing"

func TestContainer_AddRemove(t *testing.T) {
	r := weaponRegistry(t)
	melee := r.MustTag("Weapon.Melee")
	pistol := r.MustTag("Weapon.Ranged.Pistol")

	c := container(r, "Weapon")
	before := c.Clone()

	c.AddTag(melee)
	if !c.RemoveTag(melee) {
		t.Error("RemoveTag should report the removal")
	}
	if !c.Equal(before) {
		t.Errorf("add then remove changed container: %s", c)
	}
	if c.RemoveTag(pistol) {
		t.Error("removing an absent tag should report false")
	}

	c.AddTag(melee)
	c.AddTag(melee)
	if c.Num() != 2 {
		t.Errorf("duplicate add: Num = %d", c.Num())
	}

	c.RemoveAllTags()
	if !c.IsEmpty() || c.IsValid() {
		t.Error("RemoveAllTags should empty the container")
	}
}

func TestContainer_AppendAndRemoveTags(t *testing.T) {
	r := weaponRegistry(t)
	c := container(r, "Weapon", "Weapon.Melee")
	c.AppendTags(container(r, "Weapon.Melee", "Weapon.Ranged"))
	if c.StringSimple() != "Weapon, Weapon.Melee, Weapon.Ranged" {
		t.Errorf("AppendTags = %q", c.StringSimple())
	}
	c.RemoveTags(container(r, "Weapon", "Weapon.Ranged.Pistol"))
	if c.StringSimple() != "Weapon.Melee, Weapon.Ranged" {
		t.Errorf("RemoveTags = %q", c.StringSimple())
	}
	if c.String() != `"Weapon.Melee", "Weapon.Ranged"` {
		t.Errorf("String = %q", c.String())
	}
}

func TestContainer_CloneIsIndependent(t *testing.T) {
	r := weaponRegistry(t)
	c := container(r, "Weapon", "Weapon.Melee")
	d := c.Clone()
	d.RemoveTag(r.MustTag("Weapon"))
	if c.Num() != 2 {
		t.Error("mutating a clone changed the original")
	}
}

func TestContainer_CopyIsIndependent(t *testing.T) {
	r := weaponRegistry(t)
	c := container(r, "Weapon", "Weapon.Melee", "Weapon.Ranged")
	d := c
	d.RemoveTag(r.MustTag("Weapon"))
	if got := c.StringSimple(); got != "Weapon, Weapon.Melee, Weapon.Ranged" {
		t.Errorf("removing from a copy changed the original: %q", got)
	}
	if got := d.StringSimple(); got != "Weapon.Melee, Weapon.Ranged" {
		t.Errorf("copy = %q", got)
	}

	// Both sides grow from the same starting point.
	e := c
	e.AddTag(r.MustTag("Weapon.Ranged.Pistol"))
	c.RemoveTag(r.MustTag("Weapon.Melee"))
	c.AddTagFast(r.MustTag("Weapon.Melee"))
	if got := e.StringSimple(); got != "Weapon, Weapon.Melee, Weapon.Ranged, Weapon.Ranged.Pistol" {
		t.Errorf("appending to the original changed a copy: %q", got)
	}
	if got := c.StringSimple(); got != "Weapon, Weapon.Ranged, Weapon.Melee" {
		t.Errorf("original = %q", got)
	}
}

func TestContainer_HasTagEndToEnd(t *testing.T) {
	r := weaponRegistry(t)
	weapon := r.MustTag("Weapon")
	c := container(r, "Weapon.Ranged.Pistol")

	if c.HasTag(weapon, Explicit, Explicit) {
		t.Error("HasTag(Weapon, Explicit, Explicit) should be false")
	}
	if !c.HasTag(weapon, Explicit, IncludeParentTags) {
		t.Error("HasTag(Weapon, Explicit, IncludeParentTags) should be true")
	}
	if c.HasTag(r.MustTag("Weapon.Melee"), Explicit, IncludeParentTags) {
		t.Error("sibling branch should not match")
	}
}

func TestContainer_HasTagContainerParents(t *testing.T) {
	r := weaponRegistry(t)
	c := container(r, "Weapon.Ranged")
	pistol := r.MustTag("Weapon.Ranged.Pistol")
	if !c.HasTag(pistol, IncludeParentTags, Explicit) {
		t.Error("member ancestor of the checked tag should match with containerMatch=IncludeParentTags")
	}
	if c.HasTag(pistol, Explicit, IncludeParentTags) {
		t.Error("member ancestor should not match with tagMatch=IncludeParentTags only")
	}
}

func TestContainer_MatchesAnyAll(t *testing.T) {
	r := buildRegistry(t, []string{"Damage.Physical.Slash", "Damage.Fire", "Status.Stunned", "Status.Slowed"})
	subject := container(r, "Damage.Physical.Slash", "Status.Stunned")

	tests := []struct {
		name    string
		other   Container
		wantAny bool
		wantAll bool
	}{
		{"ancestor criterion", container(r, "Damage"), true, true},
		{"exact criterion", container(r, "Status.Stunned"), true, true},
		{"one of two", container(r, "Damage.Fire", "Status"), true, false},
		{"none", container(r, "Damage.Fire", "Status.Slowed"), false, false},
		{"both ancestors", container(r, "Damage.Physical", "Status"), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := subject.MatchesAny(tt.other, false); got != tt.wantAny {
				t.Errorf("MatchesAny = %v, want %v", got, tt.wantAny)
			}
			if got := subject.MatchesAll(tt.other, false); got != tt.wantAll {
				t.Errorf("MatchesAll = %v, want %v", got, tt.wantAll)
			}
		})
	}
}

func TestContainer_SubjectIsNotExpandedDownward(t *testing.T) {
	r := buildRegistry(t, []string{"Damage.Physical.Slash"})
	subject := container(r, "Damage")
	if subject.MatchesAny(container(r, "Damage.Physical.Slash"), false) {
		t.Error("a subject holding only the ancestor should not match a more specific criterion")
	}
}

func TestContainer_MatchesEmpty(t *testing.T) {
	r := weaponRegistry(t)
	subject := container(r, "Weapon.Melee")
	var empty Container
	if !subject.MatchesAny(empty, true) || subject.MatchesAny(empty, false) {
		t.Error("MatchesAny on empty other should return countEmptyAsMatch")
	}
	if !subject.MatchesAll(empty, true) || subject.MatchesAll(empty, false) {
		t.Error("MatchesAll on empty other should return countEmptyAsMatch")
	}
}

func TestContainer_HasAnyAllExact(t *testing.T) {
	r := weaponRegistry(t)
	c := container(r, "Weapon.Melee", "Weapon.Ranged")
	if c.HasAnyTag(container(r, "Weapon")) {
		t.Error("HasAnyTag is exact")
	}
	if !c.HasAllTags(container(r, "Weapon.Melee")) {
		t.Error("HasAllTags subset")
	}
	if !c.HasAllTags(Container{}) {
		t.Error("HasAllTags of empty")
	}
}

func TestContainer_Filter(t *testing.T) {
	r := weaponRegistry(t)
	c := container(r, "Weapon.Melee", "Weapon.Ranged.Pistol")
	got := c.Filter(container(r, "Weapon.Ranged"), IncludeParentTags, Explicit)
	if got.StringSimple() != "Weapon.Ranged.Pistol" {
		t.Errorf("Filter = %q", got.StringSimple())
	}
}

func TestTag_MatchesAny(t *testing.T) {
	r := weaponRegistry(t)
	pistol := r.MustTag("Weapon.Ranged.Pistol")
	if !pistol.MatchesAny(container(r, "Weapon")) {
		t.Error("pistol should match its ancestor")
	}
	if pistol.MatchesAny(container(r, "Weapon.Melee")) {
		t.Error("pistol should not match a sibling branch")
	}
}
