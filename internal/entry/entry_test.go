package entry

import "testing"

func TestAttrDescEqualCaseInsensitive(t *testing.T) {
	if !AttrDesc("cn").Equal(AttrDesc("CN")) {
		t.Errorf("expected cn and CN to be equal descriptions")
	}
	if AttrDesc("cn").Equal(AttrDesc("sn")) {
		t.Errorf("expected cn and sn to not be equal")
	}
}

func TestAttributeEqualOrderInsensitive(t *testing.T) {
	a1 := NewAttribute("mail", []byte("a@x"), []byte("b@x"))
	a2 := NewAttribute("MAIL", []byte("b@x"), []byte("a@x"))
	if !a1.Equal(a2) {
		t.Errorf("expected attributes with same multiset in different order to be equal")
	}
}

func TestAttributeEqualDuplicateValuesMatter(t *testing.T) {
	a1 := NewAttribute("mail", []byte("a@x"), []byte("a@x"))
	a2 := NewAttribute("mail", []byte("a@x"))
	if a1.Equal(a2) {
		t.Errorf("expected multisets of different multiplicity to differ")
	}
}

func TestEntryAddValueMergesRepeatedDescription(t *testing.T) {
	e := NewEntry("cn=foo,dc=example")
	e.AddValue("cn", []byte("foo"))
	e.AddValue("CN", []byte("bar"))
	if len(e.Attributes) != 1 {
		t.Fatalf("expected repeated description to merge into one attribute, got %d", len(e.Attributes))
	}
	if len(e.Attributes[0].Values) != 2 {
		t.Fatalf("expected both values to be present, got %d", len(e.Attributes[0].Values))
	}
}

func TestRemoveValueByExactBytes(t *testing.T) {
	a := NewAttribute("mail", []byte("a@x"))
	if !a.RemoveValue([]byte("a@x")) {
		t.Fatalf("expected removal to succeed")
	}
	if len(a.Values) != 0 {
		t.Fatalf("expected attribute to be empty after removal")
	}
	if a.RemoveValue([]byte("a@x")) {
		t.Fatalf("expected second removal to fail")
	}
}

func TestSplitDNRespectsEscapedComma(t *testing.T) {
	rdn, parent := SplitDN(`cn=Smith\, John,ou=people,dc=example,dc=com`)
	if rdn != `cn=Smith\, John` {
		t.Errorf("expected rdn to include escaped comma, got %q", rdn)
	}
	if parent != "ou=people,dc=example,dc=com" {
		t.Errorf("unexpected parent %q", parent)
	}
}

func TestSplitDNNoComma(t *testing.T) {
	rdn, parent := SplitDN("dc=example")
	if rdn != "dc=example" || parent != "" {
		t.Errorf("expected whole string as rdn with empty parent, got %q / %q", rdn, parent)
	}
}

func TestJoinDNRoundTrip(t *testing.T) {
	dn := "ou=people,dc=example,dc=com"
	rdn, parent := SplitDN(dn)
	if JoinDN(rdn, parent) != dn {
		t.Errorf("expected JoinDN to invert SplitDN")
	}
}

func TestSplitRDN(t *testing.T) {
	attr, val, ok := SplitRDN("cn=John Smith")
	if !ok || attr != "cn" || val != "John Smith" {
		t.Errorf("unexpected split: %q %q %t", attr, val, ok)
	}
}

func TestSynthesizeRenameDNNoNewSuperior(t *testing.T) {
	got := SynthesizeRenameDN("cn=old,ou=people,dc=example", "cn=new", nil)
	if got != "cn=new,ou=people,dc=example" {
		t.Errorf("unexpected dn %q", got)
	}
}

func TestSynthesizeRenameDNEmptyNewSuperior(t *testing.T) {
	empty := ""
	got := SynthesizeRenameDN("cn=old,ou=people,dc=example", "cn=new", &empty)
	if got != "cn=new" {
		t.Errorf("unexpected dn %q", got)
	}
}

func TestSynthesizeRenameDNWithNewSuperior(t *testing.T) {
	sup := "ou=other,dc=example"
	got := SynthesizeRenameDN("cn=old,ou=people,dc=example", "cn=new", &sup)
	if got != "cn=new,ou=other,dc=example" {
		t.Errorf("unexpected dn %q", got)
	}
}

func TestEntryToModsPreservesDocumentOrder(t *testing.T) {
	e := NewEntry("cn=foo,dc=example")
	e.AddValue("objectClass", []byte("top"))
	e.AddValue("cn", []byte("foo"))
	mods := EntryToMods(e)
	if len(mods) != 2 {
		t.Fatalf("expected 2 mods, got %d", len(mods))
	}
	if mods[0].Desc != "objectClass" || mods[1].Desc != "cn" {
		t.Errorf("expected document order to be preserved, got %v then %v", mods[0].Desc, mods[1].Desc)
	}
	if mods[0].Op != ModAdd || mods[1].Op != ModAdd {
		t.Errorf("expected ADD mods from an entry")
	}
}
