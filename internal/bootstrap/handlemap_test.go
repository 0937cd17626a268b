package bootstrap

import (
	"reflect"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	m := &HandleMap{}
	m.Set(3, 0xDEAD)
	m.Set(4, 0xBEEF)
	m.Set(5, 0x1)

	s := m.Serialize()
	got := ParseHandleMap(s)

	for _, idx := range []int{3, 4, 5} {
		want, wantOK := m.Get(idx)
		gotVal, gotOK := got.Get(idx)
		if wantOK != gotOK || want != gotVal {
			t.Errorf("index %d: got (%x,%v), want (%x,%v)", idx, gotVal, gotOK, want, wantOK)
		}
	}
}

func TestParseSkipsMalformedEntriesSilently(t *testing.T) {
	m := ParseHandleMap("3:0xAB;garbage;4:notHex;5:0xCD")
	v3, ok3 := m.Get(3)
	if !ok3 || v3 != 0xAB {
		t.Errorf("index 3 = (%x,%v), want (0xAB,true)", v3, ok3)
	}
	if _, ok := m.Get(4); ok {
		t.Error("index 4 should be absent (malformed hex)")
	}
	v5, ok5 := m.Get(5)
	if !ok5 || v5 != 0xCD {
		t.Errorf("index 5 = (%x,%v), want (0xCD,true)", v5, ok5)
	}
}

func TestParseSkipsUnknownIndices(t *testing.T) {
	m := ParseHandleMap("0:0x1;7:0x2;3:0x3")
	if _, ok := m.Get(0); ok {
		t.Error("index 0 is out of range 3-5 and should not be retained")
	}
	v3, ok3 := m.Get(3)
	if !ok3 || v3 != 0x3 {
		t.Errorf("index 3 = (%x,%v), want (0x3,true)", v3, ok3)
	}
}

func TestEmptyMapIsNotAnError(t *testing.T) {
	m := ParseHandleMap("")
	if !m.Empty() {
		t.Error("empty input should produce an empty map")
	}
	if m.Serialize() != "" {
		t.Errorf("Serialize of empty map = %q, want empty string", m.Serialize())
	}
}

func TestFromEnvUsesLookupFunction(t *testing.T) {
	env := map[string]string{EnvVar: "3:0xFF"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	m := FromEnv(lookup)
	v, ok := m.Get(3)
	if !ok || v != 0xFF {
		t.Errorf("Get(3) = (%x,%v), want (0xFF,true)", v, ok)
	}
}

func TestFromEnvAbsentYieldsEmptyMap(t *testing.T) {
	lookup := func(string) (string, bool) { return "", false }
	m := FromEnv(lookup)
	if !m.Empty() {
		t.Error("absent environment variable should yield an empty map")
	}
}

func TestExtractFlagRemovesEntryFromArgv(t *testing.T) {
	argv := []string{"prog", "--aria-fd-map=3:0x10;4:0x20", "-x", "arg"}
	m, found, remaining := ExtractFlag(argv)
	if !found {
		t.Fatal("expected flag to be found")
	}
	want := []string{"prog", "-x", "arg"}
	if !reflect.DeepEqual(remaining, want) {
		t.Errorf("remaining = %v, want %v", remaining, want)
	}
	v3, ok3 := m.Get(3)
	if !ok3 || v3 != 0x10 {
		t.Errorf("Get(3) = (%x,%v), want (0x10,true)", v3, ok3)
	}
}

func TestExtractFlagNotFound(t *testing.T) {
	argv := []string{"prog", "-x"}
	m, found, remaining := ExtractFlag(argv)
	if found {
		t.Error("flag should not be found")
	}
	if !m.Empty() {
		t.Error("map should be empty when flag absent")
	}
	if !reflect.DeepEqual(remaining, argv) {
		t.Errorf("remaining = %v, want unchanged %v", remaining, argv)
	}
}

func TestResolvePrefersEnvironmentOverCommandLine(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == EnvVar {
			return "3:0x1", true
		}
		return "", false
	}
	argv := []string{"prog", "--aria-fd-map=4:0x2"}
	m, cleanArgv := Resolve(lookup, argv)

	if _, ok := m.Get(3); !ok {
		t.Error("expected environment map (index 3) to win")
	}
	if _, ok := m.Get(4); ok {
		t.Error("command-line map should be ignored when environment is present")
	}
	want := []string{"prog"}
	if !reflect.DeepEqual(cleanArgv, want) {
		t.Errorf("cleanArgv = %v, want %v (flag must still be stripped)", cleanArgv, want)
	}
}

func TestResolveFallsBackToCommandLine(t *testing.T) {
	lookup := func(string) (string, bool) { return "", false }
	argv := []string{"prog", "--aria-fd-map=5:0x9"}
	m, cleanArgv := Resolve(lookup, argv)

	v5, ok := m.Get(5)
	if !ok || v5 != 0x9 {
		t.Errorf("Get(5) = (%x,%v), want (0x9,true)", v5, ok)
	}
	want := []string{"prog"}
	if !reflect.DeepEqual(cleanArgv, want) {
		t.Errorf("cleanArgv = %v, want %v", cleanArgv, want)
	}
}
