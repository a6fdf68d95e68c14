package version

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc", ""},
		{"v3.4.0-rc1", "3.4.0"},
		{"GLIBC_2.34", "2.34"},
		{"2.31", "2.31"},
		{"no digits here!", ""},
	}

	for _, c := range cases {
		got := Parse(c.in)
		if got.String() != c.want {
			t.Errorf("Parse(%q) = %q, want %q", c.in, got.String(), c.want)
		}
	}
}

func TestEmpty(t *testing.T) {
	if !Parse("abc").Empty() {
		t.Error("Parse(\"abc\") should be empty")
	}
	if Parse("1.2").Empty() {
		t.Error("Parse(\"1.2\") should not be empty")
	}
}

func TestAccessors(t *testing.T) {
	v := Parse("2.34.1")
	if v.Major() != 2 || v.Minor() != 34 || v.Patch() != 1 {
		t.Fatalf("unexpected accessors for %v", v)
	}

	short := Parse("2.34")
	if short.Patch() != 0 {
		t.Errorf("Patch() on a 2-component version should be 0, got %d", short.Patch())
	}
}

func TestCompareTotalOrder(t *testing.T) {
	a := Parse("2.31")
	b := Parse("2.34")

	if !a.Less(b) {
		t.Error("2.31 should be less than 2.34")
	}
	if a.Greater(a) {
		t.Error("v > v must be false")
	}
	if a.Compare(a) != 0 {
		t.Error("v.Compare(v) must be 0")
	}
}

func TestCompareStrictPrefix(t *testing.T) {
	// Same-prefix, shorter sequence: equal only when trailing extra
	// components of the longer sequence are all zero.
	short := Version{2, 34}
	longZero := Version{2, 34, 0}
	longNonZero := Version{2, 34, 1}

	if !short.Equal(longZero) {
		t.Error("2.34 should equal 2.34.0")
	}
	if !short.Less(longNonZero) {
		t.Error("2.34 should be less than 2.34.1")
	}
}

func TestMax(t *testing.T) {
	versions := []Version{Parse("2.17"), Parse("2.34"), Parse("2.2")}
	got := Max(versions)
	if got.String() != "2.34" {
		t.Errorf("Max() = %v, want 2.34", got)
	}
}
