package checksum

import "testing"

func TestOf(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Of(""); got != empty {
		t.Errorf("Of(\"\") = %s", got)
	}
	if Of("a") == Of("b") {
		t.Error("different content must differ")
	}
}

func TestMatches(t *testing.T) {
	sum := Of("body")
	cases := []struct {
		ifMatch string
		want    bool
	}{
		{"", true},
		{"*", true},
		{sum, true},
		{`"` + sum + `"`, true},
		{`W/"` + sum + `"`, true},
		{Of("other"), false},
		{"garbage", false},
	}
	for _, c := range cases {
		if got := Matches(c.ifMatch, "body"); got != c.want {
			t.Errorf("Matches(%q) = %v, want %v", c.ifMatch, got, c.want)
		}
	}
}
