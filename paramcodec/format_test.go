package paramcodec_test

import (
	"reflect"
	"testing"

	"github.com/tranvictor/abiscope/paramcodec"
)

// Every accepted input must survive Format followed by Parse unchanged.
func TestFormatRoundTrip(t *testing.T) {
	cases := []struct {
		tag  string
		in   string
		want string
	}{
		{"uint256", "000123", "123"},
		{"uint256", "0", "0"},
		{"address", "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"},
		{"bool", "TRUE", "true"},
		{"string", "hello, world", "hello, world"},
		{"uint256[]", "[01,2 ,  3]", "[1, 2, 3]"},
		{"uint256[]", "[]", "[]"},
		{"bool[2]", "[True,FALSE]", "[true, false]"},
		{"address[]", "[0x0000000000000000000000000000000000000001]", "[0x0000000000000000000000000000000000000001]"},
		{"string[]", `["a, b", "c"]`, `["a, b","c"]`},
		{"string[]", `[]`, `[]`},
		{"string[]", `["<a&b>"]`, `["<a&b>"]`},
	}
	for _, c := range cases {
		kind := paramcodec.Classify(c.tag)
		v, err := paramcodec.ParseType(c.tag, c.in)
		if err != nil {
			t.Errorf("ParseType(%q, %q): %s", c.tag, c.in, err)
			continue
		}
		text, err := paramcodec.Format(kind, v)
		if err != nil {
			t.Errorf("Format(%s, %v): %s", kind, v, err)
			continue
		}
		if text != c.want {
			t.Errorf("Format(%s): want %q, got %q", kind, c.want, text)
		}
		again, err := paramcodec.ParseType(c.tag, text)
		if err != nil {
			t.Errorf("re-parse %q: %s", text, err)
			continue
		}
		if !reflect.DeepEqual(v, again) {
			t.Errorf("round trip of %q: want %v, got %v", c.in, v, again)
		}
	}
}

func TestFormatRejectsWrongType(t *testing.T) {
	if _, err := paramcodec.Format(paramcodec.Uint256, "12"); err == nil {
		t.Errorf("want error for string passed as uint256")
	}
	if _, err := paramcodec.Format(paramcodec.Unsupported, 1); err == nil {
		t.Errorf("want error for unsupported kind")
	}
}
