package main

import (
	"image/color"
	"testing"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		args []string
		at   color.NRGBA
		err  bool
	}{
		{nil, color.NRGBA{R: 10, G: 10, B: 40, A: 255}, false},
		{[]string{"MidnightBlue"}, color.NRGBA{R: 0x19, G: 0x19, B: 0x70, A: 0xFF}, false},
		{[]string{"notacolor"}, color.NRGBA{}, true},
		{[]string{"red", "blue"}, color.NRGBA{}, true},
	}

	for _, test := range tests {
		p, err := parsePattern(test.args)
		if (err != nil) != test.err {
			t.Errorf("%q: error %v", test.args, err)
			continue
		}
		if err != nil {
			continue
		}
		if c := p(0, 0, 100, 100); c != test.at {
			t.Errorf("%q: got %v at origin, expected %v", test.args, c, test.at)
		}
	}
}
