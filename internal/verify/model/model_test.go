package model

import "testing"

func TestBoxValid(t *testing.T) {
	cases := []struct {
		name string
		box  Box
		want bool
	}{
		{
			name: "within page bounds",
			box:  Box{X: 10, Y: 10, W: 50, H: 20, PageW: 612, PageH: 792, Source: SourceDigital, Confidence: 1.0},
			want: true,
		},
		{
			name: "negative width",
			box:  Box{X: 10, Y: 10, W: -5, H: 20, PageW: 612, PageH: 792},
			want: false,
		},
		{
			name: "right edge past page width",
			box:  Box{X: 600, Y: 10, W: 50, H: 20, PageW: 612, PageH: 792},
			want: false,
		},
		{
			name: "bottom edge past page height",
			box:  Box{X: 10, Y: 780, W: 50, H: 50, PageW: 612, PageH: 792},
			want: false,
		},
		{
			name: "digital source must be full confidence",
			box:  Box{X: 10, Y: 10, W: 50, H: 20, PageW: 612, PageH: 792, Source: SourceDigital, Confidence: 0.9},
			want: false,
		},
		{
			name: "ocr source can be partial confidence",
			box:  Box{X: 10, Y: 10, W: 50, H: 20, PageW: 612, PageH: 792, Source: SourceOCR, Confidence: 0.6},
			want: true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.box.Valid(); got != c.want {
				t.Errorf("Valid() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestBoxRightBottomCenterY(t *testing.T) {
	b := Box{X: 10, Y: 20, W: 30, H: 40}
	if b.Right() != 40 {
		t.Errorf("Right() = %v, want 40", b.Right())
	}
	if b.Bottom() != 60 {
		t.Errorf("Bottom() = %v, want 60", b.Bottom())
	}
	if b.CenterY() != 40 {
		t.Errorf("CenterY() = %v, want 40", b.CenterY())
	}
}
