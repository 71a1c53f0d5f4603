package vastu

import "testing"

func TestLocateGrid(t *testing.T) {
	const w, h = 300, 300
	cases := []struct {
		box  Box
		want Zone
	}{
		{Box{40, 40, 20, 20}, NorthWest},
		{Box{140, 40, 20, 20}, North},
		{Box{240, 40, 20, 20}, NorthEast},
		{Box{40, 140, 20, 20}, West},
		{Box{140, 140, 20, 20}, Center},
		{Box{240, 140, 20, 20}, East},
		{Box{40, 240, 20, 20}, SouthWest},
		{Box{140, 240, 20, 20}, South},
		{Box{240, 240, 20, 20}, SouthEast},
		// boundaries: the lower edge of a third belongs to that third
		{Box{90, 0, 20, 20}, North},
		{Box{190, 0, 20, 20}, NorthEast},
		{Box{0, 90, 20, 20}, West},
		{Box{0, 190, 20, 20}, SouthWest},
		{Box{89, 89, 20, 20}, NorthWest},
	}
	for _, tc := range cases {
		if got := Locate(tc.box, w, h); got != tc.want {
			cx, cy := tc.box.Center()
			t.Errorf("Locate(center %.1f,%.1f) = %s, want %s", cx, cy, got, tc.want)
		}
	}
}

func TestLocateTotalAndIdempotent(t *testing.T) {
	dims := [][2]int{{1, 1}, {7, 3}, {640, 480}, {1875, 1200}}
	for _, d := range dims {
		for x := -10; x <= d[0]+10; x += 1 + d[0]/37 {
			for y := -10; y <= d[1]+10; y += 1 + d[1]/29 {
				b := Box{X: x, Y: y, W: 5, H: 3}
				z := Locate(b, d[0], d[1])
				if z == Unknown {
					t.Fatalf("Locate(%+v, %v) = Unknown", b, d)
				}
				if again := Locate(b, d[0], d[1]); again != z {
					t.Fatalf("Locate not deterministic: %s then %s", z, again)
				}
			}
		}
	}
}

func TestLocateRooms(t *testing.T) {
	rooms := []MatchedRoom{
		{Label: "kitchen", Box: Box{250, 250, 10, 10}},
		{Label: "temple", Box: Box{250, 10, 10, 10}},
	}
	got := LocateRooms(rooms, 300, 300)
	if len(got) != 2 || got[0].Zone != SouthEast || got[1].Zone != NorthEast {
		t.Fatalf("LocateRooms = %+v", got)
	}
	if got[0].Label != "kitchen" {
		t.Fatalf("label lost: %+v", got[0])
	}
}
