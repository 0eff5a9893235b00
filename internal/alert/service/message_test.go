package service

import "testing"

func TestLitersShortestForm(t *testing.T) {
	cases := map[float64]string{250: "250", 170.5: "170.5", 0: "0", 199.25: "199.25"}
	for in, want := range cases {
		if got := liters(in); got != want {
			t.Fatalf("liters(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestExceededMessageRoundsDifference(t *testing.T) {
	got := exceededMessage(210.26, 200)
	want := "Daily water usage (210.26L) has exceeded your 200L threshold by 10.3L"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
