package finance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func summary(id string, ar, ap int64) ProjectSummary {
	a, p := decimal.NewFromInt(ar), decimal.NewFromInt(ap)
	profit := a.Sub(p)
	loss := decimal.Zero
	if profit.IsNegative() {
		loss = profit.Neg()
	}
	return ProjectSummary{ProjectID: id, AR: a, AP: p, Profit: profit, Loss: loss}
}

func ids(rs []ProjectSummary) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ProjectID)
	}
	return out
}

func TestTopProfitable(t *testing.T) {
	rs := []ProjectSummary{
		summary("a", 10, 0),
		summary("b", 50, 0),
		summary("c", 10, 0),
		summary("d", 0, 5),
	}
	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"top two", 2, []string{"b", "a"}},
		{"ties keep input order", 3, []string{"b", "a", "c"}},
		{"n larger than input", 10, []string{"b", "a", "c", "d"}},
		{"zero", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(TopProfitable(rs, tt.n))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
	if rs[0].ProjectID != "a" || rs[1].ProjectID != "b" {
		t.Fatalf("input was reordered")
	}
}

func TestTopLoss(t *testing.T) {
	rs := []ProjectSummary{
		summary("a", 0, 10),
		summary("b", 100, 0),
		summary("c", 0, 50),
		summary("d", 0, 10),
	}
	got := ids(TopLoss(rs, 5))
	want := []string{"c", "a", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if n := len(TopLoss(rs, 1)); n != 1 {
		t.Fatalf("expected 1 result, got %d", n)
	}
	if n := len(TopLoss([]ProjectSummary{summary("x", 5, 1)}, 3)); n != 0 {
		t.Fatalf("profitable projects must not appear in loss ranking")
	}
}

func TestRevenueShare(t *testing.T) {
	shares := RevenueShare([]ProjectSummary{summary("a", 300, 0), summary("b", 700, 0)})
	assertDec(t, "a", shares[0].Percent, "30.00")
	assertDec(t, "b", shares[1].Percent, "70.00")

	thirds := RevenueShare([]ProjectSummary{summary("a", 1, 0), summary("b", 1, 0), summary("c", 1, 0)})
	assertDec(t, "third", thirds[0].Percent, "33.33")

	zero := RevenueShare([]ProjectSummary{summary("a", 0, 5)})
	assertDec(t, "no ar", zero[0].Percent, "0")
}
