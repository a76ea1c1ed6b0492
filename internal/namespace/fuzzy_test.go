package namespace

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		candidate string
		want      float64
	}{
		{"exact", "main.sales.orders", "main.sales.orders", 100},
		{"case insensitive", "MAIN.Sales.ORDERS", "main.sales.orders", 100},
		{"exact component", "orders", "sales.public.orders", 95},
		{"window match", "order", "sales.public.order_items", 90},
		{"both empty", "", "", 100},
		{"empty query", "", "a.b.c", 0},
		{"one edit of six", "orderz", "orders", 83.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.query, tt.candidate); got != tt.want {
				t.Errorf("Score(%q, %q) = %v, want %v", tt.query, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"x", "sales.public.orders"},
		{"a very long query that exceeds the candidate", "a.b.c"},
		{"ørders", "sales.public.orders"},
		{"employees", "hr.public.employees"},
	}
	for _, p := range pairs {
		s := Score(p[0], p[1])
		if s < 0 || s > 100 {
			t.Errorf("Score(%q, %q) = %v out of range", p[0], p[1], s)
		}
		if s != Score(p[0], p[1]) {
			t.Errorf("Score(%q, %q) not deterministic", p[0], p[1])
		}
	}
}

func TestScore_Ranking(t *testing.T) {
	exact := Score("orders", "sales.public.orders")
	near := Score("orders", "sales.public.order_items")
	far := Score("orders", "hr.public.employees")

	if !(exact > near && near > far) {
		t.Errorf("ranking orders=%v order_items=%v employees=%v, want strictly descending", exact, near, far)
	}
}
