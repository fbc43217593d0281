package market

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		symbol string
		want   string
	}{
		{"600519", AShare},
		{"000001", AShare},
		{"300750", AShare},
		{"00700.HK", HKMarket},
		{"09988.HK", HKMarket},
		{"12345", HKMarket},
	}
	for _, tc := range cases {
		if got := Detect(tc.symbol); got != tc.want {
			t.Errorf("Detect(%s): expected %s, got %s", tc.symbol, tc.want, got)
		}
	}
}

func TestParamsFor(t *testing.T) {
	a := ParamsFor(AShare)
	if a.BiasThreshold != 5.0 || a.ATRMaxPct != 3.0 || a.Currency != "CNY" {
		t.Errorf("Unexpected A-share params: %+v", a)
	}

	hk := ParamsFor(HKMarket)
	if hk.BiasThreshold != 6.0 || hk.ATRMaxPct != 4.0 || hk.Currency != "HKD" {
		t.Errorf("Unexpected HK params: %+v", hk)
	}

	if got := ParamsFor("美股"); got != a {
		t.Errorf("Unknown market should default to A-share params, got %+v", got)
	}
}

func TestTrendStatusIsBullish(t *testing.T) {
	for _, s := range []TrendStatus{StrongBull, Bull} {
		if !s.IsBullish() {
			t.Errorf("%s should pass the trend gate", s)
		}
	}
	for _, s := range []TrendStatus{WeakBull, Consolidation, WeakBear, Bear, StrongBear} {
		if s.IsBullish() {
			t.Errorf("%s should not pass the trend gate", s)
		}
	}
}

func TestBarValid(t *testing.T) {
	good := Bar{Open: 10, High: 10.5, Low: 9.8, Close: 10.2, Volume: 1e6}
	if !good.Valid() {
		t.Error("Well-formed bar should be valid")
	}

	cases := []struct {
		name string
		bar  Bar
	}{
		{"zero close", Bar{Open: 10, High: 10.5, Low: 9.8, Close: 0}},
		{"negative volume", Bar{Open: 10, High: 10.5, Low: 9.8, Close: 10.2, Volume: -1}},
		{"high below close", Bar{Open: 10, High: 10.1, Low: 9.8, Close: 10.2}},
		{"low above open", Bar{Open: 10, High: 10.5, Low: 10.05, Close: 10.2}},
	}
	for _, tc := range cases {
		if tc.bar.Valid() {
			t.Errorf("%s should be invalid", tc.name)
		}
	}
}

func TestToTushare(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"600519", "600519.SH"},
		{"688981", "688981.SH"},
		{"000001", "000001.SZ"},
		{"300750", "300750.SZ"},
		{"600519.SH", "600519.SH"},
	}
	for _, tc := range cases {
		if got := ToTushare(tc.in); got != tc.want {
			t.Errorf("ToTushare(%s): expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestToYahoo(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"600519", "600519.SS"},
		{"000001", "000001.SZ"},
		{"00700.HK", "0700.HK"},
		{"09988.HK", "9988.HK"},
	}
	for _, tc := range cases {
		if got := ToYahoo(tc.in); got != tc.want {
			t.Errorf("ToYahoo(%s): expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestEastmoneySecID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"600519", "1.600519"},
		{"000001", "0.000001"},
		{"00700.HK", "116.00700"},
	}
	for _, tc := range cases {
		if got := EastmoneySecID(tc.in); got != tc.want {
			t.Errorf("EastmoneySecID(%s): expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestIsETF(t *testing.T) {
	for _, code := range []string{"510300", "159915"} {
		if !IsETF(code) {
			t.Errorf("%s should be an ETF code", code)
		}
	}
	for _, code := range []string{"600519", "000001"} {
		if IsETF(code) {
			t.Errorf("%s should not be an ETF code", code)
		}
	}
}
