package market

import "strings"

// ToTushare converts a canonical A-share code to the suffixed form the
// tushare API expects. Unknown prefixes default to the Shanghai suffix.
func ToTushare(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	switch {
	case strings.HasPrefix(symbol, "600"),
		strings.HasPrefix(symbol, "601"),
		strings.HasPrefix(symbol, "603"),
		strings.HasPrefix(symbol, "605"),
		strings.HasPrefix(symbol, "688"):
		return symbol + ".SH"
	case strings.HasPrefix(symbol, "000"),
		strings.HasPrefix(symbol, "001"),
		strings.HasPrefix(symbol, "002"),
		strings.HasPrefix(symbol, "003"),
		strings.HasPrefix(symbol, "300"),
		strings.HasPrefix(symbol, "301"):
		return symbol + ".SZ"
	}
	return symbol + ".SH"
}

// ToYahoo converts a canonical symbol to Yahoo Finance form:
// A-share Shanghai .SS, Shenzhen .SZ, Hong Kong NNNN.HK (four digits).
func ToYahoo(symbol string) string {
	if strings.HasSuffix(symbol, ".HK") {
		code := strings.TrimSuffix(symbol, ".HK")
		code = strings.TrimLeft(code, "0")
		for len(code) < 4 {
			code = "0" + code
		}
		return code + ".HK"
	}
	ts := ToTushare(symbol)
	if strings.HasSuffix(ts, ".SH") {
		return strings.TrimSuffix(ts, ".SH") + ".SS"
	}
	return ts
}

// EastmoneySecID builds the secid eastmoney's kline endpoint keys on:
// 1.XXXXXX Shanghai, 0.XXXXXX Shenzhen, 116.XXXXX Hong Kong.
func EastmoneySecID(symbol string) string {
	if strings.HasSuffix(symbol, ".HK") {
		return "116." + strings.TrimSuffix(symbol, ".HK")
	}
	if strings.HasSuffix(ToTushare(symbol), ".SH") {
		return "1." + symbol
	}
	return "0." + symbol
}

// IsETF reports whether an A-share code carries an ETF prefix.
func IsETF(symbol string) bool {
	for _, p := range []string{"51", "52", "56", "58", "15", "16", "18"} {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	return false
}
