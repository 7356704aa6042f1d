package formula

// stubNames is the closed set of function names spec.md §6 requires to
// be recognised (arity unchecked) and always evaluate to #CALC!, their
// original formula text preserved verbatim on round-trip. PRODUCT and
// the hyperbolic/combinatoric trio named alongside them in spec.md are
// implemented for real in functions_math.go instead, per spec.md §9(b)'s
// allowance to complete trivial stubs.
var stubNames = []string{
	"DSTDEV", "DVAR", "ACOSH",
	"DATEVALUE", "DAYS360",
	"PRICEMAT", "YIELDMAT", "ACCRINTM", "DURATION", "MDURATION",
	"COUPDAYBS", "COUPDAYS", "COUPDAYSNC", "COUPNCD", "COUPPCD", "COUPNUM",
	"LAMBDA", "LET", "MAP", "REDUCE", "SCAN", "BYROW", "BYCOL", "MAKEARRAY",
	"FILTERXML", "WEBSERVICE", "RTD", "CUBEVALUE", "CUBEMEMBER",
	"CUBEMEMBERPROPERTY", "BAHTTEXT",
}

func init() {
	r := DefaultRegistry
	for _, name := range stubNames {
		r.Register(&Entry{Name: name, MinArity: 0, MaxArity: -1, Flags: FlagStub})
	}
}
