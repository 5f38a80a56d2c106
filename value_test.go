package andromeda

import "testing"

func TestDecodeComplexDimension(t *testing.T) {
	// mantissa=1 (bits 8-31 = 0x01), radix index 0 (1/256), unit=1 (dp).
	v := uint32(0x100 | 1)
	val, unit := decodeComplex(v)
	if val != 1.0 || unit != 1 {
		t.Fatalf("decodeComplex(0x%x) = (%g, %d), want (1, 1)", v, val, unit)
	}
}

func TestValueRenderDimension(t *testing.T) {
	v := Value{Type: TypeDimension, Raw: 0x100 | 1}
	if got := v.Render(); got != "1dp" {
		t.Fatalf("Render() = %q, want %q", got, "1dp")
	}
}

func TestValueRenderFraction(t *testing.T) {
	v := Value{Type: TypeFraction, Raw: 0x100}
	if got := v.Render(); got != "100%" {
		t.Fatalf("Render() = %q, want %q", got, "100%")
	}
}

func TestValueRenderIntDecNegative(t *testing.T) {
	v := Value{Type: TypeIntDec, Raw: uint32(int32(-5))}
	if got := v.Render(); got != "-5" {
		t.Fatalf("Render() = %q, want -5", got)
	}
}

func TestValueRenderIntBoolean(t *testing.T) {
	if got := (Value{Type: TypeIntBoolean, Raw: 0}).Render(); got != "false" {
		t.Fatalf("Render() = %q, want false", got)
	}
	if got := (Value{Type: TypeIntBoolean, Raw: 1}).Render(); got != "true" {
		t.Fatalf("Render() = %q, want true", got)
	}
}

func TestValueRenderColors(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Value{Type: TypeIntColorARGB8, Raw: 0xff112233}, "#ff112233"},
		{Value{Type: TypeIntColorRGB8, Raw: 0xff112233}, "#112233"},
		{Value{Type: TypeIntColorARGB4, Raw: 0x1234}, "#1234"},
		{Value{Type: TypeIntColorRGB4, Raw: 0x1234}, "#234"},
	}
	for _, c := range cases {
		if got := c.v.Render(); got != c.want {
			t.Fatalf("Render(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestValueRenderNullUndefinedVsEmpty(t *testing.T) {
	if got := (Value{Type: TypeNull, Raw: 0}).Render(); got != "" {
		t.Fatalf("Render(undefined) = %q, want empty", got)
	}
	if got := (Value{Type: TypeNull, Raw: 1}).Render(); got != "@empty" {
		t.Fatalf("Render(empty) = %q, want @empty", got)
	}
}

func TestValueRenderReference(t *testing.T) {
	if got := (Value{Type: TypeReference, Raw: 0x7f010001}).Render(); got != "@0x7f010001" {
		t.Fatalf("Render() = %q, want @0x7f010001", got)
	}
}

func TestValueTypeStringUnknown(t *testing.T) {
	if got := ValueType(0x99).String(); got != "ValueType(0x99)" {
		t.Fatalf("String() = %q, want ValueType(0x99)", got)
	}
}
