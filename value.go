package andromeda

import (
	"fmt"
	"math"
)

// ValueType is the 8-bit type tag carried by every attribute and CDATA
// value record. The taxonomy matches the one Android's ResourceTypes.h
// defines; a renderer dispatching on ValueType (rather than guessing from
// string-pool membership) is the "production-correct" enrichment noted
// in the design notes.
type ValueType uint8

const (
	TypeNull             ValueType = 0x00
	TypeReference        ValueType = 0x01
	TypeAttribute        ValueType = 0x02
	TypeString           ValueType = 0x03
	TypeFloat            ValueType = 0x04
	TypeDimension        ValueType = 0x05
	TypeFraction         ValueType = 0x06
	TypeDynamicReference ValueType = 0x07
	TypeIntDec           ValueType = 0x10
	TypeIntHex           ValueType = 0x11
	TypeIntBoolean       ValueType = 0x12
	TypeIntColorARGB8    ValueType = 0x1c
	TypeIntColorRGB8     ValueType = 0x1d
	TypeIntColorARGB4    ValueType = 0x1e
	TypeIntColorRGB4     ValueType = 0x1f
)

func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeReference:
		return "Reference"
	case TypeAttribute:
		return "AttributeReference"
	case TypeString:
		return "String"
	case TypeFloat:
		return "Float"
	case TypeDimension:
		return "Dimension"
	case TypeFraction:
		return "Fraction"
	case TypeDynamicReference:
		return "DynamicReference"
	case TypeIntDec:
		return "IntDec"
	case TypeIntHex:
		return "IntHex"
	case TypeIntBoolean:
		return "IntBoolean"
	case TypeIntColorARGB8:
		return "IntColorARGB8"
	case TypeIntColorRGB8:
		return "IntColorRGB8"
	case TypeIntColorARGB4:
		return "IntColorARGB4"
	case TypeIntColorRGB4:
		return "IntColorRGB4"
	default:
		return fmt.Sprintf("ValueType(0x%02x)", uint8(t))
	}
}

// dimensionUnits and fractionUnits name the low nibble of a decoded
// Dimension/Fraction value.
var dimensionUnits = [...]string{"px", "dp", "sp", "pt", "in", "mm"}
var fractionUnits = [...]string{"%", "%p"}

// complexRadixes are the four fixed-point scale factors selected by bits
// 4-5 of a complex (Dimension/Fraction) value, matching the constants
// Android's ResourceTypes.h uses to decode COMPLEX_UNIT values.
var complexRadixes = [4]float32{
	1.0 / (1 << 8),
	1.0 / (1 << 15),
	1.0 / (1 << 23),
	1.0 / (1 << 31),
}

// decodeComplex unpacks the mantissa/radix/unit encoding shared by
// Dimension and Fraction values: an 8-bit radix+unit tail (radix in bits
// 4-5, unit in bits 0-3) and a 24-bit mantissa in bits 8-31.
func decodeComplex(v uint32) (value float32, unit uint8) {
	mantissa := int32(v & 0xffffff00)
	radix := complexRadixes[(v>>4)&0x3]
	return float32(mantissa) * radix, uint8(v & 0xf)
}

// Value is the decoded, typed form of an attribute or CDATA value
// record. Raw holds the original 32-bit payload so a faithful renderer
// (or a caller building its own presentation) can still access it.
type Value struct {
	Type ValueType
	Raw  uint32
}

// Render produces the textual form of a typed value, used by the
// renderer's enrichment path. Value types this implementation cannot
// express as plain text (Attribute reference, Dynamic reference, colour
// variants narrower than ARGB8) still render using the documented
// layout; nothing here is silently dropped.
func (v Value) Render() string {
	switch v.Type {
	case TypeNull:
		if v.Raw == 0 {
			return "" // undefined
		}
		return "@empty"
	case TypeReference, TypeDynamicReference:
		return fmt.Sprintf("@0x%x", v.Raw)
	case TypeAttribute:
		return fmt.Sprintf("?0x%x", v.Raw)
	case TypeFloat:
		return fmt.Sprintf("%g", math.Float32frombits(v.Raw))
	case TypeIntDec:
		return fmt.Sprintf("%d", int32(v.Raw))
	case TypeIntHex:
		return fmt.Sprintf("0x%x", v.Raw)
	case TypeIntBoolean:
		return fmt.Sprintf("%t", v.Raw != 0)
	case TypeDimension:
		val, unit := decodeComplex(v.Raw)
		if int(unit) < len(dimensionUnits) {
			return fmt.Sprintf("%g%s", val, dimensionUnits[unit])
		}
		return fmt.Sprintf("%gu%d", val, unit)
	case TypeFraction:
		val, unit := decodeComplex(v.Raw)
		if int(unit) < len(fractionUnits) {
			return fmt.Sprintf("%g%s", val*100, fractionUnits[unit])
		}
		return fmt.Sprintf("%gu%d", val*100, unit)
	case TypeIntColorARGB8:
		return fmt.Sprintf("#%08x", v.Raw)
	case TypeIntColorRGB8:
		return fmt.Sprintf("#%06x", v.Raw&0xffffff)
	case TypeIntColorARGB4:
		return fmt.Sprintf("#%04x", v.Raw&0xffff)
	case TypeIntColorRGB4:
		return fmt.Sprintf("#%03x", v.Raw&0xfff)
	case TypeString:
		// Callers resolve TypeString through the string pool directly;
		// Render is only reached here if that resolution failed.
		return ""
	default:
		return fmt.Sprintf("<%s 0x%x>", v.Type, v.Raw)
	}
}
