package klox

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the variant a Value currently holds: Nil, Bool,
// Number, or Obj.
type ValueKind uint8

const (
	ValNil ValueKind = iota
	ValBool
	ValNumber
	ValObj
)

// Value is the VM's tagged union. Obj is a non-owning reference into
// the GC heap (see object.go); Number is an IEEE-754 double.
type Value struct {
	Kind ValueKind
	boolVal   bool
	numberVal float64
	objVal    Obj
}

func NilValue() Value                 { return Value{Kind: ValNil} }
func BoolValue(b bool) Value          { return Value{Kind: ValBool, boolVal: b} }
func NumberValue(n float64) Value     { return Value{Kind: ValNumber, numberVal: n} }
func ObjValue(o Obj) Value            { return Value{Kind: ValObj, objVal: o} }

func (v Value) IsNil() bool    { return v.Kind == ValNil }
func (v Value) IsBool() bool   { return v.Kind == ValBool }
func (v Value) IsNumber() bool { return v.Kind == ValNumber }
func (v Value) IsObj() bool    { return v.Kind == ValObj }

func (v Value) AsBool() bool     { return v.boolVal }
func (v Value) AsNumber() float64 { return v.numberVal }
func (v Value) AsObj() Obj        { return v.objVal }

func (v Value) IsObjType(t ObjType) bool {
	return v.Kind == ValObj && v.objVal != nil && v.objVal.objType() == t
}

func (v Value) IsString() bool      { return v.IsObjType(ObjTString) }
func (v Value) AsString() *ObjString { return v.objVal.(*ObjString) }

func (v Value) IsFunction() bool       { return v.IsObjType(ObjTFunction) }
func (v Value) AsFunction() *ObjFunction { return v.objVal.(*ObjFunction) }

func (v Value) IsClosure() bool       { return v.IsObjType(ObjTClosure) }
func (v Value) AsClosure() *ObjClosure { return v.objVal.(*ObjClosure) }

func (v Value) IsNative() bool      { return v.IsObjType(ObjTNative) }
func (v Value) AsNative() *ObjNative { return v.objVal.(*ObjNative) }

func (v Value) IsClass() bool     { return v.IsObjType(ObjTClass) }
func (v Value) AsClass() *ObjClass { return v.objVal.(*ObjClass) }

func (v Value) IsInstance() bool       { return v.IsObjType(ObjTInstance) }
func (v Value) AsInstance() *ObjInstance { return v.objVal.(*ObjInstance) }

func (v Value) IsBoundMethod() bool         { return v.IsObjType(ObjTBoundMethod) }
func (v Value) AsBoundMethod() *ObjBoundMethod { return v.objVal.(*ObjBoundMethod) }

// IsFalsey reports whether v is falsey: Nil and Bool(false) are
// falsey, everything else is truthy.
func IsFalsey(v Value) bool {
	return v.Kind == ValNil || (v.Kind == ValBool && !v.boolVal)
}

// ValuesEqual implements the language's equality rule: different
// variants are never equal, Nil equals Nil, Bool/Number compare by
// value (so NaN != NaN falls out of Go's own float comparison), and
// Obj compares by reference identity — which is why interned strings
// are required to make string equality behave like value equality.
func ValuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValNil:
		return true
	case ValBool:
		return a.boolVal == b.boolVal
	case ValNumber:
		return a.numberVal == b.numberVal
	case ValObj:
		return a.objVal == b.objVal
	default:
		return false
	}
}

// PrintValue renders a Value the way `print` and the REPL echo it.
// Numbers render the way C's printf("%g", …) would: 6 significant
// digits, trailing zeros trimmed.
func PrintValue(v Value) string {
	switch v.Kind {
	case ValNil:
		return "nil"
	case ValBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.numberVal)
	case ValObj:
		return printObject(v.objVal)
	default:
		return "<unknown value>"
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', 6, 64)
}

func printObject(o Obj) string {
	switch ov := o.(type) {
	case *ObjString:
		return ov.Chars
	case *ObjFunction:
		if ov.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", ov.Name.Chars)
	case *ObjNative:
		return fmt.Sprintf("<native fn %s>", ov.Name)
	case *ObjClosure:
		return printObject(ov.Function)
	case *ObjUpvalue:
		return "<upvalue>"
	case *ObjClass:
		return ov.Name.Chars
	case *ObjInstance:
		return fmt.Sprintf("%s instance", ov.Class.Name.Chars)
	case *ObjBoundMethod:
		return printObject(ov.Method.Function)
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "<obj %T>", o)
		return b.String()
	}
}
