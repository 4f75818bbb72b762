package types

import (
	"math/big"
	"testing"
)

func TestCompareNullsSortLast(t *testing.T) {
	n := NullValue()
	v := IntValue(5)
	if Compare(n, v) != 1 {
		t.Fatal("null should compare greater than (sort after) a non-null value")
	}
	if Compare(v, n) != -1 {
		t.Fatal("non-null should compare less than null")
	}
	if Compare(n, n) != 0 {
		t.Fatal("two nulls should compare equal")
	}
}

func TestCompareNumericPromotion(t *testing.T) {
	if Compare(IntValue(2), FloatValue(2.0)) != 0 {
		t.Fatal("2 (int) should equal 2.0 (float)")
	}
	if Compare(IntValue(1), FloatValue(2.5)) != -1 {
		t.Fatal("1 < 2.5")
	}
	r := big.NewRat(10, 1)
	if Compare(IntValue(10), DecimalValue(r)) != 0 {
		t.Fatal("10 (int) should equal 10 (decimal)")
	}
}

func TestCompareStrings(t *testing.T) {
	if Compare(StringValue("a"), StringValue("b")) != -1 {
		t.Fatal(`"a" < "b"`)
	}
}

func TestEqualAcrossNumericTypes(t *testing.T) {
	if !Equal(IntValue(3), FloatValue(3.0)) {
		t.Fatal("3 should equal 3.0 across types")
	}
	if Equal(IntValue(3), StringValue("3")) {
		t.Fatal("int 3 should not equal string \"3\"")
	}
}

func TestEqualNullNeverEqualsNonNull(t *testing.T) {
	if Equal(NullValue(), IntValue(0)) {
		t.Fatal("null should never equal a non-null zero value")
	}
}

func TestAsFloat64(t *testing.T) {
	if f, ok := IntValue(7).AsFloat64(); !ok || f != 7.0 {
		t.Fatalf("AsFloat64 on int = %v,%v", f, ok)
	}
	if _, ok := StringValue("x").AsFloat64(); ok {
		t.Fatal("AsFloat64 on string should not be ok")
	}
}

func TestValueStringFormatting(t *testing.T) {
	if BoolValue(true).String() != "true" {
		t.Fatal("bool formatting")
	}
	if IntValue(42).String() != "42" {
		t.Fatal("int formatting")
	}
	if NullValue().String() != "" {
		t.Fatal("null formatting should be empty")
	}
}
