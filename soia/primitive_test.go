package soia

import (
	"math"
	"testing"
)

func TestInt32ByteExamples(t *testing.T) {
	ser := Int32Serializer()

	// spec §8: int32=232 encodes as WireU16(232) after the magic prefix.
	b := ser.ToBytes(232)
	raw := b.Bytes()
	if string(raw[:4]) != "soia" {
		t.Fatalf("missing magic prefix: % x", raw[:4])
	}
	if raw[4] != 232 || raw[5] != 232 || raw[6] != 0 {
		t.Fatalf("int32=232 encoding = % x, want [232 232 0]", raw[4:])
	}

	back, err := ser.FromBytes(b, false)
	if err != nil || back != 232 {
		t.Fatalf("round trip: got %d, err=%v", back, err)
	}
}

func TestInt32NegativeByteExample(t *testing.T) {
	ser := Int32Serializer()
	// spec §8: int32=-257 uses the WireNegU16 branch.
	b := ser.ToBytes(-257)
	raw := b.Bytes()[4:]
	if raw[0] != 236 { // WireNegU16
		t.Fatalf("int32=-257 first byte = %d, want 236", raw[0])
	}
	back, err := ser.FromBytes(b, false)
	if err != nil || back != -257 {
		t.Fatalf("round trip: got %d, err=%v", back, err)
	}
}

func TestStringJSONZeroShorthand(t *testing.T) {
	ser := StringSerializer()
	j := ser.ToJSON("", Dense)
	back, err := ser.FromJSON(j, false)
	if err != nil || back != "" {
		t.Fatalf("empty string round trip: got %q, err=%v", back, err)
	}

	j2 := ser.ToJSON("hi", Dense)
	back2, err := ser.FromJSON(j2, false)
	if err != nil || back2 != "hi" {
		t.Fatalf("non-empty string round trip: got %q, err=%v", back2, err)
	}
}

func TestFloat64SpecialValues(t *testing.T) {
	ser := Float64Serializer()
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, 3.5, -3.5} {
		j := ser.ToJSON(v, Dense)
		back, err := ser.FromJSON(j, false)
		if err != nil {
			t.Fatalf("FromJSON(%v): %v", v, err)
		}
		if math.IsNaN(v) {
			if !math.IsNaN(back) {
				t.Fatalf("NaN round trip failed: got %v", back)
			}
			continue
		}
		if back != v {
			t.Fatalf("round trip %v: got %v", v, back)
		}
	}
}

func TestBytesBinaryRoundTrip(t *testing.T) {
	ser := ByteStringSerializer()
	for _, v := range [][]byte{nil, {}, {1, 2, 3}, make([]byte, 300)} {
		b := ser.ToBytes(NewBytes(v))
		back, err := ser.FromBytes(b, false)
		if err != nil {
			t.Fatalf("FromBytes: %v", err)
		}
		want := v
		if len(want) == 0 {
			want = nil
		}
		got := back.Bytes()
		if len(got) != len(want) {
			t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ser := TimestampSerializer()
	ts := UnixMillisTimestamp(1700000000000)
	b := ser.ToBytes(ts)
	back, err := ser.FromBytes(b, false)
	if err != nil || back.UnixMillis() != ts.UnixMillis() {
		t.Fatalf("round trip: got %v, err=%v", back, err)
	}

	zero := Timestamp{}
	bz := ser.ToBytes(zero)
	if bz.Bytes()[4] != 0 {
		t.Fatalf("zero timestamp should encode as literal 0, got %d", bz.Bytes()[4])
	}
}

func TestBoolJSON(t *testing.T) {
	ser := BoolSerializer()
	jt := ser.ToJSON(true, Dense)
	jf := ser.ToJSON(false, Dense)
	bt, _ := ser.FromJSON(jt, false)
	bf, _ := ser.FromJSON(jf, false)
	if !bt || bf {
		t.Fatalf("bool round trip failed: true=%v false=%v", bt, bf)
	}
}
