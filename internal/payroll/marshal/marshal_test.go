package marshal

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "small integer", raw: "42", want: "42"},
		{name: "18 decimal token amount", raw: "123456789012345678901234567890", want: "123456789012345678901234567890"},
		{name: "negative", raw: "-5", want: "-5"},
		{name: "whitespace padded", raw: " 7 ", want: "7"},
		{name: "empty", raw: "", wantErr: true},
		{name: "non numeric", raw: "abc", wantErr: true},
		{name: "float literal", raw: "1.5", wantErr: true},
		{name: "hex", raw: "0x10", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) expected error", tc.raw)
				}
				if !apperrors.IsCode(err, apperrors.CodeInvalidAmount) {
					t.Fatalf("expected INVALID_AMOUNT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) returned error: %v", tc.raw, err)
			}
			if got.String() != tc.want {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tc.raw, got.String(), tc.want)
			}
		})
	}
}

func TestWrapIdempotent(t *testing.T) {
	base, err := ParseAmount("1000000000000000000")
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}

	once := Wrap(base)
	twice := Wrap(once)
	if !once.Equal(twice) {
		t.Fatalf("Wrap not idempotent: %s vs %s", once, twice)
	}
	if !Wrap(Amount{}).IsZero() {
		t.Fatal("wrapping the zero value should stay zero")
	}
}

func TestAmountAdd(t *testing.T) {
	a := NewAmountFromInt64(100)
	b := NewAmountFromInt64(50)

	sum := a.Add(b)
	if sum.String() != "150" {
		t.Fatalf("sum = %s, want 150", sum)
	}
	// Operands must be untouched.
	if a.String() != "100" || b.String() != "50" {
		t.Fatalf("operands mutated: %s, %s", a, b)
	}
}

func TestAmountJSONRoundTrip(t *testing.T) {
	original := NewAmount(new(big.Int).SetUint64(^uint64(0)))

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"18446744073709551615"` {
		t.Fatalf("marshalled = %s", data)
	}

	var decoded Amount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(original) {
		t.Fatalf("round trip mismatch: %s vs %s", decoded, original)
	}
}

func TestAmountUnmarshalBareNumber(t *testing.T) {
	var decoded Amount
	if err := json.Unmarshal([]byte(`250`), &decoded); err != nil {
		t.Fatalf("unmarshal bare number: %v", err)
	}
	if decoded.String() != "250" {
		t.Fatalf("decoded = %s, want 250", decoded)
	}

	var bad Amount
	if err := json.Unmarshal([]byte(`"nope"`), &bad); err == nil {
		t.Fatal("expected error for non-numeric amount")
	} else {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			t.Fatalf("expected domain error, got %v", err)
		}
	}
}

func TestParseEpochSeconds(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *time.Time
	}{
		{name: "empty", raw: "", want: nil},
		{name: "zero", raw: "0", want: nil},
		{name: "garbage", raw: "not-a-time", want: nil},
		{name: "negative", raw: "-1", want: nil},
		{name: "beyond safe integer", raw: "9007199254740993", want: nil},
		{name: "valid", raw: "1700000000", want: timePtr(time.UnixMilli(1700000000000).UTC())},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseEpochSeconds(tc.raw)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("ParseEpochSeconds(%q) = %v, want %v", tc.raw, got, tc.want)
			}
			if got != nil && !got.Equal(*tc.want) {
				t.Fatalf("ParseEpochSeconds(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseEndDateSentinel(t *testing.T) {
	if got := ParseEndDate("18446744073709551615"); got != nil {
		t.Fatalf("sentinel end date should normalize to nil, got %v", got)
	}
	got := ParseEndDate("1700000000")
	if got == nil {
		t.Fatal("real end date should parse")
	}
	want := time.UnixMilli(1700000000000).UTC()
	if !got.Equal(want) {
		t.Fatalf("end date = %v, want %v", got, want)
	}
}

func TestParseDurationSeconds(t *testing.T) {
	if got := ParseDurationSeconds("3600"); got != time.Hour {
		t.Fatalf("duration = %v, want 1h", got)
	}
	if got := ParseDurationSeconds("junk"); got != 0 {
		t.Fatalf("duration = %v, want 0", got)
	}
}

func TestParseUint(t *testing.T) {
	if got := ParseUint("18"); got != 18 {
		t.Fatalf("ParseUint = %d, want 18", got)
	}
	if got := ParseUint("x"); got != 0 {
		t.Fatalf("ParseUint garbage = %d, want 0", got)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
