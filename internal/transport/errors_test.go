package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goburrow/modbus"
)

func TestClassify_IllegalAddressIsPermanent(t *testing.T) {
	cl := DefaultClassifier()

	err := &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: modbus.ExceptionCodeIllegalDataAddress}
	if got := cl.Classify(err); got != ClassPermanent {
		t.Fatalf("illegal address classified %v, want permanent", got)
	}
}

func TestClassify_IllegalValueIsTransient(t *testing.T) {
	cl := DefaultClassifier()

	err := &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: modbus.ExceptionCodeIllegalDataValue}
	if got := cl.Classify(err); got != ClassTransient {
		t.Fatalf("illegal value classified %v, want transient", got)
	}
}

func TestClassify_WrappedException(t *testing.T) {
	cl := DefaultClassifier()

	inner := &modbus.ModbusError{FunctionCode: 0x84, ExceptionCode: modbus.ExceptionCodeIllegalDataAddress}
	err := fmt.Errorf("read group: %w", inner)
	if got := cl.Classify(err); got != ClassPermanent {
		t.Fatalf("wrapped exception classified %v, want permanent", got)
	}
}

func TestClassify_TransportErrorIsTransient(t *testing.T) {
	cl := DefaultClassifier()

	if got := cl.Classify(errors.New("read tcp: i/o timeout")); got != ClassTransient {
		t.Fatalf("timeout classified %v, want transient", got)
	}
}

func TestClassify_OverrideFromConfig(t *testing.T) {
	cl := DefaultClassifier()
	cl[modbus.ExceptionCodeIllegalDataValue] = ClassPermanent

	err := &modbus.ModbusError{ExceptionCode: modbus.ExceptionCodeIllegalDataValue}
	if got := cl.Classify(err); got != ClassPermanent {
		t.Fatalf("override ignored, got %v", got)
	}
}

func TestParseClass(t *testing.T) {
	if c, err := ParseClass("permanent"); err != nil || c != ClassPermanent {
		t.Fatalf("ParseClass(permanent) = %v, %v", c, err)
	}
	if _, err := ParseClass("flaky"); err == nil {
		t.Fatal("ParseClass accepted unknown class")
	}
}

func TestUnpackRegisters_ShortPayload(t *testing.T) {
	if _, err := unpackRegisters([]byte{0x00}, 1); err == nil {
		t.Fatal("short payload accepted")
	}
}

func TestUnpackBits(t *testing.T) {
	bits := unpackBits([]byte{0b00000101}, 3)
	want := []bool{true, false, true}
	for i := range want {
		if bits[i] != want[i] {
			t.Fatalf("bit %d = %v, want %v", i, bits[i], want[i])
		}
	}
}
