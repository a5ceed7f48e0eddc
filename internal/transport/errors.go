package transport

import (
	"errors"
	"fmt"

	"github.com/goburrow/modbus"
)

// ErrorClass drives capability classification during scanning and register
// demotion during polling.
type ErrorClass int

const (
	// ClassTransient covers timeouts, connection faults and exception
	// codes that may clear on retry (busy, device failure, illegal value).
	ClassTransient ErrorClass = iota
	// ClassPermanent means the addressed register does not exist on this
	// unit (illegal address / illegal function).
	ClassPermanent
)

func (c ErrorClass) String() string {
	if c == ClassPermanent {
		return "permanent"
	}
	return "transient"
}

// Classifier maps Modbus exception codes to error classes. The mapping is
// firmware-dependent, so it is data, not code.
type Classifier map[byte]ErrorClass

// DefaultClassifier treats only illegal-function and illegal-address as
// permanent. Illegal data value is deliberately transient: some firmwares
// use it for disabled features, others for bad requests, and a wrong
// "permanent" guess hides registers forever.
func DefaultClassifier() Classifier {
	return Classifier{
		modbus.ExceptionCodeIllegalFunction:                    ClassPermanent,
		modbus.ExceptionCodeIllegalDataAddress:                 ClassPermanent,
		modbus.ExceptionCodeIllegalDataValue:                   ClassTransient,
		modbus.ExceptionCodeServerDeviceFailure:                ClassTransient,
		modbus.ExceptionCodeAcknowledge:                        ClassTransient,
		modbus.ExceptionCodeServerDeviceBusy:                   ClassTransient,
		modbus.ExceptionCodeGatewayPathUnavailable:             ClassTransient,
		modbus.ExceptionCodeGatewayTargetDeviceFailedToRespond: ClassTransient,
	}
}

// ParseClass reads a class name from configuration.
func ParseClass(s string) (ErrorClass, error) {
	switch s {
	case "transient":
		return ClassTransient, nil
	case "permanent":
		return ClassPermanent, nil
	}
	return 0, fmt.Errorf("transport: unknown error class %q", s)
}

// Classify assigns an error class. Protocol exceptions go through the
// classifier table; everything else (timeout, reset, framing) is a
// transient transport error.
func (cl Classifier) Classify(err error) ErrorClass {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		if class, ok := cl[me.ExceptionCode]; ok {
			return class
		}
		return ClassTransient
	}
	return ClassTransient
}

// IsException reports whether err carries a Modbus exception code, and
// which one.
func IsException(err error) (byte, bool) {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return me.ExceptionCode, true
	}
	return 0, false
}
