package sdkutils

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// InvalidArgumentError reports a CLI value that could not be parsed
type InvalidArgumentError struct {
	Value  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return e.Reason
}

// IsInvalidArgumentError checks if an error is an InvalidArgumentError
func IsInvalidArgumentError(err error) bool {
	var e *InvalidArgumentError
	return errors.As(err, &e)
}

// Str2Bool converts a CLI boolean text value into a bool.
func Str2Bool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "true", "t", "y", "1":
		return true, nil
	case "no", "false", "f", "n", "0":
		return false, nil
	default:
		return false, &InvalidArgumentError{Value: v, Reason: "Boolean value expected."}
	}
}

var _ pflag.Value = (*BoolValue)(nil)

// BoolValue is a pflag.Value accepting every spelling Str2Bool does.
// Value stays nil until the flag is given on the command line.
type BoolValue struct {
	Value *bool
}

func (b *BoolValue) String() string {
	if b.Value == nil {
		return ""
	}
	return strconv.FormatBool(*b.Value)
}

func (b *BoolValue) Set(s string) error {
	v, err := Str2Bool(s)
	if err != nil {
		return err
	}
	b.Value = &v
	return nil
}

// Type names the value placeholder shown in usage; the flag always takes one.
func (b *BoolValue) Type() string {
	return "yes|no"
}
