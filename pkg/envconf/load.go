// Package envconf fills tagged structs from environment variables.
//
// Fields are tagged with `env:"NAME"`. A field without a `default:"..."` tag is
// required; with one, the default is parsed whenever the variable is unset.
// Slices are split on `sep:"..."` (comma when absent). Untagged struct and
// pointer-to-struct fields are loaded recursively.
//
// Load reports every missing or malformed variable at once rather than
// stopping at the first.
package envconf

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingRequired = errors.New("missing required environment variable")
	ErrUnsupportedType = errors.New("unsupported field type")
	ErrInvalidTarget   = errors.New("destination must be a non-nil pointer to a struct")
)

// FieldError ties a failure to the variable and struct field that caused it.
type FieldError struct {
	Var   string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s (field %s): %v", e.Var, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

func Load(dst any) error {
	v := reflect.ValueOf(dst)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	var errs []error

	loadStruct(v.Elem(), &errs)

	return errors.Join(errs...)
}

func loadStruct(v reflect.Value, errs *[]error) {
	t := v.Type()

	for i := range v.NumField() {
		sf := t.Field(i)
		fv := v.Field(i)

		if !sf.IsExported() {
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" || name == "-" {
			loadNested(fv, errs)
			continue
		}

		raw, ok := os.LookupEnv(name)
		if !ok {
			def, hasDefault := sf.Tag.Lookup("default")
			if !hasDefault {
				*errs = append(*errs, &FieldError{Var: name, Field: sf.Name, Err: ErrMissingRequired})
				continue
			}

			if def == "" {
				continue
			}

			raw = def
		}

		err := assign(fv, raw, sf.Tag.Get("sep"))
		if err != nil {
			*errs = append(*errs, &FieldError{Var: name, Field: sf.Name, Err: err})
		}
	}
}

// loadNested descends into untagged struct fields, allocating nil pointers.
func loadNested(fv reflect.Value, errs *[]error) {
	switch {
	case fv.Kind() == reflect.Struct && fv.Type() != durationType:
		loadStruct(fv, errs)
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}

		loadStruct(fv.Elem(), errs)
	}
}

func assign(fv reflect.Value, raw, sep string) error {
	if reflect.PointerTo(fv.Type()).Implements(textUnmarshalerType) {
		return fv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)) //nolint:forcetypeassert
	}

	switch fv.Kind() {
	case reflect.Pointer:
		elem := reflect.New(fv.Type().Elem())

		err := assign(elem.Elem(), raw, sep)
		if err != nil {
			return err
		}

		fv.Set(elem)

		return nil
	case reflect.Slice:
		return assignSlice(fv, raw, sep)
	default:
		return assignScalar(fv, raw)
	}
}

func assignSlice(fv reflect.Value, raw, sep string) error {
	if sep == "" {
		sep = ","
	}

	parts := strings.Split(raw, sep)
	out := reflect.MakeSlice(fv.Type(), 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		elem := reflect.New(fv.Type().Elem()).Elem()

		err := assign(elem, p, sep)
		if err != nil {
			return fmt.Errorf("element %q: %w", p, err)
		}

		out = reflect.Append(out, elem)
	}

	fv.Set(out)

	return nil
}

func assignScalar(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse bool: %w", err)
		}

		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fv.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("parse duration: %w", err)
			}

			fv.SetInt(int64(d))

			return nil
		}

		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse int: %w", err)
		}

		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse uint: %w", err)
		}

		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse float: %w", err)
		}

		fv.SetFloat(f)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, fv.Type())
	}

	return nil
}
