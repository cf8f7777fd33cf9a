package entity

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// SetField assigns value to the field of record tagged name. A nil value
// resets the field to its zero value.
func SetField[T any](record *T, name string, value any) error {
	if value == nil {
		return zeroField(record, name)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           record,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(map[string]any{name: value}); err != nil {
		return fmt.Errorf("setting field %s: %w", name, err)
	}
	return nil
}

// Decode applies values to record, skipping nil entries.
func Decode[T any](record *T, values map[string]any) error {
	for name, value := range values {
		if value == nil {
			continue
		}
		if err := SetField(record, name, value); err != nil {
			return err
		}
	}
	return nil
}

// Fields returns record's fields keyed by their tag names.
func Fields[T any](record T) (map[string]any, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(record, &out); err != nil {
		return nil, fmt.Errorf("reading fields: %w", err)
	}
	return out, nil
}

// zeroField resets the tagged field. mapstructure leaves fields untouched on
// nil input, so this walks the struct directly.
func zeroField[T any](record *T, name string) error {
	v := reflect.ValueOf(record).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("setting field %s: record is not a struct", name)
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("mapstructure") == name {
			f := v.Field(i)
			f.Set(reflect.Zero(f.Type()))
			return nil
		}
	}
	return fmt.Errorf("setting field %s: unknown field", name)
}
