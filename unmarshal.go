// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"fmt"
	"reflect"
)

// Unmarshaler decodes a value directly from a Reader.
type Unmarshaler interface {
	UnmarshalPack(r *Reader) error
}

// Unmarshal decodes data (a complete Pack message produced by Marshal) into
// v, which must be a non-nil pointer to a struct whose fields carry `pack`
// tags matching those used to encode it. A non-required scalar field absent
// from the message is set to the default of Null() (see Marshal); an absent
// pointer field keeps its current value; an absent nested struct or slice
// field is an error. An empty array decodes as a nil slice.
func Unmarshal(data []byte, v interface{}) error {
	r := NewReaderBytes(data)
	if u, ok := v.(Unmarshaler); ok {
		return u.UnmarshalPack(r)
	}
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("pack: cannot unmarshal into %T: want non-nil pointer", v)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("pack: cannot unmarshal into %T: not a struct", v)
	}
	return unmarshalStruct(r, val)
}

func unmarshalStruct(r *Reader, val reflect.Value) error {
	info, err := structFields(val.Type())
	if err != nil {
		return err
	}
	for _, fi := range info {
		if err := unmarshalField(r, fi, val.Field(fi.index)); err != nil {
			return fmt.Errorf("field %q: %w", fi.name, err)
		}
	}
	return nil
}

func unmarshalField(r *Reader, fi fieldInfo, field reflect.Value) error {
	id := fi.id
	opt := FieldOpt(func(o *fieldOpts) {})
	if !fi.required {
		opt = Null()
	}

	switch field.Kind() {
	case reflect.Bool:
		v, err := r.ReadBool(id, opt)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.String:
		v, err := r.ReadStr(id, opt)
		if err != nil {
			return err
		}
		field.SetString(v)
	case reflect.Int32:
		v, err := r.ReadI32(id, opt)
		if err != nil {
			return err
		}
		field.SetInt(int64(v))
	case reflect.Int, reflect.Int64:
		v, err := r.ReadI64(id, opt)
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Uint32:
		v, err := r.ReadU32(id, opt)
		if err != nil {
			return err
		}
		field.SetUint(uint64(v))
	case reflect.Uint, reflect.Uint64:
		v, err := r.ReadU64(id, opt)
		if err != nil {
			return err
		}
		field.SetUint(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			v, err := r.ReadBin(id, opt)
			if err != nil {
				return err
			}
			field.SetBytes(v)
			return nil
		}
		if err := r.ReadArrayBegin(id); err != nil {
			return err
		}
		etype := field.Type().Elem()
		out := reflect.Zero(field.Type())
		for {
			more, err := r.ReadNext()
			if err != nil {
				return err
			}
			if !more {
				break
			}
			elem := reflect.New(etype).Elem()
			if err := unmarshalElem(r, elem); err != nil {
				return fmt.Errorf("index %d: %w", out.Len(), err)
			}
			out = reflect.Append(out, elem)
		}
		if err := r.ReadArrayEnd(); err != nil {
			return err
		}
		field.Set(out)
	case reflect.Struct:
		switch field.Interface().(type) {
		case Time:
			v, err := r.ReadTime(id, opt)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(v))
			return nil
		case Ptr:
			v, err := r.ReadPtr(id, opt)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(v))
			return nil
		}
		if err := r.ReadObjBegin(id); err != nil {
			return err
		}
		if err := unmarshalStruct(r, field); err != nil {
			return err
		}
		return r.ReadObjEnd()
	case reflect.Ptr:
		isNull, err := r.ReadNull(id)
		if err != nil {
			return err
		}
		if isNull {
			r.st.top().idLast = id
			return nil
		}
		elem := reflect.New(field.Type().Elem())
		if err := unmarshalField(r, fi, elem.Elem()); err != nil {
			return err
		}
		field.Set(elem)
	default:
		return fmt.Errorf("type %s cannot be unmarshaled", field.Type())
	}
	return nil
}

func unmarshalElem(r *Reader, field reflect.Value) error {
	return unmarshalField(r, fieldInfo{id: 0, required: true}, field)
}
