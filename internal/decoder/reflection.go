package decoder

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sync"

	"github.com/mmdbkit/mmdbreader/internal/mmdberrors"
)

// Unmarshaler is implemented by types that want full control over their own
// decoding, the way json.Unmarshaler does for encoding/json. A type
// implementing this is dispatched to directly, bypassing reflection.
type Unmarshaler interface {
	UnmarshalMaxMindDB(d *Decoder) error
}

// ReflectionDecoder decodes data-section values into arbitrary Go values
// using reflection, following `maxminddb:"..."` struct tags the way
// encoding/json follows `json:"..."` tags.
type ReflectionDecoder struct {
	DataDecoder
}

// New builds a ReflectionDecoder over buffer.
func New(buffer []byte) ReflectionDecoder {
	return ReflectionDecoder{DataDecoder: NewDataDecoder(buffer)}
}

// Decode decodes the value at offset into v, which must be a non-nil
// pointer.
func (d *ReflectionDecoder) Decode(offset uint, v any) error {
	if unmarshaler, ok := v.(Unmarshaler); ok {
		dec := NewDecoder(d.DataDecoder, offset)
		if err := dec.unmarshal(unmarshaler); err != nil {
			return err
		}
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("result param must be a pointer")
	}

	_, err := d.decode(offset, rv, 0)
	return d.wrapError(err, offset)
}

// DecodePath decodes the value found by following path (a sequence of map
// keys and slice indices) from offset into v.
func (d *ReflectionDecoder) DecodePath(offset uint, path []any, v any) error {
	result := reflect.ValueOf(v)
	if result.Kind() != reflect.Ptr || result.IsNil() {
		return errors.New("result param must be a pointer")
	}

PATH:
	for _, step := range path {
		kind, size, next, err := d.decodeCtrlData(offset)
		if err != nil {
			return err
		}
		if kind == KindPointer {
			pointer, _, err := d.decodePointer(size, next)
			if err != nil {
				return err
			}
			kind, size, next, err = d.decodeCtrlData(pointer)
			if err != nil {
				return err
			}
		}

		switch s := step.(type) {
		case string:
			if kind != KindMap {
				return fmt.Errorf("expected a map for %q but found %s", s, kind)
			}
			for i := uint(0); i < size; i++ {
				var key []byte
				key, next, err = d.decodeKey(next)
				if err != nil {
					return err
				}
				if string(key) == s {
					offset = next
					continue PATH
				}
				next, err = d.nextValueOffset(next, 1)
				if err != nil {
					return err
				}
			}
			return nil
		case int:
			if kind != KindSlice {
				return fmt.Errorf("expected a slice for %d but found %s", s, kind)
			}
			var i uint
			switch {
			case s < 0 && size < uint(-s):
				return nil
			case s < 0:
				i = size - uint(-s)
			case size <= uint(s):
				return nil
			default:
				i = uint(s)
			}
			offset, err = d.nextValueOffset(next, i)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected type for value in path: %T", step)
		}
	}
	_, err := d.decode(offset, result, len(path))
	return d.wrapError(err, offset)
}

func (d *ReflectionDecoder) wrapError(err error, offset uint) error {
	if err == nil {
		return nil
	}
	return mmdberrors.WrapWithContext(err, offset, nil)
}

func (d *ReflectionDecoder) wrapErrorWithMapKey(err error, key string) error {
	if err == nil {
		return nil
	}
	pb := mmdberrors.NewPathBuilder()
	var ctxErr mmdberrors.ContextualError
	if errors.As(err, &ctxErr) {
		pb.ParseAndExtend(ctxErr.Path)
		pb.PrependMap(key)
		return mmdberrors.WrapWithContext(ctxErr.Err, ctxErr.Offset, pb)
	}
	pb.PrependMap(key)
	return mmdberrors.WrapWithContext(err, 0, pb)
}

func (d *ReflectionDecoder) wrapErrorWithSliceIndex(err error, index int) error {
	if err == nil {
		return nil
	}
	pb := mmdberrors.NewPathBuilder()
	var ctxErr mmdberrors.ContextualError
	if errors.As(err, &ctxErr) {
		pb.ParseAndExtend(ctxErr.Path)
		pb.PrependSlice(index)
		return mmdberrors.WrapWithContext(ctxErr.Err, ctxErr.Offset, pb)
	}
	pb.PrependSlice(index)
	return mmdberrors.WrapWithContext(err, 0, pb)
}

func (d *ReflectionDecoder) decode(offset uint, result reflect.Value, depth int) (uint, error) {
	if depth > maximumDataStructureDepth {
		return 0, mmdberrors.NewInvalidDatabaseError(
			"exceeded maximum data structure depth; database is likely corrupt",
		)
	}

	if result.Kind() == reflect.Ptr {
		if result.IsNil() {
			result.Set(reflect.New(result.Type().Elem()))
		}
		return d.decode(offset, result.Elem(), depth)
	}

	if result.CanAddr() {
		if unmarshaler, ok := result.Addr().Interface().(Unmarshaler); ok {
			dec := NewDecoder(d.DataDecoder, offset)
			if err := dec.unmarshal(unmarshaler); err != nil {
				return 0, err
			}
			return dec.offset, nil
		}
	}

	kind, size, newOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return 0, err
	}

	if kind != KindPointer && result.Kind() == reflect.Uintptr {
		result.Set(reflect.ValueOf(uintptr(offset)))
		return d.nextValueOffset(offset, 1)
	}
	return d.decodeFromType(kind, size, newOffset, result, depth+1)
}

func (d *ReflectionDecoder) decodeFromType(
	kind Kind, size, offset uint, result reflect.Value, depth int,
) (uint, error) {
	result = indirect(result)

	switch kind {
	case KindBool:
		return d.unmarshalBool(size, offset, result)
	case KindMap:
		return d.unmarshalMap(size, offset, result, depth)
	case KindPointer:
		return d.unmarshalPointer(size, offset, result, depth)
	case KindSlice:
		return d.unmarshalSlice(size, offset, result, depth)
	case KindBytes:
		return d.unmarshalBytes(size, offset, result)
	case KindFloat32:
		return d.unmarshalFloat32(size, offset, result)
	case KindFloat64:
		return d.unmarshalFloat64(size, offset, result)
	case KindInt32:
		return d.unmarshalInt32(size, offset, result)
	case KindUint16:
		return d.unmarshalUint(size, offset, result, 2)
	case KindUint32:
		return d.unmarshalUint(size, offset, result, 4)
	case KindUint64:
		return d.unmarshalUint(size, offset, result, 8)
	case KindString:
		return d.unmarshalString(size, offset, result)
	case KindUint128:
		return d.unmarshalUint128(size, offset, result)
	default:
		return 0, mmdberrors.NewInvalidDatabaseError("unknown type: %d", kind)
	}
}

// indirect follows pointers and creates values as necessary, loading an
// interface's concrete pointer when one is already present. Based on the
// same approach encoding/json uses.
func indirect(result reflect.Value) reflect.Value {
	for {
		if result.Kind() == reflect.Interface && !result.IsNil() {
			e := result.Elem()
			if e.Kind() == reflect.Ptr && !e.IsNil() {
				result = e
				continue
			}
		}
		if result.Kind() != reflect.Ptr {
			break
		}
		if result.IsNil() {
			result.Set(reflect.New(result.Type().Elem()))
		}
		result = result.Elem()
	}
	return result
}

func (d *ReflectionDecoder) unmarshalBool(size, offset uint, result reflect.Value) (uint, error) {
	value, newOffset := d.decodeBool(size, offset)
	switch result.Kind() {
	case reflect.Bool:
		result.SetBool(value)
		return newOffset, nil
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

var byteSliceType = reflect.TypeOf([]byte{})

func (d *ReflectionDecoder) unmarshalBytes(size, offset uint, result reflect.Value) (uint, error) {
	value, newOffset, err := d.decodeBytes(size, offset)
	if err != nil {
		return 0, err
	}
	switch result.Kind() {
	case reflect.Slice:
		if result.Type() == byteSliceType {
			result.SetBytes(value)
			return newOffset, nil
		}
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

func (d *ReflectionDecoder) unmarshalFloat32(size, offset uint, result reflect.Value) (uint, error) {
	value, newOffset, err := d.decodeFloat32(size, offset)
	if err != nil {
		return 0, err
	}
	switch result.Kind() {
	case reflect.Float32, reflect.Float64:
		result.SetFloat(float64(value))
		return newOffset, nil
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

func (d *ReflectionDecoder) unmarshalFloat64(size, offset uint, result reflect.Value) (uint, error) {
	value, newOffset, err := d.decodeFloat64(size, offset)
	if err != nil {
		return 0, err
	}
	switch result.Kind() {
	case reflect.Float32, reflect.Float64:
		if result.OverflowFloat(value) {
			return 0, mmdberrors.NewUnmarshalTypeError(value, result.Type())
		}
		result.SetFloat(value)
		return newOffset, nil
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

func (d *ReflectionDecoder) unmarshalInt32(size, offset uint, result reflect.Value) (uint, error) {
	value, newOffset, err := d.decodeInt32(size, offset)
	if err != nil {
		return 0, err
	}
	switch result.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := int64(value)
		if !result.OverflowInt(n) {
			result.SetInt(n)
			return newOffset, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := uint64(value)
		if !result.OverflowUint(n) {
			result.SetUint(n)
			return newOffset, nil
		}
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

func (d *ReflectionDecoder) unmarshalUint(
	size, offset uint, result reflect.Value, maxSize uint,
) (uint, error) {
	value, newOffset, err := d.decodeUint(size, offset, maxSize)
	if err != nil {
		return 0, err
	}
	switch result.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := int64(value)
		if n >= 0 && !result.OverflowInt(n) {
			result.SetInt(n)
			return newOffset, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !result.OverflowUint(value) {
			result.SetUint(value)
			return newOffset, nil
		}
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

var bigIntType = reflect.TypeOf(big.Int{})

func (d *ReflectionDecoder) unmarshalUint128(size, offset uint, result reflect.Value) (uint, error) {
	value, newOffset, err := d.decodeUint128(size, offset)
	if err != nil {
		return 0, err
	}
	switch result.Kind() {
	case reflect.Struct:
		if result.Type() == bigIntType {
			result.Set(reflect.ValueOf(*value))
			return newOffset, nil
		}
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

func (d *ReflectionDecoder) unmarshalString(size, offset uint, result reflect.Value) (uint, error) {
	value, newOffset, err := d.decodeString(size, offset)
	if err != nil {
		return 0, err
	}
	switch result.Kind() {
	case reflect.String:
		result.SetString(value)
		return newOffset, nil
	case reflect.Interface:
		if result.NumMethod() == 0 {
			result.Set(reflect.ValueOf(value))
			return newOffset, nil
		}
	}
	return newOffset, mmdberrors.NewUnmarshalTypeError(value, result.Type())
}

func (d *ReflectionDecoder) unmarshalMap(
	size, offset uint, result reflect.Value, depth int,
) (uint, error) {
	result = indirect(result)
	switch result.Kind() {
	case reflect.Struct:
		return d.decodeStruct(size, offset, result, depth)
	case reflect.Map:
		return d.decodeMap(size, offset, result, depth)
	case reflect.Interface:
		if result.NumMethod() == 0 {
			rv := reflect.ValueOf(make(map[string]any, size))
			newOffset, err := d.decodeMap(size, offset, rv, depth)
			result.Set(rv)
			return newOffset, err
		}
		return 0, mmdberrors.NewUnmarshalTypeStrError("map", result.Type())
	default:
		return 0, mmdberrors.NewUnmarshalTypeStrError("map", result.Type())
	}
}

func (d *ReflectionDecoder) unmarshalPointer(
	size, offset uint, result reflect.Value, depth int,
) (uint, error) {
	pointer, newOffset, err := d.decodePointer(size, offset)
	if err != nil {
		return 0, err
	}
	_, err = d.decode(pointer, result, depth)
	return newOffset, err
}

func (d *ReflectionDecoder) unmarshalSlice(
	size, offset uint, result reflect.Value, depth int,
) (uint, error) {
	switch result.Kind() {
	case reflect.Slice:
		return d.decodeSlice(size, offset, result, depth)
	case reflect.Interface:
		if result.NumMethod() == 0 {
			a := []any{}
			rv := reflect.ValueOf(&a).Elem()
			newOffset, err := d.decodeSlice(size, offset, rv, depth)
			result.Set(rv)
			return newOffset, err
		}
	}
	return 0, mmdberrors.NewUnmarshalTypeStrError("array", result.Type())
}

func (d *ReflectionDecoder) decodeMap(
	size, offset uint, result reflect.Value, depth int,
) (uint, error) {
	if result.IsNil() {
		result.Set(reflect.MakeMapWithSize(result.Type(), int(size)))
	}
	mapType := result.Type()
	keyValue := reflect.New(mapType.Key()).Elem()
	elemType := mapType.Elem()
	var elemValue reflect.Value
	for i := uint(0); i < size; i++ {
		var err error
		offset, err = d.decode(offset, keyValue, depth)
		if err != nil {
			return 0, err
		}
		if elemValue.IsValid() {
			elemValue.SetZero()
		} else {
			elemValue = reflect.New(elemType).Elem()
		}
		offset, err = d.decode(offset, elemValue, depth)
		if err != nil {
			return 0, d.wrapErrorWithMapKey(err, keyValue.String())
		}
		result.SetMapIndex(keyValue, elemValue)
	}
	return offset, nil
}

func (d *ReflectionDecoder) decodeSlice(
	size, offset uint, result reflect.Value, depth int,
) (uint, error) {
	result.Set(reflect.MakeSlice(result.Type(), int(size), int(size)))
	for i := uint(0); i < size; i++ {
		var err error
		offset, err = d.decode(offset, result.Index(int(i)), depth)
		if err != nil {
			return 0, d.wrapErrorWithSliceIndex(err, int(i))
		}
	}
	return offset, nil
}

func (d *ReflectionDecoder) decodeStruct(
	size, offset uint, result reflect.Value, depth int,
) (uint, error) {
	fields := cachedFields(result.Type())
	for i := uint(0); i < size; i++ {
		var (
			err error
			key []byte
		)
		key, offset, err = d.decodeKey(offset)
		if err != nil {
			return 0, err
		}
		index, ok := fields[string(key)]
		if !ok {
			offset, err = d.nextValueOffset(offset, 1)
			if err != nil {
				return 0, err
			}
			continue
		}
		offset, err = d.decode(offset, result.Field(index), depth)
		if err != nil {
			return 0, d.wrapErrorWithMapKey(err, string(key))
		}
	}
	return offset, nil
}

var structFieldCache sync.Map // map[reflect.Type]map[string]int

// cachedFields maps a `maxminddb` tag (or, absent a tag, the field name) to
// its field index, for exported fields of t. A tag of "-" excludes a field.
func cachedFields(t reflect.Type) map[string]int {
	if cached, ok := structFieldCache.Load(t); ok {
		return cached.(map[string]int)
	}

	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("maxminddb"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fields[name] = i
	}
	structFieldCache.Store(t, fields)
	return fields
}
