package request

import (
	jsonlib "encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

// ToFormBody converts a JSON like map to form body map, any type is mapped to string.
func ToFormBody(in map[string]any) (out map[string]string) {
	out = make(map[string]string)
	for k, v := range in {
		if v == nil {
			continue
		}
		ty := reflect.TypeOf(v)
		if ty.Kind() == reflect.Slice && ty.Elem().Kind() == reflect.String {
			for i, s := range v.([]string) {
				out[fmt.Sprintf("%s[%d]", k, i)] = s
			}
		} else if ty.Kind() == reflect.Map && ty.Elem().Kind() == reflect.String {
			for i, s := range v.(map[string]string) {
				out[fmt.Sprintf("%s[%s]", k, i)] = s
			}
		} else {
			out[k] = castToString(v)
		}
	}
	return out
}

// ValuesToMap converts query values to a JSON like map.
// A single value is mapped to a string, multiple values to a slice of strings.
func ValuesToMap(in url.Values) map[string]any {
	out := make(map[string]any, len(in))
	for k, values := range in {
		switch len(values) {
		case 0:
			continue
		case 1:
			out[k] = values[0]
		default:
			out[k] = append([]string(nil), values...)
		}
	}
	return out
}

// EncodeBody serializes a request body to a stable string.
// Maps and structs are encoded as a sorted query string, other values are cast to a string.
// It is used to distinguish requests with different bodies.
func EncodeBody(body any) string {
	if body == nil {
		return ""
	}
	switch v := body.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case url.Values:
		return v.Encode()
	case map[string]string:
		return encodeFormMap(v)
	case map[string]any:
		return encodeFormMap(toStringMap(v))
	case *orderedmap.OrderedMap:
		return castToString(v)
	}

	value := reflect.ValueOf(body)
	for value.Kind() == reflect.Ptr || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return ""
		}
		value = value.Elem()
	}
	switch value.Kind() {
	case reflect.Struct:
		return encodeFormMap(toStringMap(StructToMap(value.Interface(), nil)))
	case reflect.Map, reflect.Slice, reflect.Array:
		if bytes, err := jsonlib.Marshal(value.Interface()); err == nil {
			return string(bytes)
		}
		return fmt.Sprintf("%v", value.Interface())
	default:
		if str, err := cast.ToStringE(value.Interface()); err == nil {
			return str
		}
		return fmt.Sprintf("%v", value.Interface())
	}
}

// StructToMap converts a struct to values map.
// Only defined allowedFields are converted.
// If allowedFields = nil, then all fields are exported.
//
// Field name is read from "json" tag, fields without the tag are ignored.
// Field with tag `readonly:"true"` is ignored.
func StructToMap(in any, allowedFields []string) (out map[string]any) {
	out = make(map[string]any)
	structToMap(reflect.ValueOf(in), out, allowedFields)
	return out
}

func structToMap(in reflect.Value, out map[string]any, allowedFields []string) {
	for in.Kind() == reflect.Ptr || in.Kind() == reflect.Interface {
		in = in.Elem()
	}
	t := in.Type()

	allowed := make(map[string]bool)
	for _, field := range allowedFields {
		allowed[field] = true
	}

	for i := range t.NumField() {
		field := t.Field(i)
		fieldValue := in.Field(i)

		// Process embedded type
		if field.Anonymous {
			structToMap(fieldValue, out, allowedFields)
			continue
		}

		if !field.IsExported() || field.Tag.Get("readonly") == "true" {
			continue
		}

		jsonTag := strings.Split(field.Tag.Get("json"), ",")
		fieldName := jsonTag[0]
		if fieldName == "" || fieldName == "-" {
			continue
		}

		// Skip empty values of the "omitempty" fields
		if len(jsonTag) > 1 && jsonTag[1] == "omitempty" && fieldValue.IsZero() {
			continue
		}

		if len(allowedFields) > 0 && !allowed[fieldName] {
			continue
		}

		out[fieldName] = fieldValue.Interface()
	}
}

// toStringMap is a lenient variant of ToFormBody, nested values are encoded as JSON.
func toStringMap(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		if str, err := cast.ToStringE(v); err == nil {
			out[k] = str
		} else if bytes, err := jsonlib.Marshal(v); err == nil {
			out[k] = string(bytes)
		} else {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

func encodeFormMap(in map[string]string) string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(in[k]))
	}
	return b.String()
}

func cloneURLValues(in url.Values) (out url.Values) {
	out = make(url.Values)
	for k, values := range in {
		for _, v := range values {
			out.Add(k, v)
		}
	}
	return out
}

func castToString(v any) string {
	// Ordered map
	if orderedMap, ok := v.(*orderedmap.OrderedMap); ok {
		// Standard json encoding library is used.
		// JsonIter lib returns non-compact JSON,
		// if custom OrderedMap.MarshalJSON method is used.
		if v, err := jsonlib.Marshal(orderedMap); err != nil {
			panic(fmt.Errorf(`cannot cast %T to string %w`, v, err))
		} else {
			return string(v)
		}
	}

	// Other types
	if v, err := cast.ToStringE(v); err != nil {
		panic(fmt.Errorf(`cannot cast %T to string %w`, v, err))
	} else {
		return v
	}
}
