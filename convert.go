package fernlog

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/log"
)

// slog.LevelInfo is 0 and log.SeverityInfo is 9. slog spaces its standard
// levels four apart, which lines up with the four fine-grained severities
// per OpenTelemetry severity bucket, so a fixed offset maps every level
// (including custom intermediate ones) monotonically and without loss.
const severityOffset = 9

func convertLevel(l slog.Level) log.Severity {
	return log.Severity(int(l) + severityOffset)
}

func severityText(sev log.Severity) string {
	switch {
	case sev >= log.SeverityFatal:
		return "FATAL"
	case sev >= log.SeverityError:
		return "ERROR"
	case sev >= log.SeverityWarn:
		return "WARN"
	case sev >= log.SeverityInfo:
		return "INFO"
	case sev >= log.SeverityDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

// appendAttr converts a single facade attribute. Empty attrs are skipped,
// empty-keyed groups are inlined and empty groups elided, per the slog
// handler contract. Everything else is forwarded, coerced if necessary.
func appendAttr(kvs []log.KeyValue, a slog.Attr) []log.KeyValue {
	if a.Equal(slog.Attr{}) {
		return kvs
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		g := v.Group()
		if len(g) == 0 {
			return kvs
		}
		if a.Key == "" {
			for _, ga := range g {
				kvs = appendAttr(kvs, ga)
			}
			return kvs
		}
	}
	return append(kvs, log.KeyValue{Key: a.Key, Value: convertValue(v)})
}

func convertValue(v slog.Value) log.Value {
	switch v.Kind() {
	case slog.KindBool:
		return log.BoolValue(v.Bool())
	case slog.KindDuration:
		return log.Int64Value(v.Duration().Nanoseconds())
	case slog.KindFloat64:
		return log.Float64Value(v.Float64())
	case slog.KindInt64:
		return log.Int64Value(v.Int64())
	case slog.KindString:
		return log.StringValue(v.String())
	case slog.KindTime:
		return log.Int64Value(v.Time().UnixNano())
	case slog.KindUint64:
		return convertUint64(v.Uint64())
	case slog.KindGroup:
		g := v.Group()
		kvs := make([]log.KeyValue, 0, len(g))
		for _, a := range g {
			kvs = appendAttr(kvs, a)
		}
		return log.MapValue(kvs...)
	case slog.KindLogValuer:
		return convertValue(v.Resolve())
	default:
		return convertAny(v.Any())
	}
}

func convertUint64(u uint64) log.Value {
	if u > math.MaxInt64 {
		return log.StringValue(strconv.FormatUint(u, 10))
	}
	return log.Int64Value(int64(u))
}

// convertAny is the coercion fallback for dynamically typed values. A value
// that fits no known shape is stringified rather than dropped, so the
// emitted record never loses an attribute over a type mismatch.
func convertAny(v any) log.Value {
	switch v := v.(type) {
	case nil:
		return log.Value{}
	case bool:
		return log.BoolValue(v)
	case string:
		return log.StringValue(v)
	case int:
		return log.Int64Value(int64(v))
	case int8:
		return log.Int64Value(int64(v))
	case int16:
		return log.Int64Value(int64(v))
	case int32:
		return log.Int64Value(int64(v))
	case int64:
		return log.Int64Value(v)
	case uint:
		return convertUint64(uint64(v))
	case uint8:
		return log.Int64Value(int64(v))
	case uint16:
		return log.Int64Value(int64(v))
	case uint32:
		return log.Int64Value(int64(v))
	case uint64:
		return convertUint64(v)
	case uintptr:
		return convertUint64(uint64(v))
	case float32:
		return log.Float64Value(float64(v))
	case float64:
		return log.Float64Value(v)
	case time.Duration:
		return log.Int64Value(v.Nanoseconds())
	case time.Time:
		return log.Int64Value(v.UnixNano())
	case []byte:
		return log.BytesValue(v)
	case error:
		return log.StringValue(v.Error())
	case fmt.Stringer:
		return log.StringValue(v.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		vals := make([]log.Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			vals = append(vals, convertAny(rv.Index(i).Interface()))
		}
		return log.SliceValue(vals...)
	case reflect.Map:
		kvs := make([]log.KeyValue, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, ok := iter.Key().Interface().(string)
			if !ok {
				k = fmt.Sprintf("%v", iter.Key().Interface())
			}
			kvs = append(kvs, log.KeyValue{Key: k, Value: convertAny(iter.Value().Interface())})
		}
		return log.MapValue(kvs...)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return log.Value{}
		}
		return convertAny(rv.Elem().Interface())
	}

	return log.StringValue(fmt.Sprintf("%+v", v))
}

// convertKeyValues pairs a flat logr-style key/value list into attributes.
// Non-string keys are stringified and an odd trailing key keeps an empty
// value; malformed input degrades, it is never discarded.
func convertKeyValues(kvs []any) []log.KeyValue {
	if len(kvs) == 0 {
		return nil
	}
	out := make([]log.KeyValue, 0, (len(kvs)+1)/2)
	for i := 0; i < len(kvs); i += 2 {
		k, ok := kvs[i].(string)
		if !ok {
			k = fmt.Sprintf("%v", kvs[i])
		}
		var v log.Value
		if i+1 < len(kvs) {
			v = convertAny(kvs[i+1])
		}
		out = append(out, log.KeyValue{Key: k, Value: v})
	}
	return out
}
