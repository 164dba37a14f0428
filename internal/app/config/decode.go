package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var durationType = reflect.TypeOf(time.Duration(0))

// decodeHook lets durations be written as Go duration strings ("1.5s") or as
// bare numbers of seconds, the form used by the original environment files.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDuration,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func secondsToDuration(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		s := strings.TrimSpace(data.(string))
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return data, nil
		}
		return time.Duration(secs * float64(time.Second)), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(reflect.ValueOf(data).Uint()) * time.Second, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
	}
	return data, nil
}
