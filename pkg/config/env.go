package config

import (
	"reflect"
	"regexp"

	"github.com/go-viper/mapstructure/v2"
)

// envPlaceholder 匹配 $(NAME) 形式的环境变量占位符
var envPlaceholder = regexp.MustCompile(`\$\(([^)]+)\)`)

// LookupFunc 与 os.LookupEnv 签名一致，便于测试注入
type LookupFunc func(key string) (string, bool)

// ExpandEnv 替换字符串中所有 $(NAME)；未设置的变量保留原样
func ExpandEnv(s string, lookup LookupFunc) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		name := envPlaceholder.FindStringSubmatch(match)[1]
		if val, ok := lookup(name); ok {
			return val
		}
		return match
	})
}

// ExpandEnvHookFunc 解码时对所有字符串标量做环境变量替换
func ExpandEnvHookFunc(lookup LookupFunc) mapstructure.DecodeHookFuncKind {
	return func(f reflect.Kind, t reflect.Kind, data any) (any, error) {
		if f != reflect.String {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		return ExpandEnv(s, lookup), nil
	}
}
