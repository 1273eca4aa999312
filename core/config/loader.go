package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"otcextensions/core/sdkutils"
)

// LoaderConfig configures how configuration is loaded
type LoaderConfig struct {
	ConfigFile      string
	EnvironmentFile string
	// EnvPrefix, when set, is tried before the plain variable name:
	// with prefix "FUNC", FUNC_OS_CLOUD overrides OS_CLOUD.
	EnvPrefix string
}

// ConfigLoader fills a struct from tag defaults, a YAML file, an env file
// and the environment, in that order of increasing precedence.
type ConfigLoader struct {
	config LoaderConfig
}

func NewConfigLoader(cfg LoaderConfig) *ConfigLoader {
	return &ConfigLoader{config: cfg}
}

// Load loads configuration into the provided struct pointer
func (l *ConfigLoader) Load(target interface{}) error {
	if err := l.setDefaults(reflect.ValueOf(target)); err != nil {
		return fmt.Errorf("failed to set defaults: %w", err)
	}

	if l.config.ConfigFile != "" {
		if err := l.loadFromYAML(target, l.config.ConfigFile); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if l.config.EnvironmentFile != "" {
		if err := l.loadEnvironmentFile(l.config.EnvironmentFile); err != nil {
			return fmt.Errorf("failed to load environment file: %w", err)
		}
	}

	if err := l.loadFromEnv(reflect.ValueOf(target)); err != nil {
		return fmt.Errorf("failed to load from environment: %w", err)
	}

	return nil
}

func (l *ConfigLoader) setDefaults(v reflect.Value) error {
	return walkFields(v, func(field reflect.Value, sf reflect.StructField) error {
		def := sf.Tag.Get("default")
		if def == "" {
			return nil
		}
		if err := setFieldValue(field, def); err != nil {
			return fmt.Errorf("failed to set default for field %s: %w", sf.Name, err)
		}
		return nil
	})
}

// loadFromYAML reads filename into target. A missing file is not an error.
func (l *ConfigLoader) loadFromYAML(target interface{}, filename string) error {
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// loadEnvironmentFile exports KEY=VALUE lines that are not already set.
func (l *ConfigLoader) loadEnvironmentFile(filename string) error {
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read environment file %s: %w", filename, err)
	}

	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid line %d in environment file %s: %s", lineNum+1, filename, line)
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

func (l *ConfigLoader) loadFromEnv(v reflect.Value) error {
	return walkFields(v, func(field reflect.Value, sf reflect.StructField) error {
		envName := sf.Tag.Get("env")
		if envName == "" {
			return nil
		}

		names := []string{envName}
		if l.config.EnvPrefix != "" {
			names = append([]string{strings.ToUpper(l.config.EnvPrefix) + "_" + envName}, names...)
		}

		for _, name := range names {
			value, exists := os.LookupEnv(name)
			if !exists {
				continue
			}
			if err := setFieldValue(field, value); err != nil {
				return fmt.Errorf("failed to set field %s from env %s: %w", sf.Name, name, err)
			}
			return nil
		}
		return nil
	})
}

// walkFields calls fn for every settable leaf field, descending into
// nested and embedded structs.
func walkFields(v reflect.Value, fn func(reflect.Value, reflect.StructField) error) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			if !v.CanSet() {
				return nil
			}
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		sf := t.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct || (field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct) {
			if err := walkFields(field, fn); err != nil {
				return err
			}
			continue
		}

		if err := fn(field, sf); err != nil {
			return err
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := sdkutils.Str2Bool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration value: %s", value)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
		field.SetInt(n)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported field type: %s", field.Type())
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// FindConfigFile returns the first existing <name>.yaml in the working
// directory, ./config, $HOME/.<name> or /etc/<name>; empty if none exists.
func FindConfigFile(name string) string {
	fileName := name + ".yaml"

	searchPaths := []string{
		fileName,
		filepath.Join("config", fileName),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, "."+name, fileName))
	}
	searchPaths = append(searchPaths, filepath.Join("/etc", name, fileName))

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
