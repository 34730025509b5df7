package main

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// defaultDiskCache bounds the documents kept on disk between sessions.
const defaultDiskCache = 64 << 20

// Config is the merged configuration of flags, environment and config file.
type Config struct {
	Chapter int    `yaml:"chapter" validate:"min=1,max=100"`
	Docs    string `yaml:"docs"    validate:"required"`

	AudioDir  string `yaml:"audio.dir"`
	NoAudio   bool   `yaml:"audio.disabled"`
	CacheSize int64  `yaml:"cache_size" validate:"gte=0"`
	DiskCache int64  `yaml:"disk_cache" validate:"gte=0"`

	Speed          float64       `yaml:"speed"          validate:"gte=0.5,lte=2"`
	Volume         float64       `yaml:"volume"         validate:"gte=0,lte=1"`
	Muted          bool          `yaml:"mute"`
	RepeatChapter  bool          `yaml:"repeat"`
	RepeatVerse    bool          `yaml:"repeat_verse"`
	Transliterated bool          `yaml:"transliterate"`
	AutoAdvance    bool          `yaml:"advance"`
	Autoplay       bool          `yaml:"autoplay"`
	Tick           time.Duration `yaml:"tick"           validate:"gte=50ms"`

	Style string `yaml:"style"`
	Width uint   `yaml:"width"`
	Mouse bool   `yaml:"mouse"`
	Debug bool   `yaml:"debug"`
}

// configFromViper reads the configuration values from Viper.
func configFromViper() Config {
	return Config{
		Chapter:        viper.GetInt("chapter"),
		Docs:           expandPath(viper.GetString("docs")),
		AudioDir:       expandPath(viper.GetString("audio.dir")),
		NoAudio:        viper.GetBool("audio.disabled"),
		CacheSize:      viper.GetInt64("cache_size"),
		DiskCache:      viper.GetInt64("disk_cache"),
		Speed:          viper.GetFloat64("speed"),
		Volume:         viper.GetFloat64("volume"),
		Muted:          viper.GetBool("mute"),
		RepeatChapter:  viper.GetBool("repeat"),
		RepeatVerse:    viper.GetBool("repeat_verse"),
		Transliterated: viper.GetBool("transliterate"),
		AutoAdvance:    viper.GetBool("advance"),
		Autoplay:       viper.GetBool("autoplay"),
		Tick:           viper.GetDuration("tick"),
		Style:          viper.GetString("style"),
		Width:          viper.GetUint("width"),
		Mouse:          viper.GetBool("mouse"),
		Debug:          viper.GetBool("debug"),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Use the config file keys in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("yaml"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Validate checks the configuration and reports every invalid value.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), friendlyMessage(e)))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must not exceed " + e.Param()
	default:
		return "is invalid"
	}
}

// expandPath expands a leading ~ and leaves URLs alone.
func expandPath(p string) string {
	if p == "" || isURL(p) {
		return p
	}
	if exp, err := homedir.Expand(p); err == nil {
		return exp
	}
	return p
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
