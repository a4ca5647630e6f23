package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// SettingsFileName is the tool settings file looked up next to the project file
	SettingsFileName = "zuz"
	// EnvPrefix prefixes every environment override, e.g. ZUZ_CONCURRENCY
	EnvPrefix = "ZUZ"

	CompilerEsbuild = "esbuild"
	CompilerExec    = "exec"

	DefaultCompileCommand = "npx ngc -p {{.Project}}"
)

// Settings controls how a build runs, independent of what is built
type Settings struct {
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	Compiler       string        `mapstructure:"compiler" yaml:"compiler"`
	CompileCommand string        `mapstructure:"compileCommand" yaml:"compileCommand"`
	LogLevel       string        `mapstructure:"logLevel" yaml:"logLevel"`
	LogFile        string        `mapstructure:"logFile" yaml:"logFile,omitempty"`
	Notify         bool          `mapstructure:"notify" yaml:"notify"`
	Clean          bool          `mapstructure:"clean" yaml:"clean"`
	KeepTemp       bool          `mapstructure:"keepTemp" yaml:"keepTemp"`
	SettlingDelay  time.Duration `mapstructure:"settlingDelay" yaml:"settlingDelay"`
}

// SetDefaults registers the default value of every setting on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("concurrency", runtime.NumCPU())
	v.SetDefault("compiler", CompilerEsbuild)
	v.SetDefault("compileCommand", DefaultCompileCommand)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFile", "")
	v.SetDefault("notify", false)
	v.SetDefault("clean", true)
	v.SetDefault("keepTemp", false)
	v.SetDefault("settlingDelay", 300*time.Millisecond)
}

// NewViper creates a viper instance with defaults, env binding and the settings
// file search path rooted at dir
func NewViper(dir string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName(SettingsFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// LoadSettings decodes and validates the settings held by v
func LoadSettings(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, &Error{File: SettingsFileName + ".yaml", Msg: fmt.Sprintf("failed to decode settings: %v", err)}
	}

	switch s.Compiler {
	case CompilerEsbuild, CompilerExec:
	default:
		return nil, &Error{File: SettingsFileName + ".yaml", Field: "compiler", Msg: fmt.Sprintf("unknown compiler %q", s.Compiler)}
	}
	if s.Compiler == CompilerExec && s.CompileCommand == "" {
		return nil, &Error{File: SettingsFileName + ".yaml", Field: "compileCommand", Msg: "required by the exec compiler"}
	}
	if s.SettlingDelay < 0 {
		s.SettlingDelay = 0
	}
	return &s, nil
}

// YAML renders the effective settings in settings-file form
func (s *Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
