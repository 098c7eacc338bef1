package options

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/component-base/version/verflag"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

// Optioner is implemented by the options of a command. AddFlags binds the
// command's own flags, the base flags are added separately.
type Optioner interface {
	AddFlags(*pflag.FlagSet)
	GetBaseOptions() *BaseOptions
}

type BaseOptions struct {
	ConfigFile string               `json:"-"`
	Logging    LoggingConfiguration `json:"logging"`
}

func NewDefaultBaseOptions() BaseOptions {
	return BaseOptions{
		Logging: NewDefaultLoggingConfiguration(),
	}
}

func (bo *BaseOptions) GetBaseOptions() *BaseOptions {
	return bo
}

// AddBaseFlags binds config, logging, help, version and default-config.
func (bo *BaseOptions) AddBaseFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	bo.addConfigFile(fs)
	bo.Logging.BindLoggingFlags(fs)
	addHelpAndUsage(cmd, fs)
	addDefaultConfig(fs)
	verflag.AddFlags(fs)
}

func (bo *BaseOptions) addConfigFile(fs *pflag.FlagSet) {
	fs.StringVarP(&bo.ConfigFile, "config", "c", bo.ConfigFile, "Load the initial configuration from this YAML file. Relative paths start at the working directory. Command-line flags override values from the file.")
}

func (bo *BaseOptions) ValidateAndApply() error {
	return bo.Logging.ValidateAndApply()
}

func PrintHelpAndExitIfRequested(cmd *cobra.Command, fs *pflag.FlagSet) {
	help, err := fs.GetBool("help")
	if err != nil {
		klog.InfoS(`"help" flag is non-bool, programmer error, please correct`)
		os.Exit(1)
	}
	if help {
		_ = cmd.Help()
		os.Exit(0)
	}
}

func addDefaultConfig(fs *pflag.FlagSet) {
	fs.Bool("default-config", false, "Print the default configuration as YAML and exit")
}

// PrintDefaultConfigAndExitIfRequested prints config as YAML when
// --default-config is set.
func PrintDefaultConfigAndExitIfRequested(config interface{}, fs *pflag.FlagSet) {
	defaultConfig, err := fs.GetBool("default-config")
	if err != nil {
		klog.InfoS(`"default-config" flag is non-bool, programmer error, please correct`)
		os.Exit(1)
	}
	if !defaultConfig {
		return
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		klog.ErrorS(err, "Failed to marshal default config to yaml")
		os.Exit(1)
	}
	fmt.Println("# Default configuration, all fields set. Save it and pass it with --config.")
	fmt.Printf("\n%v\n", string(data))
	os.Exit(0)
}

func addHelpAndUsage(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.BoolP("help", "h", false, fmt.Sprintf("help for %s", cmd.Name()))

	// cobra's own usage and help would print its global flags too
	const usageFmt = "Usage:\n  %s\n\nFlags:\n%s"
	cmd.SetUsageFunc(func(cmd *cobra.Command) error {
		_, _ = fmt.Fprintf(cmd.OutOrStderr(), usageFmt, cmd.UseLine(), fs.FlagUsagesWrapped(2))
		return nil
	})

	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n"+usageFmt, cmd.Long, cmd.UseLine(), fs.FlagUsagesWrapped(2))
	})
}

// ParseAndApplyConfigFile loads the config file, if any, into o and then
// parses args again so flags win over the file.
func ParseAndApplyConfigFile(o Optioner, args []string) error {
	if len(o.GetBaseOptions().ConfigFile) == 0 {
		return nil
	}

	if err := parseConfigFile(o); err != nil {
		return err
	}

	fs := pflag.NewFlagSet("", pflag.ContinueOnError)
	// help, version and default-config have already been handled
	fs.ParseErrorsWhitelist.UnknownFlags = true
	o.AddFlags(fs)
	o.GetBaseOptions().addConfigFile(fs)
	o.GetBaseOptions().Logging.BindLoggingFlags(fs)
	return fs.Parse(args)
}

func parseConfigFile(o Optioner) error {
	path, err := filepath.Abs(o.GetBaseOptions().ConfigFile)
	if err != nil {
		klog.ErrorS(err, "Failed to resolve config file", "file", o.GetBaseOptions().ConfigFile)
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		klog.ErrorS(err, "Failed to read config file", "file", path)
		return err
	}

	if err := yaml.UnmarshalStrict(data, o); err != nil {
		klog.ErrorS(err, "Failed to unmarshal config file", "file", path)
		return err
	}
	return nil
}
