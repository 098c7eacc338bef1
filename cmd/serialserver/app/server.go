package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/component-base/version"
	"k8s.io/component-base/version/verflag"
	"k8s.io/klog/v2"
	"serialserver/cmd/serialserver/options"
	"serialserver/pkg/generic"
	baseoptions "serialserver/pkg/generic/options"
	"serialserver/pkg/web"
)

const (
	ComponentSerialServer = "serial-server"
)

func NewServerCmd() *cobra.Command {
	cleanFlagSet := pflag.NewFlagSet(ComponentSerialServer, pflag.ContinueOnError)
	o := options.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:                ComponentSerialServer,
		Long:               `The serial server registers RS-485 devices and talks Modbus RTU to them over local serial ports.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// cobra's flag parsing is disabled
			if err := cleanFlagSet.Parse(args); err != nil {
				klog.ErrorS(err, "Failed to parse flag")
				_ = cmd.Usage()
				os.Exit(1)
			}

			if cmds := cleanFlagSet.Args(); len(cmds) > 0 {
				klog.ErrorS(nil, "Unknown command", "command", cmds[0])
				_ = cmd.Usage()
				os.Exit(1)
			}

			baseoptions.PrintHelpAndExitIfRequested(cmd, cleanFlagSet)
			verflag.PrintAndExitIfRequested()
			baseoptions.PrintDefaultConfigAndExitIfRequested(options.NewDefaultOptions(), cleanFlagSet)

			if err := baseoptions.ParseAndApplyConfigFile(o, args); err != nil {
				return err
			}

			if errs := options.Validate(o); len(errs) != 0 {
				return utilerrors.NewAggregate(errs)
			}

			klog.InfoS("Starting", "component", ComponentSerialServer, "version", version.Get())
			return run(o)
		},
	}

	o.AddFlags(cleanFlagSet)
	o.AddBaseFlags(cmd, cleanFlagSet)

	return cmd
}

func run(o *options.Options) error {
	c, err := o.Config()
	if err != nil {
		return err
	}

	server, err := web.NewServer(generic.Default(web.AllowMethods...), o.Port, c)
	if err != nil {
		return err
	}

	exit, err := server.Serve()
	if err != nil {
		return err
	}
	klog.V(1).InfoS("Server started", "port", o.Port, "tls", len(o.CertFile) != 0)

	// SIGKILL cannot be caught
	exitCh := make(chan os.Signal, 1)
	signal.Notify(exitCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exitCh
	klog.V(1).InfoS("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), o.Wait.Duration)
	defer cancel()
	exit(ctx)
	return nil
}
