// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cmd implements the partrescue commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-partrescue/disk"
	"github.com/siderolabs/go-partrescue/rescue"
)

var rootCmdFlags struct {
	debug       bool
	output      string
	lockTimeout time.Duration
	sysfsRoot   string
	loop        bool
}

var logger = zap.NewNop()

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "partrescue",
	Short:         "Recover partitions missing from the partition table",
	Long:          ``,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch rootCmdFlags.output {
		case outputTable, outputYAML:
		default:
			return fmt.Errorf("unknown output format %q", rootCmdFlags.output)
		}

		var err error

		logger, err = newLogger(rootCmdFlags.debug)

		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
	}

	logger.Sync() //nolint:errcheck

	return err
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return config.Build()
}

// rescueOptions maps the global flags onto the rescue options.
func rescueOptions() []rescue.Option {
	return []rescue.Option{
		rescue.WithLogger(logger),
		rescue.WithLockTimeout(rootCmdFlags.lockTimeout),
	}
}

// diskOptions maps the global flags onto the disk listing options.
func diskOptions() []disk.Option {
	opts := []disk.Option{disk.WithSysfsRoot(rootCmdFlags.sysfsRoot)}

	if rootCmdFlags.loop {
		opts = append(opts, disk.WithLoopDevices())
	}

	return opts
}

func addCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootCmdFlags.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&rootCmdFlags.output, "output", "o", outputTable, "output format (table, yaml)")
	rootCmd.PersistentFlags().DurationVar(&rootCmdFlags.lockTimeout, "lock-timeout", 10*time.Second, "time to wait for the device lock")
	rootCmd.PersistentFlags().StringVar(&rootCmdFlags.sysfsRoot, "sysfs", "/sys", "sysfs mount point")
	rootCmd.PersistentFlags().BoolVar(&rootCmdFlags.loop, "loop", false, "list loop devices as disks")
	rootCmd.PersistentFlags().MarkHidden("sysfs") //nolint:errcheck
}
