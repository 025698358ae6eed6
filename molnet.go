package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"molnet/pkg/data"
	"molnet/pkg/hyper"
	"molnet/pkg/model"
	"molnet/pkg/registry"
	"molnet/pkg/train"

	"github.com/spf13/cobra"
)

func newRegistry() *registry.Registry {
	r := registry.New()
	model.Register(r)
	data.Register(r)
	train.Register(r)
	return r
}

func ValidateCommand() *cobra.Command {

	var configFile string

	var cmd = &cobra.Command{
		Use:   "validate -c hyperFile",
		Short: "Parses and validates a hyperparameter document without running anything",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := hyper.LoadFile(configFile, newRegistry())
			if err != nil {
				return err
			}
			log.Info().
				Str("model", cfg.Model.ClassName).
				Str("dataset", cfg.Data.Dataset.ClassName).
				Msg("document valid")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "name of the hyperparameter document")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func TrainCommand() *cobra.Command {

	var configFile string
	var opts train.Options

	var cmd = &cobra.Command{
		Use:   "train -c hyperFile [--data-dir dir]",
		Short: "Runs the training described by a hyperparameter document and writes result summaries",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := newRegistry()
			cfg, err := hyper.LoadFile(configFile, reg)
			if err != nil {
				return err
			}
			result, err := train.Run(reg, cfg, opts)
			if err != nil {
				return err
			}
			for name, value := range result.Metrics {
				log.Info().Str("metric", name).Float64("value", value).Msg("run result")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "name of the hyperparameter document")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "directory holding the dataset files")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "results", "root directory for result summaries")
	cmd.Flags().Uint64VarP(&opts.Seed, "random-seed", "x", 42, "random seed")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "molnet", PersistentPreRun: setupLogging}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	Main.AddCommand(ValidateCommand())
	Main.AddCommand(TrainCommand())

	if err := Main.Execute(); err != nil {
		panic(err)
	}
}

func setupLogging(cmd *cobra.Command, args []string) {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		panic("Invalid logging level specified")
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		panic("Invalid log format specified")

	}

}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
