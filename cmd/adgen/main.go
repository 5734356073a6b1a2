// Command adgen generates AI advertisement videos with the Captions Ads API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/maauso/adgen/internal/config"
)

const version = "adgen 1.0"

// GenerateCmd generates a video from a product file.
type GenerateCmd struct {
	ProductFile string `arg:"-p,--product-file" help:"path to the product file [default: product.json]"`
	OutputDir   string `arg:"-o,--output-dir" help:"directory for the video [default: $OUTPUT_DIR or ./generated_videos]"`
	APIKey      string `arg:"--api-key" help:"Captions API key [default: $CAPTIONS_API_KEY]"`
	Filename    string `arg:"-f,--filename" help:"output filename [default: derived from creator, resolution and time]"`
	PushS3      bool   `arg:"--push-s3" help:"upload the finished video to the configured S3 bucket"`
}

// CreatorsCmd lists the available AI creators.
type CreatorsCmd struct {
	APIKey string `arg:"--api-key" help:"Captions API key [default: $CAPTIONS_API_KEY]"`
}

// StatusCmd shows the status of a submitted job.
type StatusCmd struct {
	OperationID string `arg:"positional,required" placeholder:"OPERATION-ID" help:"operation ID returned on submission"`
	APIKey      string `arg:"--api-key" help:"Captions API key [default: $CAPTIONS_API_KEY]"`
}

// ListCmd lists generated videos.
type ListCmd struct {
	OutputDir string `arg:"-o,--output-dir" help:"directory to list [default: $OUTPUT_DIR or ./generated_videos]"`
}

// ValidateCmd checks a script, creator and resolution without calling the API.
type ValidateCmd struct {
	Script     string `arg:"-s,--script,required" help:"ad script"`
	Creator    string `arg:"-c,--creator,required" help:"creator name"`
	Resolution string `arg:"-r,--resolution" default:"fhd" help:"fhd, hd or 4k"`
}

// SetupCmd writes the API key to a .env file and tests the connection.
type SetupCmd struct {
	Force bool `arg:"--force" help:"overwrite an existing env file"`
}

// Args holds CLI arguments parsed by go-arg.
type Args struct {
	Generate *GenerateCmd `arg:"subcommand:generate" help:"generate an ad video from a product file"`
	Creators *CreatorsCmd `arg:"subcommand:creators" help:"list available AI creators"`
	Status   *StatusCmd   `arg:"subcommand:status" help:"show the status of a generation job"`
	List     *ListCmd     `arg:"subcommand:list" help:"list generated videos"`
	Validate *ValidateCmd `arg:"subcommand:validate" help:"validate a script and creator"`
	Setup    *SetupCmd    `arg:"subcommand:setup" help:"configure the API key"`

	EnvFile string `arg:"--env-file" default:".env" help:"env file loaded before the environment is read"`
}

// Description provides the help header for go-arg.
func (Args) Description() string {
	return "Generate AI advertisement videos with the Captions Ads API.\n"
}

// Version provides the --version output for go-arg.
func (Args) Version() string {
	return version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses argv, executes the selected command and returns the exit code.
func run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var args Args
	parser, err := arg.NewParser(arg.Config{Program: "adgen"}, &args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	switch err := parser.Parse(argv); {
	case errors.Is(err, arg.ErrHelp):
		_ = parser.WriteHelpForSubcommand(stdout, parser.SubcommandNames()...)
		return 0
	case errors.Is(err, arg.ErrVersion):
		fmt.Fprintln(stdout, version)
		return 0
	case err != nil:
		_ = parser.WriteUsageForSubcommand(stderr, parser.SubcommandNames()...)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	if parser.Subcommand() == nil {
		parser.WriteHelp(stderr)
		return 2
	}

	if err := config.LoadDotEnv(args.EnvFile); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: load config: %v\n", err)
		return 1
	}

	c := &cli{
		cfg:     cfg,
		logger:  cfg.NewLoggerTo(stderr),
		stdin:   stdin,
		stdout:  stdout,
		envFile: args.EnvFile,
	}

	switch {
	case args.Generate != nil:
		err = c.generate(ctx, args.Generate)
	case args.Creators != nil:
		err = c.creators(ctx, args.Creators)
	case args.Status != nil:
		err = c.status(ctx, args.Status)
	case args.List != nil:
		err = c.list(ctx, args.List)
	case args.Validate != nil:
		err = c.validate(args.Validate)
	case args.Setup != nil:
		err = c.setup(ctx, args.Setup)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
