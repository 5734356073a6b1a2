package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/maauso/adgen/internal/bootstrap"
	"github.com/maauso/adgen/internal/config"
	"github.com/maauso/adgen/internal/generator"
	"github.com/maauso/adgen/internal/product"
	"github.com/maauso/adgen/internal/storage"
)

// s3KeyPrefix is the object key prefix for published videos.
const s3KeyPrefix = "ads/"

type cli struct {
	cfg     *config.Config
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
	envFile string
}

// dependencies applies an explicit API key over the environment and builds
// the API-backed components.
func (c *cli) dependencies(apiKey string) (*bootstrap.Dependencies, error) {
	if apiKey != "" {
		c.cfg.CaptionsAPIKey = apiKey
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	return bootstrap.NewDependencies(c.cfg, c.logger)
}

func (c *cli) outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	return c.cfg.OutputDir
}

func (c *cli) generate(ctx context.Context, cmd *GenerateCmd) error {
	if cmd.ProductFile == "" {
		cmd.ProductFile = product.DefaultFile
	}
	p, err := product.Load(cmd.ProductFile)
	if err != nil {
		return err
	}
	if cmd.PushS3 && !c.cfg.S3Enabled() {
		return fmt.Errorf("--push-s3: %w: set S3_BUCKET and S3_REGION", storage.ErrS3NotConfigured)
	}

	printInfo(c.stdout, "Product configuration loaded from %s", cmd.ProductFile)
	printInfo(c.stdout, "Script length: %d characters", utf8.RuneCountInString(p.Script))
	printInfo(c.stdout, "Creator: %s", p.CreatorName)
	printInfo(c.stdout, "Media URLs: %d", len(p.MediaURLs))
	printInfo(c.stdout, "Resolution: %s", p.Resolution)

	deps, err := c.dependencies(cmd.APIKey)
	if err != nil {
		return err
	}

	printInfo(c.stdout, "Generating video, this can take several minutes...")
	path, err := deps.Generator.GenerateAdVideo(ctx, p.Request(c.outputDir(cmd.OutputDir), cmd.Filename))
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Creator", p.CreatorName},
		{"Resolution", p.Resolution},
		{"Output", path},
	}
	if info, err := os.Stat(path); err == nil {
		rows = append(rows, []string{"Size", humanize.Bytes(uint64(info.Size()))})
	}

	if cmd.PushS3 {
		url, err := c.publish(ctx, path)
		if err != nil {
			return fmt.Errorf("video saved to %s but not published: %w", path, err)
		}
		rows = append(rows, []string{"S3 URL", url})
	}

	printSuccess(c.stdout, "Video generated successfully")
	return writeTable(c.stdout, []string{"FIELD", "VALUE"}, rows)
}

// publish uploads the video at path under s3KeyPrefix.
func (c *cli) publish(ctx context.Context, path string) (string, error) {
	pub, err := bootstrap.NewPublisher(ctx, c.cfg, c.logger)
	if err != nil {
		return "", err
	}
	return pub.Publish(ctx, s3KeyPrefix+filepath.Base(path), path)
}

func (c *cli) creators(ctx context.Context, cmd *CreatorsCmd) error {
	deps, err := c.dependencies(cmd.APIKey)
	if err != nil {
		return err
	}

	creators, err := deps.Generator.ListCreators(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(creators.Supported))
	for _, name := range creators.Supported {
		rows = append(rows, []string{name, creators.Describe(name)})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{"No creators available", "Please check your API key and try again"})
	}
	if err := writeTable(c.stdout, []string{"CREATOR", "DESCRIPTION"}, rows); err != nil {
		return err
	}

	if len(creators.Supported) > 0 {
		fmt.Fprintf(c.stdout, "\nTotal available creators: %d\n", len(creators.Supported))
	}
	return nil
}

func (c *cli) status(ctx context.Context, cmd *StatusCmd) error {
	deps, err := c.dependencies(cmd.APIKey)
	if err != nil {
		return err
	}

	result, err := deps.Generator.GetGenerationStatus(ctx, cmd.OperationID)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Operation", cmd.OperationID},
		{"State", string(result.State)},
	}
	if result.URL != "" {
		rows = append(rows, []string{"URL", result.URL})
	}
	if result.Error != "" {
		rows = append(rows, []string{"Error", result.Error})
	}
	return writeTable(c.stdout, []string{"FIELD", "VALUE"}, rows)
}

func (c *cli) list(ctx context.Context, cmd *ListCmd) error {
	dir := c.outputDir(cmd.OutputDir)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("output directory does not exist: %s", dir)
	}
	if err != nil {
		return fmt.Errorf("stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	local, err := storage.NewLocal(dir)
	if err != nil {
		return err
	}
	videos, err := local.ListVideos(ctx)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		printInfo(c.stdout, "No video files found in %s", dir)
		return nil
	}

	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, []string{
			v.Name,
			humanize.Bytes(uint64(v.Size)),
			fmt.Sprintf("%s (%s)", v.ModTime.Format("2006-01-02 15:04"), humanize.Time(v.ModTime)),
		})
	}
	fmt.Fprintf(c.stdout, "Generated videos in %s\n\n", dir)
	return writeTable(c.stdout, []string{"FILENAME", "SIZE", "MODIFIED"}, rows)
}

func (c *cli) validate(cmd *ValidateCmd) error {
	// Validation never reaches the client.
	gen := generator.New(nil, c.logger)
	if err := gen.ValidateInputs(cmd.Script, cmd.Creator, cmd.Resolution); err != nil {
		return err
	}

	printSuccess(c.stdout, "Script is valid!")
	printInfo(c.stdout, "Script length: %d characters", utf8.RuneCountInString(cmd.Script))
	printInfo(c.stdout, "Creator: %s", cmd.Creator)
	printInfo(c.stdout, "Resolution: %s", strings.ToLower(cmd.Resolution))
	return nil
}

func (c *cli) setup(ctx context.Context, cmd *SetupCmd) error {
	fmt.Fprintln(c.stdout, "Captions AI Ads Generator Setup")
	fmt.Fprintln(c.stdout)

	_, err := os.Stat(c.envFile)
	switch {
	case err == nil && !cmd.Force:
		printSuccess(c.stdout, "%s file already exists", c.envFile)
	case err == nil || errors.Is(err, fs.ErrNotExist):
		key, err := c.readAPIKey()
		if err != nil {
			return err
		}
		if err := config.WriteDotEnv(c.envFile, key, c.cfg.OutputDir); err != nil {
			return err
		}
		c.cfg.CaptionsAPIKey = key
		printSuccess(c.stdout, "Configuration saved to %s", c.envFile)
	default:
		return fmt.Errorf("stat %s: %w", c.envFile, err)
	}

	if c.cfg.CaptionsAPIKey == "" {
		printWarning(c.stdout, "CAPTIONS_API_KEY is not set, skipping connection test")
		return nil
	}

	fmt.Fprintln(c.stdout)
	printInfo(c.stdout, "Testing API connection...")
	deps, err := c.dependencies("")
	if err == nil {
		var creators []string
		creators, err = listCreatorNames(ctx, deps)
		if err == nil {
			printSuccess(c.stdout, "API connection successful! %d creators available", len(creators))
			return nil
		}
	}

	printError(c.stdout, "API connection failed: %v", err)
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "Troubleshooting:")
	fmt.Fprintln(c.stdout, "1. Make sure your API key is correct")
	fmt.Fprintln(c.stdout, "2. Ensure you have credits in your account")
	fmt.Fprintln(c.stdout, "3. Check your internet connection")
	return nil
}

func listCreatorNames(ctx context.Context, deps *bootstrap.Dependencies) ([]string, error) {
	creators, err := deps.Generator.ListCreators(ctx)
	if err != nil {
		return nil, err
	}
	return creators.Supported, nil
}

// readAPIKey prompts for the key, without echo when stdin is a terminal.
func (c *cli) readAPIKey() (string, error) {
	fmt.Fprint(c.stdout, "Enter your Captions API key: ")

	var key string
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.stdout)
		if err != nil {
			return "", fmt.Errorf("read API key: %w", err)
		}
		key = string(b)
	} else {
		line, err := bufio.NewReader(c.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read API key: %w", err)
		}
		key = line
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", config.ErrAPIKeyRequired
	}
	return key, nil
}
