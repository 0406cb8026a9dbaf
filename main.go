package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmorgan81/drawthings/internal/config"
	"github.com/dmorgan81/drawthings/internal/handler"
	"github.com/dmorgan81/drawthings/internal/image"
	"github.com/dmorgan81/drawthings/internal/inject"
	"github.com/dmorgan81/drawthings/internal/log"
	"github.com/dmorgan81/drawthings/internal/page"
	"github.com/samber/do"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(os.Stderr)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	switch args[0] {
	case "config":
		return runConfig(cfg, args[1:])
	case "txt2img":
		return runTxt2Img(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage(os.Stderr)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: drawthings <command> [flags]

Commands:
  config [key]              print the Draw Things configuration, or one key of it
  txt2img [flags] <prompt>  generate images from a text prompt

Run 'drawthings <command> -h' for command flags.`)
}

func runConfig(cfg *config.Config, args []string) int {
	flags := flag.NewFlagSet("config", flag.ContinueOnError)
	host := flags.String("host", cfg.Host, "Draw Things host")
	port := flags.Int("port", cfg.Port, "Draw Things port")
	timeout := flags.Duration("timeout", 3*time.Second, "options request timeout")
	debug := flags.Bool("debug", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	cfg.Host, cfg.Port, cfg.Timeout = *host, *port, *timeout

	ctx := log.NewContext(context.Background(), log.New(os.Stderr, *debug))
	injector := inject.Setup(ctx, cfg)
	defer func() { _ = injector.Shutdown() }()

	options, err := do.MustInvoke[image.Generator](injector).Options(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	if key := flags.Arg(0); key != "" {
		value, ok := options[key]
		if !ok {
			fmt.Fprintf(os.Stderr, "Key %q not found in configuration\n", key)
			return 1
		}
		return printJSON(value)
	}
	return printJSON(options)
}

func runTxt2Img(cfg *config.Config, args []string) int {
	flags := flag.NewFlagSet("txt2img", flag.ContinueOnError)
	host := flags.String("host", cfg.Host, "Draw Things host")
	port := flags.Int("port", cfg.Port, "Draw Things port")
	timeout := flags.Duration("timeout", cfg.Timeout, "generation timeout")
	output := flags.String("output", cfg.OutputDir, "output directory, a leading ~ expands to the home dir")
	upload := flags.String("upload", cfg.Bucket, "S3 bucket to mirror output to (empty disables)")
	debug := flags.Bool("debug", false, "enable debug logging")

	model := flags.String("model", "", "model to generate with (empty keeps the app setting)")
	negative := flags.String("negative", image.DefaultNegativePrompt, "negative prompt")
	width := flags.Int("width", 0, "image width (0 keeps the app setting)")
	height := flags.Int("height", 0, "image height (0 keeps the app setting)")
	steps := flags.Int("steps", 0, "sampling steps (0 keeps the app setting)")
	guidance := flags.Float64("guidance", 0, "guidance scale (0 keeps the app setting)")
	seed := flags.Int64("seed", image.SeedAuto, "seed, -1 picks a random one")
	sampler := flags.String("sampler", "", `sampler, e.g. "DPM++ 2M Karras" (empty keeps the app setting)`)
	clipSkip := flags.Int("clip-skip", 0, "clip skip (0 keeps the app setting)")
	shift := flags.Float64("shift", 0, "sampler shift (0 keeps the app setting)")
	batchCount := flags.Int("batch-count", 0, "number of iterations (0 keeps the app setting)")
	batchSize := flags.Int("batch-size", 0, "images per iteration (0 keeps the app setting)")
	var loras loraFlags
	flags.Var(&loras, "lora", "LoRA as file[:weight], repeatable")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	prompt := strings.TrimSpace(strings.Join(flags.Args(), " "))
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "txt2img requires a prompt")
		return 1
	}

	cfg.Host, cfg.Port, cfg.Timeout = *host, *port, *timeout
	cfg.OutputDir, cfg.Bucket = *output, *upload

	ctx := log.NewContext(context.Background(), log.New(os.Stderr, *debug))
	injector := inject.Setup(ctx, cfg)
	defer func() { _ = injector.Shutdown() }()

	out, err := do.MustInvoke[*handler.Handler](injector).Handle(ctx, handler.Input{
		Prompt:         prompt,
		Model:          *model,
		NegativePrompt: *negative,
		Width:          *width,
		Height:         *height,
		Steps:          *steps,
		GuidanceScale:  *guidance,
		Seed:           *seed,
		Sampler:        *sampler,
		ClipSkip:       *clipSkip,
		Shift:          *shift,
		BatchCount:     *batchCount,
		BatchSize:      *batchSize,
		Loras:          loras,
		OutputDir:      cfg.OutputDir,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	summary, err := do.MustInvoke[*page.Templator](injector).Template(ctx, page.Params{
		Prompt: prompt,
		Model:  out.Model,
		Seed:   out.Seed,
		Paths:  out.Paths,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	fmt.Print(string(summary))
	return 0
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

// loraFlags collects repeated -lora flags of the form file or file:weight.
type loraFlags []image.Lora

func (l *loraFlags) String() string {
	files := make([]string, 0, len(*l))
	for _, lora := range *l {
		files = append(files, lora.File)
	}
	return strings.Join(files, ",")
}

func (l *loraFlags) Set(v string) error {
	lora := image.NewLora(v)
	if file, weight, ok := strings.Cut(v, ":"); ok {
		w, err := strconv.ParseFloat(weight, 64)
		if err != nil {
			return fmt.Errorf("invalid lora weight %q: %w", weight, err)
		}
		lora = image.NewLora(file)
		lora.Weight = w
	}
	*l = append(*l, lora)
	return nil
}
