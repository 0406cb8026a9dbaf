package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmorgan81/drawthings/internal/image"
	"github.com/dmorgan81/drawthings/internal/log"
	"github.com/dmorgan81/drawthings/internal/path"
	"github.com/dmorgan81/drawthings/internal/store"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type Input struct {
	Prompt         string
	Model          string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
	Seed           int64
	Sampler        string
	ClipSkip       int
	Shift          float64
	BatchCount     int
	BatchSize      int
	Loras          []image.Lora
	OutputDir      string
}

// toParams maps the flat CLI input onto generation params. Zero values mean
// "not set" and are left for the app to fill from its current settings; seed
// and negative prompt always travel because they carry their own defaults.
func (i Input) toParams() image.Params {
	params := image.NewParams(i.Prompt)
	params.NegativePrompt = lo.ToPtr(i.NegativePrompt)
	params.Seed = lo.ToPtr(i.Seed)
	if i.Model != "" {
		params.Model = lo.ToPtr(i.Model)
	}
	if i.Width != 0 {
		params.Width = lo.ToPtr(i.Width)
	}
	if i.Height != 0 {
		params.Height = lo.ToPtr(i.Height)
	}
	if i.Steps != 0 {
		params.Steps = lo.ToPtr(i.Steps)
	}
	if i.GuidanceScale != 0 {
		params.GuidanceScale = lo.ToPtr(i.GuidanceScale)
	}
	if i.Sampler != "" {
		params.Sampler = lo.ToPtr(i.Sampler)
	}
	if i.ClipSkip != 0 {
		params.ClipSkip = lo.ToPtr(i.ClipSkip)
	}
	if i.Shift != 0 {
		params.Shift = lo.ToPtr(i.Shift)
	}
	if i.BatchCount != 0 {
		params.BatchCount = lo.ToPtr(i.BatchCount)
	}
	if i.BatchSize != 0 {
		params.BatchSize = lo.ToPtr(i.BatchSize)
	}
	params.Loras = i.Loras
	return params
}

type Output struct {
	Paths []string
	Model string
	Seed  string
}

type Handler struct {
	generator image.Generator
	uploader  store.Uploader
	mirror    store.Uploader
}

func NewHandler(i *do.Injector) (*Handler, error) {
	h := &Handler{
		generator: do.MustInvoke[image.Generator](i),
		uploader:  do.MustInvoke[store.Uploader](i),
	}
	if bucket := do.MustInvokeNamed[string](i, "bucket"); bucket != "" {
		h.mirror = do.MustInvokeNamed[store.Uploader](i, "mirror")
	}
	return h, nil
}

// Handle runs one generation: call the app, write an image and a config file
// per returned image, and mirror the artifacts when a bucket is configured.
func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler").With("prompt", input.Prompt)
	log.Info("handling generation")

	results, err := h.generator.Txt2Img(ctx, input.toParams())
	if err != nil {
		return Output{}, err
	}

	paths, err := path.New(input.OutputDir)
	if err != nil {
		return Output{}, err
	}

	output := Output{}
	if v, ok := results[0].Config["model"]; ok {
		output.Model = fmt.Sprint(v)
	}
	if v, ok := results[0].Config["seed"]; ok {
		output.Seed = fmt.Sprint(v)
	}

	var uploads []store.UploadParams
	for n, result := range results {
		config, err := json.MarshalIndent(result.Config, "", "  ")
		if err != nil {
			return Output{}, err
		}
		config = append(config, '\n')

		metadata := map[string]string{
			"prompt": input.Prompt,
			"model":  output.Model,
			"seed":   output.Seed,
		}

		imagePath := paths.ImagePath(n + 1)
		configPath := paths.ConfigPath(n + 1)
		uploads = append(uploads,
			store.UploadParams{
				Name:        imagePath,
				Data:        result.Image,
				ContentType: "image/png",
				Metadata:    metadata,
			},
			store.UploadParams{
				Name:        configPath,
				Data:        config,
				ContentType: "application/json",
				Metadata:    metadata,
			},
		)
		output.Paths = append(output.Paths, imagePath, configPath)
	}

	for _, u := range uploads {
		if err := h.uploader.Upload(ctx, u); err != nil {
			return Output{}, err
		}
	}

	if h.mirror != nil {
		group, ctx := errgroup.WithContext(ctx)
		for _, u := range uploads {
			u := u
			group.Go(func() error {
				return h.mirror.Upload(ctx, u)
			})
		}
		if err := group.Wait(); err != nil {
			return Output{}, err
		}
	}

	return output, nil
}
