package image

import (
	"encoding/json"
	"math/rand"

	"github.com/samber/lo"
)

// DefaultNegativePrompt is applied to new params unless overridden.
const DefaultNegativePrompt = "worst quality, low quality, normal quality, blurry, distorted, bad anatomy, bad hands, error, missing fingers, cropped"

// SeedAuto tells the client to pick a random seed at request time.
const SeedAuto int64 = -1

// Params are the generation parameters for one txt2img call. Nil fields are
// omitted from the payload so the Draw Things app keeps its current setting
// for them.
type Params struct {
	Prompt         string
	Model          *string
	NegativePrompt *string
	Width          *int
	Height         *int
	Steps          *int
	GuidanceScale  *float64
	Seed           *int64
	Sampler        *string
	ClipSkip       *int
	Shift          *float64
	BatchCount     *int
	BatchSize      *int
	Loras          []Lora
}

// NewParams returns Params for prompt with the default negative prompt and an
// auto-generated seed.
func NewParams(prompt string) Params {
	return Params{
		Prompt:         prompt,
		NegativePrompt: lo.ToPtr(DefaultNegativePrompt),
		Seed:           lo.ToPtr(SeedAuto),
	}
}

// Payload maps Params to the wire format of the txt2img endpoint. A SeedAuto
// seed is replaced with a random int31, so callers that need the effective
// seed should build the payload once and reuse it.
func (p Params) Payload() map[string]any {
	payload := map[string]any{"prompt": p.Prompt}

	if p.Model != nil {
		payload["model"] = *p.Model
	}
	if p.NegativePrompt != nil {
		payload["negative_prompt"] = *p.NegativePrompt
	}
	if p.Width != nil {
		payload["width"] = *p.Width
	}
	if p.Height != nil {
		payload["height"] = *p.Height
	}
	if p.Steps != nil {
		payload["steps"] = *p.Steps
	}
	if p.GuidanceScale != nil {
		payload["guidance_scale"] = *p.GuidanceScale
	}
	if p.Seed != nil {
		payload["seed"] = lo.Ternary(*p.Seed == SeedAuto, int64(rand.Int31()), *p.Seed)
	}
	if p.Sampler != nil {
		payload["sampler"] = *p.Sampler
	}
	if p.ClipSkip != nil {
		payload["clip_skip"] = *p.ClipSkip
	}
	if p.Shift != nil {
		payload["shift"] = *p.Shift
	}
	if p.BatchCount != nil {
		payload["batch_count"] = *p.BatchCount
	}
	if p.BatchSize != nil {
		payload["batch_size"] = *p.BatchSize
	}
	if p.Loras != nil {
		payload["loras"] = p.Loras
	}

	return payload
}

func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Payload())
}

// Lora references a LoRA file applied during generation.
type Lora struct {
	File    string
	Weight  float64
	Enabled bool
}

func NewLora(file string) Lora {
	return Lora{File: file, Weight: 1.0, Enabled: true}
}

// MarshalJSON writes the enabled key only when false; the app treats a
// missing key as enabled.
func (l Lora) MarshalJSON() ([]byte, error) {
	m := map[string]any{"file": l.File, "weight": l.Weight}
	if !l.Enabled {
		m["enabled"] = false
	}
	return json.Marshal(m)
}
