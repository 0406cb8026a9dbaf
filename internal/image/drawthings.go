package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmorgan81/drawthings/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

var (
	// ErrUnavailable wraps transport failures and non-200 replies from the
	// Draw Things app.
	ErrUnavailable = errors.New("draw things unavailable")
	// ErrDecode wraps anything unparseable in an otherwise successful reply.
	ErrDecode = errors.New("malformed draw things response")
)

type DrawThingsGenerator struct {
	Client  *http.Client
	BaseURL string
}

func NewDrawThingsGenerator(i *do.Injector) (Generator, error) {
	return &DrawThingsGenerator{
		Client:  do.MustInvoke[*http.Client](i),
		BaseURL: do.MustInvokeNamed[string](i, "base_url"),
	}, nil
}

func (g *DrawThingsGenerator) Options(ctx context.Context) (map[string]any, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("drawthings")
	log.Info("fetching options", "url", g.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/sdapi/v1/options", nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}

	var options map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&options); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return options, nil
}

func (g *DrawThingsGenerator) Txt2Img(ctx context.Context, params Params) ([]Result, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("drawthings")
	log.Info("generating image", "url", g.BaseURL, "prompt", params.Prompt)

	// Build the payload once so the seed sent is the seed echoed back.
	payload := params.Payload()
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	// The echoed config is the server options overlaid with the request.
	options, err := g.Options(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}

	var decoded struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(decoded.Images) == 0 {
		return nil, fmt.Errorf("%w: no images in response", ErrDecode)
	}

	log.Info("received images", "count", len(decoded.Images))

	config := lo.Assign(options, payload)
	results := make([]Result, 0, len(decoded.Images))
	for _, encoded := range decoded.Images {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if mime := http.DetectContentType(data); !strings.HasPrefix(mime, "image/") {
			return nil, fmt.Errorf("%w: decoded %s instead of an image", ErrDecode, mime)
		}
		results = append(results, Result{Image: data, Config: config})
	}
	return results, nil
}
