package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngBytes carries a real PNG signature so content sniffing sees an image.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), []byte("not a real frame")...)

func newTestServer(t *testing.T, options map[string]any, txt2img http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sdapi/v1/options", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(options))
	})
	if txt2img != nil {
		mux.HandleFunc("/sdapi/v1/txt2img", txt2img)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDrawThingsGeneratorOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("returns decoded options", func(t *testing.T) {
		server := newTestServer(t, map[string]any{"model": "flux_1_schnell_q5p.ckpt", "steps": float64(20)}, nil)
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		options, err := generator.Options(ctx)
		require.NoError(t, err)
		assert.Equal(t, "flux_1_schnell_q5p.ckpt", options["model"])
		assert.Equal(t, float64(20), options["steps"])
	})

	t.Run("malformed body is a decode error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		t.Cleanup(server.Close)
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		options, err := generator.Options(ctx)
		require.ErrorIs(t, err, ErrDecode)
		assert.Nil(t, options)
	})

	t.Run("non-200 status is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		_, err := generator.Options(ctx)
		require.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unreachable endpoint is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.NewServeMux())
		url := server.URL
		server.Close()
		generator := &DrawThingsGenerator{Client: http.DefaultClient, BaseURL: url}

		_, err := generator.Options(ctx)
		require.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestDrawThingsGeneratorTxt2Img(t *testing.T) {
	ctx := context.Background()

	t.Run("one image yields one result", func(t *testing.T) {
		var requested map[string]any
		server := newTestServer(t, map[string]any{"model": "flux_1_schnell_q5p.ckpt", "steps": float64(20)},
			func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&requested))
				require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
					"images": []string{base64.StdEncoding.EncodeToString(pngBytes)},
				}))
			})
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		params := NewParams("a cat sitting on a table")
		params.Seed = lo.ToPtr(int64(42))
		params.Steps = lo.ToPtr(30)

		results, err := generator.Txt2Img(ctx, params)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, pngBytes, results[0].Image)

		// config echo is server options overlaid with the request
		assert.Equal(t, "flux_1_schnell_q5p.ckpt", results[0].Config["model"])
		assert.Equal(t, "a cat sitting on a table", results[0].Config["prompt"])
		assert.Equal(t, 30, results[0].Config["steps"])
		assert.Equal(t, int64(42), results[0].Config["seed"])

		assert.Equal(t, "a cat sitting on a table", requested["prompt"])
		assert.Equal(t, float64(42), requested["seed"])
	})

	t.Run("multiple images share the config", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString(pngBytes)
		server := newTestServer(t, map[string]any{}, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"images": []string{encoded, encoded, encoded},
			}))
		})
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		results, err := generator.Txt2Img(ctx, NewParams("test"))
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, result := range results {
			assert.Equal(t, pngBytes, result.Image)
			assert.Equal(t, "test", result.Config["prompt"])
		}
	})

	t.Run("empty images is an error", func(t *testing.T) {
		server := newTestServer(t, map[string]any{}, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"images": []string{}}))
		})
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		_, err := generator.Txt2Img(ctx, NewParams("test"))
		require.ErrorIs(t, err, ErrDecode)
	})

	t.Run("bad base64 is a decode error", func(t *testing.T) {
		server := newTestServer(t, map[string]any{}, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"images": []string{"!!!not base64!!!"}}))
		})
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		_, err := generator.Txt2Img(ctx, NewParams("test"))
		require.ErrorIs(t, err, ErrDecode)
	})

	t.Run("non-image bytes are a decode error", func(t *testing.T) {
		server := newTestServer(t, map[string]any{}, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"images": []string{base64.StdEncoding.EncodeToString([]byte("plain text, no image here"))},
			}))
		})
		generator := &DrawThingsGenerator{Client: server.Client(), BaseURL: server.URL}

		_, err := generator.Txt2Img(ctx, NewParams("test"))
		require.ErrorIs(t, err, ErrDecode)
	})
}
