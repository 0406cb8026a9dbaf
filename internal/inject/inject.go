package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmorgan81/drawthings/internal/config"
	"github.com/dmorgan81/drawthings/internal/handler"
	"github.com/dmorgan81/drawthings/internal/image"
	"github.com/dmorgan81/drawthings/internal/log"
	"github.com/dmorgan81/drawthings/internal/page"
	"github.com/dmorgan81/drawthings/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})

	do.Provide[*http.Client](injector, func(i *do.Injector) (*http.Client, error) {
		return &http.Client{Timeout: cfg.Timeout}, nil
	})
	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})

	do.Provide[image.Generator](injector, image.NewDrawThingsGenerator)
	do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
		return &store.FileUploader{}, nil
	})
	do.ProvideNamed[store.Uploader](injector, "mirror", store.NewS3Uploader)
	do.Provide[*page.Templator](injector, page.NewTemplator)

	do.ProvideNamedValue[string](injector, "base_url", cfg.BaseURL())
	do.ProvideNamedValue[string](injector, "bucket", cfg.Bucket)

	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
