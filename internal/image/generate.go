package image

import "context"

// Result pairs one decoded image with the configuration the app used to
// generate it: the server options overlaid with the request payload.
type Result struct {
	Image  []byte
	Config map[string]any
}

// Generator is one synchronous request/response cycle against the app.
// Txt2Img returns at least one result or an error.
type Generator interface {
	Options(context.Context) (map[string]any, error)
	Txt2Img(context.Context, Params) ([]Result, error)
}
