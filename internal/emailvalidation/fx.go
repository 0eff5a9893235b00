package emailvalidation

import "go.uber.org/fx"

var Module = fx.Module("emailvalidation",
	fx.Provide(
		NewClient,
		func(c *Client) Validator { return c },
	),
)
