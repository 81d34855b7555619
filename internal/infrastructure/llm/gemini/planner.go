package gemini

import "context"

// NextStep forwards a planning prompt and returns the model's raw reply.
// The pipeline validates the reply and falls back to a fixed order, so no
// parsing happens here.
func (c *Client) NextStep(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt)
}
