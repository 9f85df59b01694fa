// controller/announced.go
package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/federation"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// verifyOriginal checks that the link of an announced resource names an
// existing original whose announced variant is r's type
func verifyOriginal(ctx context.Context, c *Controller, r *model.Resource) error {
	if c.Federation == nil {
		return fmt.Errorf("%w: cannot resolve link %s", echo_errors.ErrTargetNotReachable, r.Link)
	}
	resp := c.Federation.Retarget(ctx, &model.RequestPrimitive{
		Operation:         model.OperationRetrieve,
		From:              c.Evaluator.AdminOriginator(),
		To:                r.Link,
		RequestIdentifier: uuid.NewString(),
		ResultContent:     model.ResultContentAttributes,
	})
	if resp.StatusCode != model.StatusOK || resp.Content == nil {
		return fmt.Errorf("%w: link %s does not resolve (%d %s)", echo_errors.ErrBadRequest, r.Link, resp.StatusCode, resp.Message)
	}
	if anncType, ok := federation.AnncTypeFor(resp.Content.ResourceType); !ok || anncType != r.ResourceType {
		return fmt.Errorf("%w: link %s names a %s, not the original of a %s",
			echo_errors.ErrBadRequest, r.Link, resp.Content.ResourceType, r.ResourceType)
	}
	return nil
}
