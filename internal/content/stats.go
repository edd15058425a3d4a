package content

import (
	"context"
	"fmt"
	"net/http"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/model"
)

// Stats fetches the dashboard aggregates. The call is credentialed.
func (r *Repository) Stats(ctx context.Context) (*model.Stats, error) {
	var resp struct {
		Stats model.Stats `json:"stats"`
	}
	err := r.api.Do(ctx, api.Request{
		Method:       http.MethodGet,
		Path:         "/admin/stats",
		Credentialed: true,
		Resource:     "stats",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("content.Stats: %w", err)
	}
	return &resp.Stats, nil
}
