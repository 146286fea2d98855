package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const activityRequestTimeout = 5 * time.Second

// HTTPActivityResolver resolves activities from the face-processing API.
type HTTPActivityResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPActivityResolver creates a resolver against the given API base
// URL. A nil client gets a default with a bounded timeout.
func NewHTTPActivityResolver(baseURL string, client *http.Client) *HTTPActivityResolver {
	if client == nil {
		client = &http.Client{Timeout: activityRequestTimeout}
	}
	return &HTTPActivityResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type activityResponse struct {
	ID       string `json:"id"`
	CameraID string `json:"camera"`
	Person   *struct {
		Profile *struct {
			ID       string   `json:"id"`
			GroupIDs []string `json:"profile_group_ids"`
		} `json:"profile"`
	} `json:"person"`
	FaceBestShotID string `json:"face_best_shot"`
	BodyBestShotID string `json:"body_best_shot"`
}

// GetActivity implements ActivityResolver.
func (r *HTTPActivityResolver) GetActivity(ctx context.Context, id string) (*Activity, error) {
	url := fmt.Sprintf("%s/activities/%s", r.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build activity request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("activity lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("activity %s lookup returned %s", id, resp.Status)
	}

	var body activityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode activity %s: %w", id, err)
	}

	activity := &Activity{
		ID:             body.ID,
		CameraID:       body.CameraID,
		FaceBestShotID: body.FaceBestShotID,
		BodyBestShotID: body.BodyBestShotID,
	}
	if body.Person != nil && body.Person.Profile != nil {
		activity.Person = &ActivityPerson{
			Profile: &Profile{
				ID:       body.Person.Profile.ID,
				GroupIDs: body.Person.Profile.GroupIDs,
			},
		}
	} else if body.Person != nil {
		activity.Person = &ActivityPerson{}
	}
	return activity, nil
}
