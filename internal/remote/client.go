package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var debugRateLimit = os.Getenv("RDMFS_DEBUG_RATE") != ""

const defaultBaseURL = "https://api.osf.io/v2/"

// Client is the HTTP adapter RDMFS speaks to the remote RDM service
// through. It authenticates with HTTP basic auth (spec.md §6) and
// rate-limits outgoing requests the way jra3-linear-fuse's GraphQL
// client rate-limits calls to Linear, rehomed to a REST budget.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client for baseURL, authenticating as username
// with the basic-auth password sourced from config.Config.Password.
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// OSF's public API documents a 100 requests/minute budget per
		// authenticated user; burst of 20 absorbs a cold listing cache.
		limiter: rate.NewLimiter(rate.Limit(100.0/60.0), 20),
	}
}

// jsonAPIEnvelope is the top-level shape of every JSON:API response
// RDMFS consumes: a single resource in Data, or a collection in Data
// when the endpoint is a list, plus pagination Links.
type jsonAPIEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors,omitempty"`
}

type jsonAPIResource struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Attributes    json.RawMessage `json:"attributes"`
	Relationships struct {
		Files struct {
			Links struct {
				Related struct {
					Href string `json:"href"`
				} `json:"related"`
			} `json:"links"`
		} `json:"files"`
	} `json:"relationships"`
}

// Get issues an authenticated GET against rawURL, blocking on the rate
// limiter first. rawURL is used as given; base-relative paths are not
// resolved here.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	if tokens := c.limiter.Tokens(); tokens <= 0 && debugRateLimit {
		fmt.Fprintf(os.Stderr, "[ratelimit] token bucket empty, request to %s will block\n", rawURL)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path // already absolute, e.g. a links.next URL
	}
	return c.baseURL + path
}

func decodeList[T any](toItem func(jsonAPIResource) (T, error)) decodeFunc[T] {
	return func(body []byte) ([]T, string, error) {
		var env jsonAPIEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, "", err
		}
		if len(env.Errors) > 0 {
			return nil, "", fmt.Errorf("remote error: %s", env.Errors[0].Detail)
		}
		var raws []jsonAPIResource
		if err := json.Unmarshal(env.Data, &raws); err != nil {
			return nil, "", err
		}
		items := make([]T, 0, len(raws))
		for _, raw := range raws {
			item, err := toItem(raw)
			if err != nil {
				return nil, "", err
			}
			items = append(items, item)
		}
		return items, env.Links.Next, nil
	}
}

// GetProject fetches a single project's authoritative attributes
// (spec.md §4.5, the .attributes.json refresh closure).
func (c *Client) GetProject(ctx context.Context, id string) (*ProjectMeta, error) {
	resp, err := c.Get(ctx, c.resolve("nodes/"+id+"/"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env struct {
		Data jsonAPIResource `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("remote: decode project %s: %w", id, err)
	}

	var attrs struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(env.Data.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("remote: decode project %s attributes: %w", id, err)
	}
	var generic map[string]any
	if err := json.Unmarshal(env.Data.Attributes, &generic); err != nil {
		generic = map[string]any{}
	}

	return &ProjectMeta{ID: env.Data.ID, Title: attrs.Title, Attributes: generic}, nil
}

// ListUserNodes pages through the projects and registrations the
// authenticated user can see (spec.md §4.5, top-level listing).
func (c *Client) ListUserNodes(ctx context.Context) *Pager[NodeSummary] {
	decode := decodeList(func(r jsonAPIResource) (NodeSummary, error) {
		var attrs struct {
			Title        string `json:"title"`
			Registration bool   `json:"registration"`
		}
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return NodeSummary{}, err
		}
		return NodeSummary{ID: r.ID, Title: attrs.Title, Type: r.Type, Registration: attrs.Registration}, nil
	})
	return newPager[NodeSummary](c, c.resolve("users/me/nodes/"), decode)
}

// ListNodeChildren pages through a project's child nodes (sub-projects
// and components reachable via the "children" relationship).
func (c *Client) ListNodeChildren(ctx context.Context, nodeID string) *Pager[NodeSummary] {
	decode := decodeList(func(r jsonAPIResource) (NodeSummary, error) {
		var attrs struct {
			Title        string `json:"title"`
			Registration bool   `json:"registration"`
		}
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return NodeSummary{}, err
		}
		return NodeSummary{ID: r.ID, Title: attrs.Title, Type: r.Type, Registration: attrs.Registration}, nil
	})
	return newPager[NodeSummary](c, c.resolve("nodes/"+nodeID+"/children/"), decode)
}

// ListNodeLinked pages through a project's linked-node pointers (the
// "linked_nodes" relationship), synthesized under the virtual ".linked"
// entry (spec.md §4.5).
func (c *Client) ListNodeLinked(ctx context.Context, nodeID string) *Pager[NodeSummary] {
	decode := decodeList(func(r jsonAPIResource) (NodeSummary, error) {
		var attrs struct {
			Title        string `json:"title"`
			Registration bool   `json:"registration"`
		}
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return NodeSummary{}, err
		}
		return NodeSummary{ID: r.ID, Title: attrs.Title, Type: r.Type, Registration: attrs.Registration}, nil
	})
	return newPager[NodeSummary](c, c.resolve("nodes/"+nodeID+"/linked_nodes/"), decode)
}

// ListStorages lists the storage providers attached to a project.
// This endpoint is not paginated in practice (providers number in the
// single digits), so it is fetched eagerly rather than via Pager.
func (c *Client) ListStorages(ctx context.Context, nodeID string) ([]StorageSummary, error) {
	resp, err := c.Get(ctx, c.resolve("nodes/"+nodeID+"/files/"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env struct {
		Data []jsonAPIResource `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("remote: decode storages for %s: %w", nodeID, err)
	}

	storages := make([]StorageSummary, 0, len(env.Data))
	for _, r := range env.Data {
		var attrs struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return nil, err
		}
		storages = append(storages, StorageSummary{Name: attrs.Name, ChildrenURL: r.Relationships.Files.Links.Related.Href})
	}
	return storages, nil
}

// ListObjectChildren pages through the files and folders directly
// under a storage provider root or a folder within one.
func (c *Client) ListObjectChildren(ctx context.Context, childrenURL string) *Pager[ObjectSummary] {
	decode := decodeList(func(r jsonAPIResource) (ObjectSummary, error) {
		var attrs struct {
			Kind         string `json:"kind"`
			Name         string `json:"name"`
			Path         string `json:"path"`
			Size         any    `json:"size"`
			DateCreated  string `json:"date_created"`
			DateModified string `json:"date_modified"`
			Links        struct {
				Download string `json:"download"`
				Upload   string `json:"upload"`
				Self     string `json:"self"`
			} `json:"links"`
		}
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return ObjectSummary{}, err
		}

		kind := ObjectKindFile
		if attrs.Kind == "folder" {
			kind = ObjectKindFolder
		}

		size := ""
		switch v := attrs.Size.(type) {
		case string:
			size = v
		case float64:
			size = strconv.FormatInt(int64(v), 10)
		}

		created, _ := time.Parse(time.RFC3339, attrs.DateCreated)
		modified, _ := time.Parse(time.RFC3339, attrs.DateModified)

		return ObjectSummary{
			Path:         attrs.Path,
			Kind:         kind,
			Name:         attrs.Name,
			Size:         size,
			DateCreated:  created,
			DateModified: modified,
			DownloadURL:  attrs.Links.Download,
			UploadURL:    attrs.Links.Upload,
			SelfURL:      attrs.Links.Self,
			ChildrenURL:  r.Relationships.Files.Links.Related.Href,
		}, nil
	})
	return newPager[ObjectSummary](c, c.resolve(childrenURL), decode)
}

// Download streams a file's content from its DownloadURL.
func (c *Client) Download(ctx context.Context, downloadURL string) (*http.Response, error) {
	return c.Get(ctx, downloadURL)
}

// Upload writes the content of a new or existing file at uploadURL.
// The whitelist check (internal/whitelist) happens before this is
// ever called; Upload itself has no write-policy opinion.
func (c *Client) Upload(ctx context.Context, uploadURL string, content []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload failed (status %d)", resp.StatusCode)
	}
	return nil
}

// DeleteObject removes a file or folder at its self URL.
func (c *Client) DeleteObject(ctx context.Context, selfURL string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, selfURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete failed (status %d)", resp.StatusCode)
	}
	return nil
}
