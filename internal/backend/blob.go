package backend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"path"
	"strings"
	"time"
)

// storageRoot is the object store route, sibling of the table API.
const storageRoot = "/storage/v1/object/survey-media"

// ObjectPath builds the canonical storage key for a media blob:
// {surveyID}/{zoneID}/{timestamp}_{random}.{ext}. Zone-less media files
// under the literal "general" segment. The extension is taken from the
// original file name; files without one get no extension.
func ObjectPath(surveyID, zoneID, fileName string, now time.Time) string {
	zone := zoneID
	if zone == "" {
		zone = "general"
	}

	name := fmt.Sprintf("%d_%06d", now.UnixMilli(), rand.IntN(1000000)) //nolint:gosec // collision avoidance, not security

	if ext := path.Ext(fileName); ext != "" {
		name += ext
	}

	return surveyID + "/" + zone + "/" + name
}

// UploadObject uploads a media blob to object storage under the given key
// and returns the key. The upload is all or nothing: any failure leaves no
// partial object behind and the caller's metadata row is not written.
func (c *Client) UploadObject(ctx context.Context, key, contentType string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("backend: upload %s: empty payload", key)
	}

	url := c.baseURL + storageRoot + "/" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("backend: upload %s: creating request: %w", key, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-upsert", "true")

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend: upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &Error{
			StatusCode: resp.StatusCode,
			Message:    "object upload failed",
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return key, nil
}

// DeleteObject removes a media blob from object storage. Missing objects
// are not an error so that metadata deletion stays idempotent.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	url := c.baseURL + storageRoot + "/" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("backend: delete object %s: creating request: %w", key, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: delete object %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    "object delete failed",
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return nil
}
