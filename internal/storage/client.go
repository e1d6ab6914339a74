package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"

	"github.com/google/uuid"
)

// 订单照片上限，下单校验与上传端共用。
const MaxOrderPhotos = 3

// Client 对象存储客户端，订单照片（最多三张）走这里上传。
type Client struct {
	endpoint      string
	apiKey        string
	bucket        string
	publicBaseURL string
	http          *http.Client
}

func NewClient(cfg config.StorageConfig) *Client {
	return &Client{
		endpoint:      cfg.Endpoint,
		apiKey:        cfg.APIKey,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		http:          &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload 上传一个对象，返回可公开访问的 URL。
// 对象键用 uuid 前缀避免同名覆盖，原始文件名只保留扩展名。
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	key := uuid.NewString() + strings.ToLower(path.Ext(filename))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", key)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/buckets/%s/objects", c.endpoint, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload %s: status %d", key, resp.StatusCode)
	}

	var out struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.Key == "" {
		out.Key = key
	}
	return c.PublicURL(out.Key), nil
}

// PublicURL 对象键转公开访问地址。
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, key)
}

// Remove 删除对象。对象不存在按成功处理。
func (c *Client) Remove(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/buckets/%s/objects/%s", c.endpoint, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove %s: status %d", key, resp.StatusCode)
	}
	return nil
}
