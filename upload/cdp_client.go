package upload

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/nrf-quote/internal/apiclient"
	"github.com/jrsteele09/nrf-quote/internal/errors"
)

// CDPClient talks to the CDP uploader service.
type CDPClient struct {
	api         *apiclient.Client
	bucket      string
	relativeURL bool
}

var _ Uploader = (*CDPClient)(nil)

type CDPOption func(*CDPClient)

// WithRelativeUploadURL reduces the returned uploadUrl to its path so the browser posts
// to this service's upload proxy instead of the uploader host.
func WithRelativeUploadURL() CDPOption {
	return func(c *CDPClient) {
		c.relativeURL = true
	}
}

func NewCDPClient(baseURL, bucket string, httpClient *http.Client, opts ...CDPOption) *CDPClient {
	c := &CDPClient{api: apiclient.New(baseURL, httpClient), bucket: bucket}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CDPClient) Initiate(ctx context.Context, req InitiateRequest) (*Initiated, error) {
	if req.S3Bucket == "" {
		req.S3Bucket = c.bucket
	}
	var out Initiated
	if err := c.api.Post(ctx, "/initiate", req, &out); err != nil {
		return nil, errors.Wrapf(err, "[CDPClient Initiate]")
	}
	if out.UploadID == "" || out.UploadURL == "" {
		return nil, errors.NewProblem(errors.ErrUpstreamService, "", errors.New("[CDPClient Initiate] response lacks uploadId or uploadUrl"))
	}
	if c.relativeURL {
		u, err := url.Parse(out.UploadURL)
		if err != nil {
			return nil, errors.Wrapf(err, "[CDPClient Initiate] uploadUrl")
		}
		out.UploadURL = u.EscapedPath()
	}
	return &out, nil
}

func (c *CDPClient) Status(ctx context.Context, uploadID string) (*Status, error) {
	var out Status
	if err := c.api.Get(ctx, "/status/"+url.PathEscape(uploadID), &out); err != nil {
		return nil, errors.Wrapf(err, "[CDPClient Status]")
	}
	return &out, nil
}
