package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Objects implements gallery.ObjectStore over the objects API.
type Objects struct {
	c *Client
}

func (c *Client) Objects() *Objects {
	return &Objects{c: c}
}

func objectRef(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/api/objects/" + strings.Join(segments, "/")
}

func (o *Objects) Put(ctx context.Context, path string, data []byte, contentType string) error {
	const op = "client.Objects.Put"

	if err := o.c.do(ctx, http.MethodPut, objectRef(path), bytes.NewReader(data), contentType, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (o *Objects) URL(ctx context.Context, path string) (string, error) {
	const op = "client.Objects.URL"

	var resp struct {
		URL string `json:"url"`
	}
	ref := "/api/objects/url?" + url.Values{"path": {path}}.Encode()
	if err := o.c.doJSON(ctx, http.MethodGet, ref, nil, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.URL, nil
}

func (o *Objects) Delete(ctx context.Context, path string) error {
	const op = "client.Objects.Delete"

	if err := o.c.do(ctx, http.MethodDelete, objectRef(path), nil, "", nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
