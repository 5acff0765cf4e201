package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"portfolio/internal/models"
)

// Documents implements gallery.DocumentStore over the photos API.
type Documents struct {
	c      *Client
	dialer *websocket.Dialer
}

func (c *Client) Documents() *Documents {
	return &Documents{c: c, dialer: websocket.DefaultDialer}
}

func (d *Documents) liveURL() string {
	u := *d.c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/api/photos/live"
	return u.String()
}

// Watch connects to the live feed. The first snapshot is delivered from a
// background reader like every later one. A broken connection is reported
// once through onError and ends the feed.
func (d *Documents) Watch(ctx context.Context, onSnapshot func([]models.PhotoDocument), onError func(error)) (func(), error) {
	const op = "client.Documents.Watch"

	conn, resp, err := d.dialer.DialContext(ctx, d.liveURL(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%s: %w", op, decodeStatus(resp))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		mu      sync.Mutex
		stopped bool
	)
	isStopped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return stopped
	}

	go func() {
		for {
			var docs []models.PhotoDocument
			if err := conn.ReadJSON(&docs); err != nil {
				if !isStopped() {
					d.c.log.Warn(ctx, "live feed closed", "err", err)
					onError(fmt.Errorf("%s: %w", op, err))
				}
				return
			}
			if isStopped() {
				return
			}
			onSnapshot(docs)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			_ = conn.Close()
		})
	}, nil
}

func (d *Documents) List(ctx context.Context) ([]models.PhotoDocument, error) {
	const op = "client.Documents.List"

	var docs []models.PhotoDocument
	if err := d.c.doJSON(ctx, http.MethodGet, "/api/photos", nil, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

func (d *Documents) Add(ctx context.Context, doc models.PhotoDocument) (models.PhotoDocument, error) {
	const op = "client.Documents.Add"

	var created models.PhotoDocument
	if err := d.c.doJSON(ctx, http.MethodPost, "/api/photos", doc, &created); err != nil {
		return models.PhotoDocument{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

func (d *Documents) Update(ctx context.Context, id string, upd models.PhotoUpdate) error {
	const op = "client.Documents.Update"

	if err := d.c.doJSON(ctx, http.MethodPatch, "/api/photos/"+url.PathEscape(id), upd, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (d *Documents) Delete(ctx context.Context, id string) error {
	const op = "client.Documents.Delete"

	if err := d.c.do(ctx, http.MethodDelete, "/api/photos/"+url.PathEscape(id), nil, "", nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
