// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package turn

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/zeebo/blake3"

	"github.com/intamia/beacon/lib/capture"
	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/netutil"
	"github.com/intamia/beacon/lib/sessionconfig"
)

// DefaultPath is the orchestrator's turn endpoint.
const DefaultPath = "/turn"

// FieldName is the multipart field carrying the clip.
const FieldName = "audio"

// clipDomainKey separates clip identities from any other BLAKE3 use.
var clipDomainKey = [32]byte{
	'b', 'e', 'a', 'c', 'o', 'n', '.', 't', 'u', 'r', 'n', '.', 'c', 'l', 'i', 'p',
}

// TransportError is a non-2xx turn response.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("turn: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("turn: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client uploads clips.
type Client struct {
	client *http.Client
	path   string
	logger *slog.Logger
}

// New returns a Client using the factory's exchange profile. An empty
// path means DefaultPath.
func New(factory *channel.Factory, path string, logger *slog.Logger) *Client {
	if path == "" {
		path = DefaultPath
	}
	return &Client{
		client: factory.Client(channel.ProfileExchange),
		path:   path,
		logger: logger,
	}
}

// SendTurn uploads clip to the orchestrator at baseAddress and returns
// its reply.
func (c *Client) SendTurn(ctx context.Context, baseAddress string, clip capture.Clip) (Reply, error) {
	container, err := clip.Container()
	if err != nil {
		return Reply{}, fmt.Errorf("encoding clip: %w", err)
	}
	filename := FileName(clip.Payload)
	body, contentType, err := multipartBody(filename, container)
	if err != nil {
		return Reply{}, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionconfig.JoinPath(baseAddress, c.path), bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("building turn request: %w", err)
	}
	request.Header.Set("Content-Type", contentType)
	request.Header.Set("Accept", "application/json")

	c.logger.Info("uploading clip",
		"filename", filename,
		"bytes", len(container),
		"complete", clip.Complete(),
	)
	response, err := c.client.Do(request)
	if err != nil {
		return Reply{}, fmt.Errorf("posting turn: %w", err)
	}
	defer netutil.DrainAndClose(response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return Reply{}, &TransportError{
			StatusCode: response.StatusCode,
			Body:       netutil.ErrorBody(response.Body),
		}
	}

	raw, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("reading turn reply: %w", err)
	}
	return ParseReply(raw)
}

// FileName is the upload filename for a clip payload.
func FileName(payload []byte) string {
	hasher, err := blake3.NewKeyed(clipDomainKey[:])
	if err != nil {
		panic("turn: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	return "sos_" + hex.EncodeToString(hasher.Sum(nil)[:8]) + ".wav"
}

func multipartBody(filename string, container []byte) ([]byte, string, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, filename))
	header.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating audio part: %w", err)
	}
	if _, err := part.Write(container); err != nil {
		return nil, "", fmt.Errorf("writing audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buffer.Bytes(), writer.FormDataContentType(), nil
}
