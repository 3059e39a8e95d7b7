package protocol

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"churnmap/internal/errors"
	"churnmap/internal/object"
	"churnmap/internal/pktline"
)

// FetchPack requests the object graph reachable from want as a single
// transfer payload. Blob contents are filtered out server-side: the
// analysis needs only commit and tree structure, never file bodies.
func (c *Client) FetchPack(ctx context.Context, repoURL string, want object.ID) ([]byte, error) {
	endpoint, err := repoEndpoint(repoURL, "/"+ServiceName)
	if err != nil {
		return nil, err
	}

	body, err := c.negotiationBody(want)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to create negotiation request", err)
	}
	req.Header.Set("User-Agent", c.agent)
	req.Header.Set("Content-Type", requestType)
	req.Header.Set("Accept", resultType)

	c.logger.Debug("Negotiating transfer", map[string]interface{}{
		"url":  endpoint,
		"want": string(want),
	})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.New(errors.ProtocolViolation, "negotiation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ProtocolViolation,
			"negotiation returned status %d", resp.StatusCode)
	}
	if err := requireContentType(resp, resultType); err != nil {
		return nil, err
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.ProtocolViolation, "reading negotiation response", err)
	}

	return extractPack(payload)
}

// negotiationBody encodes the single "want" request: one want line with
// the blob filter, a flush, and done.
func (c *Client) negotiationBody(want object.ID) ([]byte, error) {
	body, err := pktline.EncodeString(nil,
		"want "+string(want)+" filter=blob:none agent="+c.agent+"\n")
	if err != nil {
		return nil, err
	}
	body = pktline.EncodeFlush(body)
	return pktline.EncodeString(body, "done\n")
}

// extractPack returns the payload of the first binary-transfer frame in
// a negotiation response, skipping the framed acknowledgement that
// precedes it.
func extractPack(payload []byte) ([]byte, error) {
	scanner := pktline.NewScanner(payload)
	for scanner.Scan() {
		if frame := scanner.Frame(); frame.Type == pktline.FramePack {
			return frame.Payload, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New(errors.TransferMissing,
		"no transfer payload found in negotiation response", nil)
}
