package protocol

import (
	"context"
	"io"
	"net/http"

	"churnmap/internal/errors"
	"churnmap/internal/object"
	"churnmap/internal/pktline"
)

const (
	// headRefName is the sentinel name of the default reference
	headRefName = "HEAD"

	serviceAnnouncement = "# service=" + ServiceName
)

// DiscoverHead performs the discovery handshake and returns the object
// id of the repository's default reference.
func (c *Client) DiscoverHead(ctx context.Context, repoURL string) (object.ID, error) {
	endpoint, err := repoEndpoint(repoURL, "/info/refs?service="+ServiceName)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.New(errors.InternalError, "failed to create discovery request", err)
	}
	req.Header.Set("User-Agent", c.agent)

	c.logger.Debug("Discovering default reference", map[string]interface{}{
		"url": endpoint,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.New(errors.ProtocolViolation, "discovery request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ProtocolViolation,
			"discovery returned status %d", resp.StatusCode)
	}
	if err := requireContentType(resp, advertisementType); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New(errors.ProtocolViolation, "reading discovery response", err)
	}

	return parseAdvertisement(body)
}

// parseAdvertisement validates the reference advertisement and extracts
// the default reference id from its first ref line.
func parseAdvertisement(body []byte) (object.ID, error) {
	if !hasAdvertisementPrefix(body) {
		return "", errors.New(errors.ProtocolViolation,
			"invalid response: advertisement does not start with a framed service line", nil)
	}

	scanner := pktline.NewScanner(body)

	service, err := nextDataFrame(scanner)
	if err != nil {
		return "", err
	}
	text, err := pktline.Text(service)
	if err != nil {
		return "", err
	}
	if line := trimLine(text); line != serviceAnnouncement {
		return "", errors.Newf(errors.ProtocolViolation,
			"unexpected service announcement %q", line)
	}

	refLine, err := nextDataFrame(scanner)
	if err != nil {
		return "", err
	}
	return parseHeadRef(refLine.Payload)
}

// hasAdvertisementPrefix checks the first five bytes for the
// 4-hex-digit-length-then-'#' pattern.
func hasAdvertisementPrefix(body []byte) bool {
	if len(body) < 5 {
		return false
	}
	for _, b := range body[:4] {
		if !(b >= '0' && b <= '9' || b >= 'a' && b <= 'f') {
			return false
		}
	}
	return body[4] == '#'
}

// nextDataFrame advances the scanner past flush frames to the next data
// frame.
func nextDataFrame(scanner *pktline.Scanner) (pktline.Frame, error) {
	for scanner.Scan() {
		if frame := scanner.Frame(); frame.Type == pktline.FrameData {
			return frame, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return pktline.Frame{}, err
	}
	return pktline.Frame{}, errors.New(errors.ProtocolViolation,
		"advertisement ended before the expected data frame", nil)
}

// parseHeadRef extracts and validates the default reference id from the
// first advertised ref line: 40 hex id, a space, the HEAD sentinel, and
// a NUL before the capability list.
func parseHeadRef(line []byte) (object.ID, error) {
	if len(line) < 46 {
		return "", errors.Newf(errors.ProtocolViolation,
			"advertised ref line too short (%d bytes)", len(line))
	}

	id, err := object.ParseID(string(line[:40]))
	if err != nil {
		return "", err
	}
	if line[40] != ' ' {
		return "", errors.New(errors.ProtocolViolation,
			"advertised ref line missing separator after object id", nil)
	}
	if string(line[41:45]) != headRefName {
		return "", errors.Newf(errors.ProtocolViolation,
			"first advertised reference is %q, want %q", refName(line[41:]), headRefName)
	}
	if line[45] != 0 {
		return "", errors.New(errors.ProtocolViolation,
			"advertised ref line missing capability delimiter", nil)
	}

	if id.IsZero() {
		return "", errors.New(errors.EmptyRepository,
			"repository has no commits on its default reference", nil)
	}
	return id, nil
}

// refName cuts a ref name out of the tail of a ref line
func refName(tail []byte) string {
	for i, b := range tail {
		if b == 0 || b == '\n' {
			return string(tail[:i])
		}
	}
	return string(tail)
}

// trimLine drops the trailing newline protocol text lines carry
func trimLine(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}
