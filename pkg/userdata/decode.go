// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package userdata

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	cerrors "github.com/NVIDIA/condense/pkg/errors"
)

// Content types produced by the decoder.
const (
	TypeCloudConfig = "text/cloud-config"
	TypeShellScript = "text/x-shellscript"
	TypePlain       = "text/plain"
	TypeOctetStream = "application/octet-stream"
)

// mimeSniffLen is how far into a document the MIME-Version header is sought.
const mimeSniffLen = 4096

// maxDecompressed bounds gzip expansion. Larger payloads are not
// decompressed at all.
const maxDecompressed = 64 << 20

// Part is one decoded unit of user data.
type Part struct {
	ContentType string
	Filename    string
	Payload     []byte
}

type prefixType struct {
	prefix      string
	contentType string
}

// prefixTypes is ordered longest prefix first.
var prefixTypes = func() []prefixType {
	p := []prefixType{
		{prefix: "#cloud-config", contentType: TypeCloudConfig},
		{prefix: "#!", contentType: TypeShellScript},
	}
	sort.SliceStable(p, func(i, j int) bool { return len(p[i].prefix) > len(p[j].prefix) })
	return p
}()

// TypeFromPrefix returns the content type whose signature payload starts
// with, or def when none matches. The longest matching signature wins.
func TypeFromPrefix(payload []byte, def string) string {
	for _, p := range prefixTypes {
		if bytes.HasPrefix(payload, []byte(p.prefix)) {
			return p.contentType
		}
	}
	return def
}

// Decode normalizes raw user data into an ordered list of parts. Gzip input
// is decompressed first. MIME documents are walked depth first with
// multipart containers skipped; anything else becomes a single part. A MIME
// document that cannot be parsed degrades to a single part. Empty input
// yields no parts.
func Decode(raw []byte) []Part {
	data := decompress(raw)
	if len(data) == 0 {
		return nil
	}

	if !isMIME(data) {
		return []Part{single(data)}
	}

	parts, err := decodeMIME(data)
	if err != nil {
		slog.Warn("malformed multipart user data, treating as a single part",
			"error", cerrors.Wrap(cerrors.ErrCodeDecodeFailure, "mime parse failed", err))
		return []Part{single(data)}
	}
	return parts
}

func single(data []byte) Part {
	return Part{
		ContentType: TypeFromPrefix(data, TypePlain),
		Filename:    partName(0),
		Payload:     data,
	}
}

func partName(n int) string {
	return fmt.Sprintf("part-%03d", n)
}

// decompress returns the gunzipped content of raw, or raw itself when it is
// not a valid gzip stream or expands beyond maxDecompressed.
func decompress(raw []byte) []byte {
	return decompressLimit(raw, maxDecompressed)
}

func decompressLimit(raw []byte, limit int64) []byte {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return raw
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		slog.Debug("user data looked compressed but did not decompress", "error", err)
		return raw
	}
	if int64(len(out)) > limit {
		slog.Warn("compressed user data too large, keeping it as is",
			"error", cerrors.NewWithContext(cerrors.ErrCodeDecodeFailure, "decompressed size over limit",
				map[string]any{"limit": limit}))
		return raw
	}
	return out
}

func isMIME(data []byte) bool {
	head := data
	if len(head) > mimeSniffLen {
		head = head[:mimeSniffLen]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("mime-version:"))
}

func decodeMIME(data []byte) ([]Part, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var parts []Part
	if err := walk(textproto.MIMEHeader(msg.Header), msg.Body, &parts); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, errors.New("document has no leaf parts")
	}
	return parts, nil
}

func walk(h textproto.MIMEHeader, body io.Reader, parts *[]Part) error {
	mediatype, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil || mediatype == "" {
		mediatype, params = TypePlain, map[string]string{}
	}

	if strings.HasPrefix(mediatype, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("%s without boundary", mediatype)
		}
		mr := multipart.NewReader(body, boundary)
		for {
			p, err := mr.NextRawPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := walk(p.Header, p, parts); err != nil {
				return err
			}
		}
	}

	payload, err := readBody(h.Get("Content-Transfer-Encoding"), body)
	if err != nil {
		return err
	}

	ctype := mediatype
	if ctype == TypePlain {
		ctype = TypeFromPrefix(payload, TypePlain)
	}

	name := filename(h, params)
	if name == "" {
		name = partName(len(*parts))
	}

	*parts = append(*parts, Part{ContentType: ctype, Filename: name, Payload: payload})
	return nil
}

func readBody(encoding string, body io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		clean := strings.Map(func(r rune) rune {
			if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, string(raw))
		return base64.StdEncoding.DecodeString(clean)
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
	default:
		return raw, nil
	}
}

func filename(h textproto.MIMEHeader, ctParams map[string]string) string {
	if cd := h.Get("Content-Disposition"); cd != "" {
		if _, p, err := mime.ParseMediaType(cd); err == nil && p["filename"] != "" {
			return p["filename"]
		}
	}
	return ctParams["name"]
}
