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
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strconv"
)

// boundary is fixed so that encoding the same parts always yields the same
// bytes. It cannot occur in base64 bodies.
const boundary = "condense-part-boundary"

const base64LineLen = 76

// Encode renders parts as a multipart/mixed MIME document with base64 bodies
// and explicit filenames. Decode(Encode(parts)) returns parts unchanged.
func Encode(parts []Part) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", mime.FormatMediaType("multipart/mixed",
		map[string]string{"boundary": boundary}))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Number-Attachments: " + strconv.Itoa(len(parts)) + "\r\n\r\n")

	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, err
	}

	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", p.ContentType)
		h.Set("Content-Transfer-Encoding", "base64")
		h.Set("Content-Disposition", mime.FormatMediaType("attachment",
			map[string]string{"filename": p.Filename}))

		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		enc := base64.StdEncoding.EncodeToString(p.Payload)
		for len(enc) > base64LineLen {
			if _, err := w.Write([]byte(enc[:base64LineLen] + "\r\n")); err != nil {
				return nil, err
			}
			enc = enc[base64LineLen:]
		}
		if _, err := w.Write([]byte(enc)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
