/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package site preloads the static site root so the request parser can
// rewrite an extensionless path to its ".html" file without stat'ing the
// filesystem on every request, and maps file extensions to content types.
package site

import (
	"os"
	"path/filepath"
	"strings"
)

// Set is the collection of extensionless paths (leading slash, no
// ".html" suffix) that exist as .html files under the preloaded root.
type Set map[string]struct{}

// Preload walks root recursively and returns the set of paths (relative to
// root, leading slash, ".html" suffix stripped) of every ".html" file
// found, mirroring the original server's startup preload of its site tree.
func Preload(root string) (Set, error) {
	set := make(Set)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.ToLower(filepath.Ext(path)) != ".html" {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		rel = strings.TrimSuffix(rel, ".html")
		if !strings.HasPrefix(rel, "/") {
			rel = "/" + rel
		}
		set[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

// Has reports whether path (leading slash, no extension) names a preloaded
// .html file.
func (s Set) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// contentType maps a lowercased file extension (with leading dot) to its
// MIME type, matching the original server's static content-type table.
var contentType = map[string]string{
	".bmp":     "application/x-bmp",
	".doc":     "application/msword",
	".exe":     "application/x-msdownload",
	".htm":     "text/html",
	".html":    "text/html",
	".ico":     "image/x-icon",
	".java":    "java/*",
	".latex":   "application/x-latex",
	".xml":     "text/xml",
	".xhtml":   "application/xhtml+xml",
	".txt":     "text/plain",
	".rtf":     "application/rtf",
	".pdf":     "application/pdf",
	".ppt":     "application/vnd.ms-powerpoint",
	".word":    "application/nsword",
	".png":     "image/png",
	".gif":     "image/gif",
	".jfif":    "image/jpeg",
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".svg":     "text/xml",
	".au":      "audio/basic",
	".mpeg":    "application/octet-stream",
	".mpg":     "application/octet-stream",
	".mp3":     "application/octet-stream",
	".mp4":     "application/octet-stream",
	".mpv":     "application/octet-stream",
	".avi":     "application/octet-stream",
	".gz":      "application/x-gzip",
	".tar":     "application/x-tar",
	".css":     "text/css",
	".js":      "application/x-javascript",
	".torrent": "application/x-bittorrent",
	".wav":     "application/octet-stream",
	".xsl":     "text/xml",
	".xslt":    "text/xml",
	".apk":     "application/vnd.android.package-archive",
	".ipa":     "application/vnd.iphone",
}

// ContentType returns the MIME type for path based on its extension,
// falling back to "text/plain" for an unknown or missing extension.
func ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if ct, ok := contentType[ext]; ok {
		return ct
	}
	return "text/plain"
}
